package mdast

// Attrs is an insertion-ordered attribute map. Serialization order of
// attributes is observable in the encoded HTML, so a plain Go map (whose
// iteration order is randomized) cannot be used here — the same pattern
// the evaluator uses when it builds a dictionary's KeyOrder slice
// alongside its Pairs map while converting a foreign tree into its own
// node shape.
type Attrs struct {
	keys   []string
	values map[string]*string // nil *string means a null/valueless attribute
}

// NewAttrs returns an empty ordered attribute map.
func NewAttrs() *Attrs {
	return &Attrs{values: make(map[string]*string)}
}

// Set inserts or updates key with value. The first Set of a key fixes its
// position in iteration order; later Sets of the same key update the value
// in place without moving it.
func (a *Attrs) Set(key, value string) *Attrs {
	return a.set(key, &value)
}

// SetNull inserts key with a null value (rendered as a bare attribute name).
func (a *Attrs) SetNull(key string) *Attrs {
	return a.set(key, nil)
}

func (a *Attrs) set(key string, value *string) *Attrs {
	if a.values == nil {
		a.values = make(map[string]*string)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
	return a
}

// Get returns the value for key, whether it is null, and whether it exists.
func (a *Attrs) Get(key string) (value string, isNull bool, ok bool) {
	if a == nil {
		return "", false, false
	}
	v, ok := a.values[key]
	if !ok {
		return "", false, false
	}
	if v == nil {
		return "", true, true
	}
	return *v, false, true
}

// Has reports whether key is present.
func (a *Attrs) Has(key string) bool {
	if a == nil {
		return false
	}
	_, ok := a.values[key]
	return ok
}

// Delete removes key, preserving the order of the remaining keys.
func (a *Attrs) Delete(key string) {
	if a == nil {
		return
	}
	if _, ok := a.values[key]; !ok {
		return
	}
	delete(a.values, key)
	for i, k := range a.keys {
		if k == key {
			a.keys = append(a.keys[:i], a.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of attributes.
func (a *Attrs) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Pair is a single ordered attribute entry, null meaning a valueless key.
type Pair struct {
	Key    string
	Value  string
	IsNull bool
}

// Each visits every attribute in insertion order.
func (a *Attrs) Each(fn func(Pair)) {
	if a == nil {
		return
	}
	for _, k := range a.keys {
		v := a.values[k]
		if v == nil {
			fn(Pair{Key: k, IsNull: true})
		} else {
			fn(Pair{Key: k, Value: *v})
		}
	}
}

// Clone returns a deep copy so mutations on one node's attrs never leak
// into a node it was cloned from (the definition-list rule clones a
// paragraph's children into a fresh dt).
func (a *Attrs) Clone() *Attrs {
	if a == nil {
		return nil
	}
	out := NewAttrs()
	a.Each(func(p Pair) {
		if p.IsNull {
			out.SetNull(p.Key)
		} else {
			out.Set(p.Key, p.Value)
		}
	})
	return out
}
