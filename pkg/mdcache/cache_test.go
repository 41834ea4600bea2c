package mdcache

import (
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := openTestCache(t)
	if _, ok, err := c.Get("# hello"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
}

func TestPutThenGetHits(t *testing.T) {
	c := openTestCache(t)
	if err := c.Put("# hello", "<article>\n  <h1>hello</h1>\n</article>\n"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	html, ok, err := c.Get("# hello")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if html != "<article>\n  <h1>hello</h1>\n</article>\n" {
		t.Fatalf("got %q", html)
	}
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	c := openTestCache(t)
	if err := c.Put("x", "first"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := c.Put("x", "second"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	html, ok, err := c.Get("x")
	if err != nil || !ok || html != "second" {
		t.Fatalf("expected overwritten entry, got %q ok=%v err=%v", html, ok, err)
	}
}

func TestDifferentSourceDifferentKey(t *testing.T) {
	c := openTestCache(t)
	c.Put("a", "rendered-a")
	c.Put("b", "rendered-b")

	htmlA, _, _ := c.Get("a")
	htmlB, _, _ := c.Get("b")
	if htmlA != "rendered-a" || htmlB != "rendered-b" {
		t.Fatalf("expected independent entries, got %q / %q", htmlA, htmlB)
	}
}

func TestReopenPersistsEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")

	c1, err := Open(path)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if err := c1.Put("persisted", "html"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	c1.Close()

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("re-Open error: %v", err)
	}
	defer c2.Close()
	html, ok, err := c2.Get("persisted")
	if err != nil || !ok || html != "html" {
		t.Fatalf("expected persisted entry across reopen, got %q ok=%v err=%v", html, ok, err)
	}
}
