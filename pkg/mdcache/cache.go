// Package mdcache is a content-hash render cache: it skips re-decoding
// and re-encoding a Markdown source whose bytes have already been
// rendered once. Grounded on auth/database.go's database/sql +
// modernc.org/sqlite pattern (open-or-create file, embedded schema
// constant, prepared statements) — repurposed from a users/sessions
// schema to a single-table render cache.
package mdcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	hash       TEXT PRIMARY KEY,
	html       TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Cache wraps the render-cache database connection.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens the render cache at path, creating the file and schema if
// they don't exist yet.
func Open(path string) (*Cache, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
		if err != nil {
			return nil, fmt.Errorf("creating render cache: %w", err)
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening render cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating render cache schema: %w", err)
	}
	return &Cache{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// hashSource returns the cache key for a piece of markdown source: a
// hex-encoded blake2b-256 digest, matching SPEC_FULL.md's schema comment
// ("hash TEXT PRIMARY KEY -- blake2b-256 of source markdown"). blake2b
// itself lives behind pkg/mdcache/hash.go so a caller never imports
// golang.org/x/crypto directly.
func hashSource(source string) string {
	return hashHex(source)
}

// Get returns the cached HTML for source, if present.
func (c *Cache) Get(source string) (html string, ok bool, err error) {
	row := c.db.QueryRow("SELECT html FROM renders WHERE hash = ?", hashSource(source))
	if scanErr := row.Scan(&html); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading render cache: %w", scanErr)
	}
	return html, true, nil
}

// Put stores html under source's content hash, replacing any prior entry
// (source content is unchanged, so a re-put is idempotent).
func (c *Cache) Put(source, html string) error {
	_, err := c.db.Exec(
		"INSERT INTO renders (hash, html) VALUES (?, ?) ON CONFLICT(hash) DO UPDATE SET html = excluded.html",
		hashSource(source), html,
	)
	if err != nil {
		return fmt.Errorf("writing render cache: %w", err)
	}
	return nil
}

// fallbackHex is used only if blake2b construction fails, which the
// library only does for an invalid key size — never the case here since
// New256 is called with a nil key.
func fallbackHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
