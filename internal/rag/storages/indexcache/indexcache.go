package indexcache

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Cache maps a document identity to its persisted index directory under a
// configured root. Directory existence is the cache hit signal; no other
// bookkeeping is kept.
//
// Identity is derived by sanitizing the document's external name, so two
// distinct uploads whose names sanitize to the same key are treated as the
// same cached document. This is a documented limitation of name-derived
// identity; a content-hash identity would harden it at the cost of
// re-hashing every upload.
type Cache struct {
	root string
}

// New creates a Cache rooted at dir.
func New(root string) *Cache {
	return &Cache{root: root}
}

// SanitizeIdentity reduces an external document name to a storage-safe key:
// everything outside [A-Za-z0-9._-] is stripped.
func SanitizeIdentity(name string) string {
	name = filepath.Base(name)
	sanitized := unsafeChars.ReplaceAllString(name, "")
	sanitized = strings.Trim(sanitized, ".")
	if sanitized == "" {
		sanitized = "document"
	}
	return sanitized
}

// PathFor returns the index directory for a sanitized identity.
func (c *Cache) PathFor(identity string) string {
	return filepath.Join(c.root, identity)
}

// Exists reports whether a persisted index exists for the identity.
func (c *Cache) Exists(identity string) bool {
	info, err := os.Stat(c.PathFor(identity))
	return err == nil && info.IsDir()
}

// Invalidate removes the persisted index for the identity. It is the
// explicit re-entry point for a document that must be rebuilt.
func (c *Cache) Invalidate(identity string) error {
	return os.RemoveAll(c.PathFor(identity))
}
