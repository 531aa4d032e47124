// Package cache stores fetched pages and the rule-engine script between runs.
// Analysis results are never cached.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Namespaces keep page bodies and scripts apart in one store
const (
	NamespacePage   = "page"
	NamespaceScript = "script"
)

// Key generates a cache key for a resource within a namespace
func Key(namespace, resource string) string {
	hash := sha256.Sum256([]byte(resource))
	return "narrascope:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// Nop is a cache that stores nothing
type Nop struct{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }

func (Nop) Set(string, []byte, time.Duration) error { return nil }

func (Nop) Delete(string) error { return nil }

func (Nop) Clear() error { return nil }
