package registry

import (
	"errors"
	"sort"
	"sync"
)

// DefaultKey is the protected default entry name. The default entry can be
// replaced until it is locked, but never deleted.
const DefaultKey = "default"

// Registry errors.
var (
	// ErrKeyLocked is returned when writing or deleting a locked key.
	ErrKeyLocked = errors.New("registry: key locked")

	// ErrProtectedKey is returned when deleting the default key.
	ErrProtectedKey = errors.New("registry: protected key")
)

// Registry is an explicit name-to-instance mapping passed by the caller.
// It replaces a global mutable singleton: whoever holds the value decides
// its scope. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]any
	locked  map[string]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]any),
		locked:  make(map[string]struct{}),
	}
}

// Set stores an instance under a name, replacing any previous value.
// A locked key rejects the write.
func (r *Registry) Set(name string, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, locked := r.locked[name]; locked {
		return ErrKeyLocked
	}
	r.entries[name] = v
	return nil
}

// SetDefault stores the default instance.
func (r *Registry) SetDefault(v any) error {
	return r.Set(DefaultKey, v)
}

// Get returns the instance stored under a name.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[name]
	return v, ok
}

// Default returns the default instance.
func (r *Registry) Default() (any, bool) {
	return r.Get(DefaultKey)
}

// Lock freezes a key: subsequent Set and Delete calls on it fail.
func (r *Registry) Lock(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked[name] = struct{}{}
}

// Locked reports whether a key is frozen.
func (r *Registry) Locked(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.locked[name]
	return ok
}

// Delete removes an entry. The default key is protected and cannot be
// deleted; a locked key rejects deletion.
func (r *Registry) Delete(name string) error {
	if name == DefaultKey {
		return ErrProtectedKey
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, locked := r.locked[name]; locked {
		return ErrKeyLocked
	}
	delete(r.entries, name)
	return nil
}

// Keys returns the entry names in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
