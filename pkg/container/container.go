package container

import (
	"reflect"
	"sync"

	"github.com/bft-labs/rigging/pkg/diag"
)

// Container maps tokens to providers and materializes instances on demand.
// Resolution is synchronous and memoized: each token's provider runs at
// most once, and subsequent resolves return the cached instance.
type Container struct {
	mu        sync.Mutex
	providers map[*Token]Provider
	instances map[*Token]any
	resolving map[*Token]bool
}

// New creates an empty container.
func New() *Container {
	return &Container{
		providers: make(map[*Token]Provider),
		instances: make(map[*Token]any),
		resolving: make(map[*Token]bool),
	}
}

// Register binds a provider to a token. Registering the same token twice
// is a configuration error.
func (c *Container) Register(t *Token, p Provider) error {
	if t == nil {
		return diag.NewError(diag.KeyUnknownToken, map[string]any{"token": "<nil>"})
	}
	if !p.valid() {
		return diag.NewError(diag.KeyInvalidProvider, map[string]any{
			"token": t.Name(),
			"kind":  p.kind.String(),
		})
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.providers[t]; dup {
		return diag.NewError(diag.KeyDuplicateToken, map[string]any{"token": t.Name()})
	}
	c.providers[t] = p
	return nil
}

// Known reports whether the token has a registered provider.
func (c *Container) Known(t *Token) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.providers[t]
	return ok
}

// Dependencies returns the declared injection list for a token's provider.
func (c *Container) Dependencies(t *Token) []*Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providers[t].deps
}

// Resolve materializes the instance for a token, running its provider on
// first use. Providers run under the container lock; they must be cheap
// and synchronous. A provider whose result is a channel is rejected.
func (c *Container) Resolve(t *Token) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolve(t)
}

// Forget drops the memoized instance for a token, if any. The provider
// stays registered; the next Resolve constructs a fresh instance.
func (c *Container) Forget(t *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.instances, t)
}

// resolve is the lock-held recursive resolution path.
func (c *Container) resolve(t *Token) (any, error) {
	if v, ok := c.instances[t]; ok {
		return v, nil
	}
	p, ok := c.providers[t]
	if !ok {
		name := "<nil>"
		if t != nil {
			name = t.Name()
		}
		return nil, diag.NewError(diag.KeyUnknownToken, map[string]any{"token": name})
	}
	if c.resolving[t] {
		return nil, diag.NewError(diag.KeyResolveCycle, map[string]any{"token": t.Name()})
	}
	c.resolving[t] = true
	v, err := p.construct(lockedResolver{c})
	delete(c.resolving, t)
	if err != nil {
		return nil, err
	}
	if isAwaitable(v) {
		return nil, diag.NewError(diag.KeyAsyncProvider, map[string]any{"token": t.Name()})
	}
	c.instances[t] = v
	return v, nil
}

// lockedResolver resolves dependencies re-entrantly while the container
// lock is already held.
type lockedResolver struct {
	c *Container
}

func (r lockedResolver) Resolve(t *Token) (any, error) {
	return r.c.resolve(t)
}

// isAwaitable reports whether a provider result is a pending value rather
// than an instance. Channels are the Go shape of "not ready yet".
func isAwaitable(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Chan
}
