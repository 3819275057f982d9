package fswatch

import (
	"github.com/bft-labs/rigging"
)

// Register registers a watcher component on the orchestrator under a new
// token and returns the token.
//
// Usage:
//
//	tok, err := fswatch.Register(o, fswatch.Config{
//	    Paths:   []string{"/etc/myapp"},
//	    Handler: reload,
//	})
func Register(o *rigging.Orchestrator, cfg Config, opts ...rigging.RegisterOption) (*rigging.Token, error) {
	tok := rigging.NewToken("fswatch")
	if err := o.Register(tok, rigging.Value(New(cfg)), opts...); err != nil {
		return nil, err
	}
	return tok, nil
}
