package container

// providerKind discriminates the closed set of provider variants.
type providerKind int

const (
	kindInvalid providerKind = iota
	kindValue
	kindFactory
	kindMapFactory
	kindBound
)

func (k providerKind) String() string {
	switch k {
	case kindValue:
		return "value"
	case kindFactory:
		return "factory"
	case kindMapFactory:
		return "mapFactory"
	case kindBound:
		return "bound"
	default:
		return "invalid"
	}
}

// Resolver materializes an instance for a token. *Container implements it.
type Resolver interface {
	Resolve(t *Token) (any, error)
}

// Provider describes how to construct the instance behind a token. It is a
// closed tagged union: construct one with Value, Factory, MapFactory, or
// Bind. The variant is fixed at construction and dispatched by tag, never
// by probing the shape of an arbitrary value at resolve time.
//
// Providers are synchronous. A provider whose result is a channel is
// rejected at resolve time: a channel is a pending result, and async setup
// belongs in lifecycle hooks.
type Provider struct {
	kind  providerKind
	value any
	fn    func(deps ...any) (any, error)
	mapFn func(deps map[*Token]any) (any, error)
	bound func(r Resolver) (any, error)
	deps  []*Token
}

// Value creates a provider that yields a pre-built instance.
func Value(v any) Provider {
	return Provider{kind: kindValue, value: v}
}

// Factory creates a provider that calls fn with the resolved dependencies
// in positional order.
func Factory(fn func(deps ...any) (any, error), deps ...*Token) Provider {
	return Provider{kind: kindFactory, fn: fn, deps: deps}
}

// MapFactory creates a provider that calls fn with the resolved
// dependencies keyed by token.
func MapFactory(fn func(deps map[*Token]any) (any, error), deps ...*Token) Provider {
	return Provider{kind: kindMapFactory, mapFn: fn, deps: deps}
}

// Bind creates a provider that receives the resolver itself. The declared
// deps are still used for dependency inference and layering; fn must not
// resolve tokens outside that list.
func Bind(fn func(r Resolver) (any, error), deps ...*Token) Provider {
	return Provider{kind: kindBound, bound: fn, deps: deps}
}

// Dependencies returns the provider's declared injection list.
func (p Provider) Dependencies() []*Token {
	return p.deps
}

// valid reports whether the provider passed its construction shape check.
func (p Provider) valid() bool {
	switch p.kind {
	case kindValue:
		return true
	case kindFactory:
		return p.fn != nil
	case kindMapFactory:
		return p.mapFn != nil
	case kindBound:
		return p.bound != nil
	default:
		return false
	}
}

// construct runs the variant's single construction path.
func (p Provider) construct(r Resolver) (any, error) {
	switch p.kind {
	case kindValue:
		return p.value, nil
	case kindFactory:
		args := make([]any, len(p.deps))
		for i, d := range p.deps {
			v, err := r.Resolve(d)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return p.fn(args...)
	case kindMapFactory:
		args := make(map[*Token]any, len(p.deps))
		for _, d := range p.deps {
			v, err := r.Resolve(d)
			if err != nil {
				return nil, err
			}
			args[d] = v
		}
		return p.mapFn(args)
	case kindBound:
		return p.bound(r)
	default:
		return nil, nil
	}
}
