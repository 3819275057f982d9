package container

// Token identifies a component contract. Tokens are compared by identity:
// two tokens created with the same name are distinct. The name exists only
// for diagnostics and registry keys; tokens are never serialized.
type Token struct {
	name string
}

// NewToken creates a new, unique token with the given diagnostic name.
func NewToken(name string) *Token {
	return &Token{name: name}
}

// Name returns the token's diagnostic name.
func (t *Token) Name() string {
	return t.name
}

// String implements fmt.Stringer.
func (t *Token) String() string {
	return t.name
}
