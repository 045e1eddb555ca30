package types

import "github.com/kestrel-lang/kestrel/lang/pattern"

// Pattern is a compiled matcher value. Patterns are immutable once
// compiled; two pattern values are equal when they share the same
// compiled matcher.
type Pattern struct {
	p *pattern.Pattern
}

// NewPattern wraps a compiled matcher as a value.
func NewPattern(p *pattern.Pattern) Pattern { return Pattern{p: p} }

// Compiled returns the underlying matcher.
func (p Pattern) Compiled() *pattern.Pattern { return p.p }

func (p Pattern) String() string { return p.p.String() }
func (p Pattern) Type() string   { return "pattern" }
func (p Pattern) Truth() bool    { return true }
