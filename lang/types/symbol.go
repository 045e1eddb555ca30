package types

import "github.com/kestrel-lang/kestrel/lang/ident"

// Symbol is an identifier used as a first-class value, written :name
// in source. Two symbols are equal when they hold the same interned
// handle.
type Symbol struct {
	id *ident.Ident
}

// NewSymbol returns the symbol for an interned identifier.
func NewSymbol(id *ident.Ident) Symbol { return Symbol{id: id} }

// Ident returns the symbol's interned identifier.
func (s Symbol) Ident() *ident.Ident { return s.id }

func (s Symbol) String() string { return s.id.Name() }
func (s Symbol) Type() string   { return "symbol" }
func (s Symbol) Truth() bool    { return true }
