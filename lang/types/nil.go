package types

// NilType is the type of the Nil value.
type NilType struct{}

// Nil is the unit value.
var Nil = NilType{}

func (NilType) String() string { return "nil" }
func (NilType) Type() string   { return "nil" }
func (NilType) Truth() bool    { return false }
