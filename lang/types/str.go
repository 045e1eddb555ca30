package types

// Str is the type of string values: immutable sequences of UTF-8
// encoded text, compared by content.
type Str string

func (s Str) String() string { return string(s) }
func (s Str) Type() string   { return "str" }
func (s Str) Truth() bool    { return len(s) > 0 }
