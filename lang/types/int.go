package types

import "strconv"

// Int is the type of integer values, a signed 32-bit integer.
type Int int32

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }
func (i Int) Type() string   { return "int" }
func (i Int) Truth() bool    { return i != 0 }
