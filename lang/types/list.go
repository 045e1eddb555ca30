package types

import "strings"

// A *List is a mutable ordered sequence of values, shared by handle.
type List struct {
	elems []Value
}

// NewList returns a list containing the specified elements. Callers
// should not subsequently modify elems.
func NewList(elems []Value) *List { return &List{elems: elems} }

func (l *List) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range l.elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}

func (l *List) Type() string { return "list" }
func (l *List) Truth() bool  { return true }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.elems) }

// Index returns the element at i, which must satisfy 0 <= i < Len().
func (l *List) Index(i int) Value { return l.elems[i] }

// SetIndex assigns the element at i, which must satisfy 0 <= i < Len().
func (l *List) SetIndex(i int, v Value) { l.elems[i] = v }

// Append adds a value at the end of the list.
func (l *List) Append(v Value) { l.elems = append(l.elems, v) }

// Elems returns the backing slice. Callers must not retain it across
// mutations.
func (l *List) Elems() []Value { return l.elems }
