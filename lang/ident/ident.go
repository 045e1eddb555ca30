// Package ident implements interned identifiers. An identifier is a
// string constrained to the grammar [alpha][alphanum_]*; interning maps
// equal text to a single shared handle so that equality and hashing of
// identifiers is pointer identity, not content comparison.
//
// Identifiers are used for function names, variable names, record keys
// and symbols.
package ident

import (
	"fmt"
	"unicode"

	"github.com/dolthub/swiss"
)

// Ident is an interned identifier. Two idents obtained from the same
// Table with equal text are the same pointer.
type Ident struct {
	name string
}

// Name returns the identifier's text.
func (id *Ident) Name() string { return id.name }

func (id *Ident) String() string { return id.name }

// An InvalidError is returned when a string does not satisfy the
// identifier grammar.
type InvalidError struct {
	Input string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid identifier %q", e.Input)
}

// Valid reports whether name satisfies the identifier grammar: an
// alphabetic first character followed by alphanumerics or underscores.
func Valid(name string) bool {
	for i, rn := range name {
		if i == 0 {
			if !unicode.IsLetter(rn) {
				return false
			}
			continue
		}
		if !unicode.IsLetter(rn) && !unicode.IsDigit(rn) && rn != '_' {
			return false
		}
	}
	return len(name) > 0
}

// Table interns identifiers. Inserts are idempotent: interning the same
// text twice returns the same handle. The zero value is not usable,
// call NewTable.
type Table struct {
	m *swiss.Map[string, *Ident]
}

// NewTable returns an empty intern table.
func NewTable() *Table {
	return &Table{m: swiss.NewMap[string, *Ident](16)}
}

// Intern returns the unique handle for name, creating it on first use.
// It fails if name is not a valid identifier.
func (t *Table) Intern(name string) (*Ident, error) {
	if id, ok := t.m.Get(name); ok {
		return id, nil
	}
	if !Valid(name) {
		return nil, &InvalidError{Input: name}
	}
	id := &Ident{name: name}
	t.m.Put(name, id)
	return id, nil
}

// Lookup returns the handle for name if it has been interned.
func (t *Table) Lookup(name string) (*Ident, bool) {
	return t.m.Get(name)
}

// Count returns the number of interned identifiers.
func (t *Table) Count() int { return t.m.Count() }
