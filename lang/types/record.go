package types

import (
	"sort"
	"strings"

	"github.com/dolthub/swiss"
	"github.com/kestrel-lang/kestrel/lang/ident"
)

// A *Record is a mutable unordered mapping from interned identifiers
// to values, shared by handle.
type Record struct {
	m *swiss.Map[*ident.Ident, Value]
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{m: swiss.NewMap[*ident.Ident, Value](8)}
}

func (r *Record) String() string {
	type pair struct {
		k string
		v Value
	}
	pairs := make([]pair, 0, r.m.Count())
	r.m.Iter(func(k *ident.Ident, v Value) bool {
		pairs = append(pairs, pair{k: k.Name(), v: v})
		return false
	})
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].k < pairs[j].k })

	if len(pairs) == 0 {
		return "{ }"
	}
	var b strings.Builder
	b.WriteString("{ ")
	for i, p := range pairs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.k)
		b.WriteString(": ")
		b.WriteString(p.v.String())
	}
	b.WriteString(" }")
	return b.String()
}

func (r *Record) Type() string { return "record" }
func (r *Record) Truth() bool  { return true }

// Len returns the number of entries.
func (r *Record) Len() int { return r.m.Count() }

// Get returns the value for key, if present.
func (r *Record) Get(key *ident.Ident) (Value, bool) {
	return r.m.Get(key)
}

// Set assigns the value for key, inserting it if absent.
func (r *Record) Set(key *ident.Ident, v Value) {
	r.m.Put(key, v)
}
