package pattern

import (
	"github.com/kestrel-lang/kestrel/lang/ident"
)

// Env supplies the current string values of variable payloads during
// specialization. LocalString reads the local at a slot index;
// GlobalString reads a global by name and must fail if it is not
// defined.
type Env interface {
	LocalString(slot int) (string, error)
	GlobalString(name *ident.Ident) (string, error)
}

// Pattern is a compiled matcher: an AST whose variable payloads have
// been substituted with their concrete string values. Patterns are
// immutable once compiled and may be shared freely.
type Pattern struct {
	ast *AST
}

// AST returns the underlying payload-free tree.
func (p *Pattern) AST() *AST { return p.ast }

func (p *Pattern) String() string { return p.ast.String() }

// Specialize binds the pattern's variable payloads to their current
// values in env, producing a compiled Pattern in which Raw and former
// payload leaves are both plain substring probes. Specializing the
// same AST against the same environment twice yields equal patterns.
func (a *AST) Specialize(env Env) (*Pattern, error) {
	root, err := specializeGroup(a.Root, env)
	if err != nil {
		return nil, err
	}
	return &Pattern{ast: &AST{Root: root, IgnoreCase: a.IgnoreCase}}, nil
}

func specializeGroup(g *Group, env Env) (*Group, error) {
	branches := make([]*Branch, len(g.Branches))
	for i, br := range g.Branches {
		out, err := specializeBranch(br, env)
		if err != nil {
			return nil, err
		}
		branches[i] = out
	}
	return &Group{Number: g.Number, Branches: branches}, nil
}

func specializeBranch(br *Branch, env Env) (*Branch, error) {
	leaves := make([]Leaf, len(br.Leaves))
	for i, lf := range br.Leaves {
		out, err := specializeLeaf(lf, env)
		if err != nil {
			return nil, err
		}
		leaves[i] = out
	}
	return &Branch{Leaves: leaves}, nil
}

func specializeLeaf(lf Leaf, env Env) (Leaf, error) {
	switch lf := lf.(type) {
	case *Local:
		s, err := env.LocalString(lf.Slot)
		if err != nil {
			return nil, err
		}
		return Raw{Text: s}, nil
	case *Global:
		s, err := env.GlobalString(lf.Name)
		if err != nil {
			return nil, err
		}
		return Raw{Text: s}, nil
	case *Group:
		return specializeGroup(lf, env)
	case *Repeat:
		prefix, err := specializeLeaf(lf.Prefix, env)
		if err != nil {
			return nil, err
		}
		suffix, err := specializeBranch(lf.Suffix, env)
		if err != nil {
			return nil, err
		}
		return &Repeat{Prefix: prefix, Times: lf.Times, Suffix: suffix}, nil
	default:
		return lf, nil
	}
}
