package machine

import (
	"fmt"
	"strings"

	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/kestrel-lang/kestrel/lang/types"
)

// binary implements every BINOP operator except MATCH, which needs
// frame state.
func binary(op compiler.Binop, lhs, rhs types.Value) (types.Value, error) {
	switch op {
	case compiler.ADD:
		return add(lhs, rhs)
	case compiler.SUB:
		return sub(lhs, rhs)
	case compiler.DIV:
		return div(lhs, rhs)
	case compiler.MUL:
		return mul(lhs, rhs)
	case compiler.IDX:
		return index(lhs, rhs)
	case compiler.EQ:
		return types.Bool(types.Equal(lhs, rhs)), nil
	case compiler.NE:
		return types.Bool(!types.Equal(lhs, rhs)), nil
	default:
		return nil, fmt.Errorf("unimplemented binop: %s", op)
	}
}

func add(lhs, rhs types.Value) (types.Value, error) {
	switch lhs := lhs.(type) {
	case types.Int:
		ri, err := types.AsInt(rhs)
		if err != nil {
			return nil, err
		}
		return lhs + ri, nil

	case types.Str:
		return lhs + types.Str(rhs.String()), nil

	case *types.List:
		// non-destructive append: both operands are left untouched
		if rl, ok := rhs.(*types.List); ok {
			elems := make([]types.Value, 0, lhs.Len()+rl.Len())
			elems = append(elems, lhs.Elems()...)
			elems = append(elems, rl.Elems()...)
			return types.NewList(elems), nil
		}
		elems := make([]types.Value, 0, lhs.Len()+1)
		elems = append(elems, lhs.Elems()...)
		elems = append(elems, rhs)
		return types.NewList(elems), nil

	default:
		return nil, ErrIllegalAdd
	}
}

func sub(lhs, rhs types.Value) (types.Value, error) {
	li, err := types.AsInt(lhs)
	if err != nil {
		return nil, err
	}
	ri, err := types.AsInt(rhs)
	if err != nil {
		return nil, err
	}
	return li - ri, nil
}

func div(lhs, rhs types.Value) (types.Value, error) {
	ri, err := types.AsInt(rhs)
	if err != nil {
		return nil, err
	}
	if ri == 0 {
		return nil, ErrDividedByZero
	}
	li, err := types.AsInt(lhs)
	if err != nil {
		return nil, err
	}
	return li / ri, nil
}

func mul(lhs, rhs types.Value) (types.Value, error) {
	ri, err := types.AsInt(rhs)
	if err != nil {
		return nil, err
	}

	switch lhs := lhs.(type) {
	case types.Int:
		return lhs * ri, nil

	case types.Str:
		if ri < 0 {
			return nil, ErrNegativeRepetition
		}
		return types.Str(strings.Repeat(string(lhs), int(ri))), nil

	default:
		return nil, ErrIllegalMultiply
	}
}

func index(lhs, rhs types.Value) (types.Value, error) {
	switch lhs := lhs.(type) {
	case *types.List:
		i, err := types.AsInt(rhs)
		if err != nil {
			return nil, err
		}
		if i < 0 {
			return nil, ErrNegativeIndex
		}
		if int(i) >= lhs.Len() {
			return nil, ErrIndexOutOfBounds
		}
		return lhs.Index(int(i)), nil

	case *types.Record:
		sym, err := types.AsSymbol(rhs)
		if err != nil {
			return nil, err
		}
		v, ok := lhs.Get(sym.Ident())
		if !ok {
			return nil, ErrIndexOutOfBounds
		}
		return v, nil

	default:
		return nil, &types.MismatchError{Expected: "list|record", Found: lhs.Type()}
	}
}

// insert implements the INS opcode: lhs[idx] := rhs. Inserting at a
// list's length appends.
func insert(lhs, idx, rhs types.Value) error {
	switch lhs := lhs.(type) {
	case *types.List:
		i, err := types.AsInt(idx)
		if err != nil {
			return err
		}
		if i < 0 {
			return ErrNegativeIndex
		}
		switch {
		case int(i) < lhs.Len():
			lhs.SetIndex(int(i), rhs)
		case int(i) == lhs.Len():
			lhs.Append(rhs)
		default:
			return ErrIndexOutOfBounds
		}
		return nil

	case *types.Record:
		sym, err := types.AsSymbol(idx)
		if err != nil {
			return err
		}
		lhs.Set(sym.Ident(), rhs)
		return nil

	default:
		return &types.MismatchError{Expected: "list|record", Found: lhs.Type()}
	}
}
