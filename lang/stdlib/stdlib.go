// Package stdlib registers the standard library's native callables on
// an assembler: print, str, len, split, assert, assert_eq and new.
package stdlib

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kestrel-lang/kestrel/lang/compiler"
	"github.com/kestrel-lang/kestrel/lang/types"
)

// Register installs the standard library on asm. Output-producing
// functions write to stdout.
func Register(asm *compiler.Assembler, stdout io.Writer) error {
	natives := []struct {
		name string
		argc compiler.Argc
		fn   compiler.NativeFn
	}{
		{"print", compiler.AtLeast(1), func(args []types.Value) (types.Value, error) {
			parts := make([]string, len(args))
			for i, arg := range args {
				parts[i] = arg.String()
			}
			if _, err := fmt.Fprintln(stdout, strings.Join(parts, " ")); err != nil {
				return nil, err
			}
			return types.Nil, nil
		}},

		{"str", compiler.AtLeast(1), func(args []types.Value) (types.Value, error) {
			var b strings.Builder
			for _, arg := range args {
				b.WriteString(arg.String())
			}
			return types.Str(b.String()), nil
		}},

		{"len", compiler.Exactly(1), func(args []types.Value) (types.Value, error) {
			switch v := args[0].(type) {
			case types.Str:
				return types.Int(utf8.RuneCountInString(string(v))), nil
			case *types.List:
				return types.Int(v.Len()), nil
			case *types.Record:
				return types.Int(v.Len()), nil
			default:
				return nil, &types.MismatchError{Expected: "str|list|record", Found: v.Type()}
			}
		}},

		{"split", compiler.Exactly(2), func(args []types.Value) (types.Value, error) {
			s, err := types.AsStr(args[0])
			if err != nil {
				return nil, err
			}
			sep, err := types.AsStr(args[1])
			if err != nil {
				return nil, err
			}
			fields := strings.Split(string(s), string(sep))
			elems := make([]types.Value, len(fields))
			for i, f := range fields {
				elems[i] = types.Str(f)
			}
			return types.NewList(elems), nil
		}},

		{"assert", compiler.Exactly(1), func(args []types.Value) (types.Value, error) {
			if !args[0].Truth() {
				return nil, fmt.Errorf("assertion failed: %s", args[0])
			}
			return types.Nil, nil
		}},

		{"assert_eq", compiler.Exactly(2), func(args []types.Value) (types.Value, error) {
			if !types.Equal(args[0], args[1]) {
				return nil, fmt.Errorf("assertion failed: %s != %s", args[0], args[1])
			}
			return types.Nil, nil
		}},

		// new builds a record from alternating symbol keys and values;
		// the { key: value } literal compiles to a call to it.
		{"new", compiler.AtLeast(0), func(args []types.Value) (types.Value, error) {
			if len(args)%2 != 0 {
				return nil, fmt.Errorf("new requires symbol/value pairs, got %d arguments", len(args))
			}
			rec := types.NewRecord()
			for i := 0; i < len(args); i += 2 {
				key, err := types.AsSymbol(args[i])
				if err != nil {
					return nil, err
				}
				rec.Set(key.Ident(), args[i+1])
			}
			return rec, nil
		}},
	}

	for _, n := range natives {
		if err := asm.DefNative(n.name, n.argc, n.fn); err != nil {
			return err
		}
	}
	return nil
}
