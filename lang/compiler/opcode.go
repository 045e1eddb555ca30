package compiler

import (
	"fmt"

	"github.com/kestrel-lang/kestrel/lang/ident"
	"github.com/kestrel-lang/kestrel/lang/pattern"
)

// Opcode is the instruction set of the machine.
//
// "x DUP x x" is a "stack picture" that describes the state of the
// stack before and after execution of the instruction.
type Opcode uint8

const ( //nolint:revive
	NIL Opcode = iota // - NIL nil

	// stack operations
	DUP  // x DUP x x
	DROP // x DROP -

	// constants
	PUSHI // - PUSHI<int> int
	PUSHS // - PUSHS<str> str
	PUSHN // - PUSHN<ident> symbol
	PAT   // - PAT<ast> pattern      (specializes payloads in the current frame)

	// local slots; the slot index must be below the frame's mark
	LOAD  //     - LOAD<src> value
	STORE // value STORE<dst> -
	MARK  //     - MARK<len> -       (sets mark, truncates locals to len)

	GLOBALS // - GLOBALS rec         (pushes the globals record)
	GROUP   // - GROUP<num> str      (pushes the capture group's text)

	// constructors
	LIST // x1 ... xn LIST<n> list
	REC  //         - REC rec
	STR  // x1 ... xn STR<n> str     (concatenates display forms)

	INS   // rhs idx lhs INS -       (lhs[idx] := rhs)
	BINOP //     lhs rhs BINOP<op> value
	NOT   //           x NOT bool

	CALL //  x1 ... xn CALL<name,n> result
	RET  //     result RET -

	JUMP //    - JUMP<dst> -
	JNZ  // cond JNZ<dst> -          (jumps if cond is truthy)

	ASSERT // cond ASSERT<expr> -    (fails with expr's source text if falsy)

	OpcodeMax = ASSERT
)

var opcodeNames = [...]string{
	ASSERT:  "assert",
	BINOP:   "binop",
	CALL:    "call",
	DROP:    "drop",
	DUP:     "dup",
	GLOBALS: "globals",
	GROUP:   "group",
	INS:     "ins",
	JNZ:     "jnz",
	JUMP:    "jump",
	LIST:    "list",
	LOAD:    "load",
	MARK:    "mark",
	NIL:     "nil",
	NOT:     "not",
	PAT:     "pat",
	PUSHI:   "pushi",
	PUSHN:   "pushn",
	PUSHS:   "pushs",
	REC:     "rec",
	RET:     "ret",
	STORE:   "store",
	STR:     "str",
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		m[s] = Opcode(op)
	}
	return m
}()

func (op Opcode) String() string {
	if op <= OpcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", uint8(op))
}

func isJump(op Opcode) bool {
	return op == JUMP || op == JNZ
}

// hasIntArg reports whether the opcode's argument is the plain
// integer operand (slot, count, group number or jump target).
func hasIntArg(op Opcode) bool {
	switch op {
	case PUSHI, LOAD, STORE, MARK, GROUP, LIST, STR, JUMP, JNZ:
		return true
	}
	return false
}

// Binop is the operator operand of the BINOP opcode.
type Binop uint8

const (
	ADD Binop = iota
	SUB
	DIV
	MUL
	IDX
	EQ
	NE
	MATCH

	BinopMax = MATCH
)

var binopNames = [...]string{
	ADD:   "add",
	SUB:   "sub",
	DIV:   "div",
	MUL:   "mul",
	IDX:   "idx",
	EQ:    "eq",
	NE:    "ne",
	MATCH: "match",
}

var reverseLookupBinop = func() map[string]Binop {
	m := make(map[string]Binop, len(binopNames))
	for op, s := range binopNames {
		m[s] = Binop(op)
	}
	return m
}()

func (op Binop) String() string {
	if op <= BinopMax {
		return binopNames[op]
	}
	return fmt.Sprintf("illegal binop (%d)", uint8(op))
}

// Instr is a single instruction. Jump targets are absolute indices
// into the enclosing code sequence; the assembler never emits an
// instruction whose label is unresolved.
type Instr struct {
	Op    Opcode
	Arg   int          // PUSHI, LOAD, STORE, MARK, GROUP, LIST, STR, JUMP, JNZ, CALL argc
	Name  *ident.Ident // PUSHN, CALL
	Str   string       // PUSHS, ASSERT
	Binop Binop        // BINOP
	Pat   *pattern.AST // PAT, local payloads resolved to slots
}

func (in Instr) String() string {
	switch {
	case in.Op == CALL:
		return fmt.Sprintf("%s %s %d", in.Op, in.Name, in.Arg)
	case in.Op == PUSHN:
		return fmt.Sprintf("%s %s", in.Op, in.Name)
	case in.Op == PUSHS || in.Op == ASSERT:
		return fmt.Sprintf("%s %q", in.Op, in.Str)
	case in.Op == BINOP:
		return fmt.Sprintf("%s %s", in.Op, in.Binop)
	case in.Op == PAT:
		return fmt.Sprintf("%s %s", in.Op, patOperand(in.Pat))
	case hasIntArg(in.Op):
		return fmt.Sprintf("%s %d", in.Op, in.Arg)
	default:
		return in.Op.String()
	}
}

// patOperand renders a pattern operand in the form the textual
// assembler reads back: slash-delimited with trailing flags.
func patOperand(p *pattern.AST) string {
	s := p.String()
	return s[len("re"):]
}
