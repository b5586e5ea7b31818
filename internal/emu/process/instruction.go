// Package process implements the per-process instruction interpreter of
// spec.md §4.3: instruction set, symbol table, and step() state machine.
package process

// OperandKind distinguishes a variable reference from an immediate literal,
// the "variant operand" sum type spec.md §9 calls for.
type OperandKind int

const (
	OperandImmediate OperandKind = iota
	OperandVariable
)

// Operand is either a literal u16 or a reference to a symbol-table variable.
type Operand struct {
	Kind    OperandKind
	Literal uint16
	Name    string
}

// Imm builds an immediate operand.
func Imm(v uint16) Operand { return Operand{Kind: OperandImmediate, Literal: v} }

// Var builds a variable-reference operand.
func Var(name string) Operand { return Operand{Kind: OperandVariable, Name: name} }

// Instr is implemented by every instruction kind.
type Instr interface{ isInstr() }

// Declare sets symbolTable[Var] := clamp(Value), auto-creating the entry.
type Declare struct {
	Var   string
	Value uint16
}

func (Declare) isInstr() {}

// Add computes Dst := saturating_add(A, B).
type Add struct {
	Dst  string
	A, B Operand
}

func (Add) isInstr() {}

// Sub computes Dst := saturating_sub(A, B).
type Sub struct {
	Dst  string
	A, B Operand
}

func (Sub) isInstr() {}

// PrintKind selects one of the four PRINT variants (spec.md §4.3).
type PrintKind int

const (
	PrintHello PrintKind = iota
	PrintLiteral
	PrintVariable
	PrintExpression
)

// PrintToken is one `+`-joined part of a PRINT(Expression, ...) instruction:
// either a quoted literal or a variable reference.
type PrintToken struct {
	IsVar   bool
	Literal string
	Var     string
}

// Print appends a formatted string to the process's log.
type Print struct {
	Kind PrintKind
	// Literal carries the text for PrintLiteral.
	Literal string
	// Var carries the variable name for PrintVariable.
	Var string
	// Expr carries the token sequence for PrintExpression.
	Expr []PrintToken
}

func (Print) isInstr() {}

// Sleep parks the process for Ticks additional ticks.
type Sleep struct {
	Ticks uint8
}

func (Sleep) isInstr() {}

// Read loads a u16 from virtual memory into symbolTable[Dst].
type Read struct {
	Dst  string
	Addr Operand
}

func (Read) isInstr() {}

// Write stores a u16 value into virtual memory.
type Write struct {
	Addr  Operand
	Value Operand
}

func (Write) isInstr() {}

// Flatten expands FOR(body, count) into count consecutive copies of body,
// recursively for nested FORs, per spec.md §9's flattening realization. It is
// a build-time helper for callers assembling instruction lists (e.g. tests,
// or a batch-workload generator upstream of this core); the interpreter
// itself never sees a structured loop instruction.
func Flatten(body []Instr, count int) []Instr {
	if count < 0 {
		count = 0
	}
	out := make([]Instr, 0, len(body)*count)
	for i := 0; i < count; i++ {
		out = append(out, body...)
	}
	return out
}
