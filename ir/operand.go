// Package ir holds the per-method model the decompiler mutates while it
// scans bytecode: parameters, local variable slots, the simulated operand
// stack and classified jump conditions.
package ir

import (
	"fmt"

	"github.com/dhamidi/jbcm/opcode"
)

// VariableInfo is an immutable local variable record. A variable without a
// type is a placeholder for a slot that has not been written yet.
type VariableInfo struct {
	Name      string
	Type      string
	Numbering int
}

func (v *VariableInfo) IsPlaceholder() bool { return v.Type == "" }

func (v *VariableInfo) String() string {
	if v.IsPlaceholder() {
		return v.Name
	}
	return v.Type + " " + v.Name
}

type ParameterSrc struct {
	Name      string
	Type      string
	Numbering int
}

// Operand is one value on the simulated operand stack. It either refers to
// a variable or carries a composed source expression.
type Operand struct {
	Var  *VariableInfo
	Expr string
	Type string
	Op   opcode.Opcode

	// Left and Right keep the two sides of an lcmp/fcmp/dcmp result so a
	// following ifXX can print them as a direct comparison.
	Left, Right string

	compound bool
}

func VarOperand(v *VariableInfo, op opcode.Opcode) Operand {
	return Operand{Var: v, Type: v.Type, Op: op}
}

func ExprOperand(expr, typ string, op opcode.Opcode) Operand {
	return Operand{Expr: expr, Type: typ, Op: op}
}

// CompoundOperand is an expression built from an operator; it is wrapped
// in parentheses when nested inside another operator expression.
func CompoundOperand(expr, typ string, op opcode.Opcode) Operand {
	return Operand{Expr: expr, Type: typ, Op: op, compound: true}
}

func CompareOperand(left, right string, op opcode.Opcode) Operand {
	return Operand{
		Expr:  fmt.Sprintf("%s(%s, %s)", op, left, right),
		Type:  "int",
		Op:    op,
		Left:  left,
		Right: right,
	}
}

func (o Operand) Expression() string {
	if o.Var != nil {
		return o.Var.Name
	}
	return o.Expr
}

// Nested renders the operand for use as a sub-expression.
func (o Operand) Nested() string {
	if o.compound {
		return "(" + o.Expression() + ")"
	}
	return o.Expression()
}

func (o Operand) IsCompare() bool { return o.Op.Is(opcode.Compare) }

// Category is 2 for long and double values, 1 otherwise.
func (o Operand) Category() int {
	if o.Type == "long" || o.Type == "double" {
		return 2
	}
	return 1
}

func (o Operand) Copy() Operand {
	return o
}

func (o Operand) String() string {
	return fmt.Sprintf("%s: %s", o.Type, o.Expression())
}
