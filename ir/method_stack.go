package ir

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jbcm.ir")

var (
	ErrEmptyOperandStack = errors.New("pop from empty operand stack")
	ErrIndexOutOfRange   = errors.New("index out of range")
)

// MethodStack tracks the parameters, local variable slots and operand
// stack of one method while it is decompiled.
type MethodStack struct {
	ClassType  string
	MethodName string
	Instance   bool

	params   []ParameterSrc
	vars     []*VariableInfo
	operands []Operand
}

// NewMethodStack creates the scope for a method. Instance methods start
// with "this" in parameter and slot 0.
func NewMethodStack(classType, methodName string, instance bool) *MethodStack {
	s := &MethodStack{
		ClassType:  classType,
		MethodName: methodName,
		Instance:   instance,
	}
	if instance {
		s.params = append(s.params, ParameterSrc{Name: "this", Type: classType})
		s.vars = append(s.vars, &VariableInfo{Name: "this", Type: classType})
	}
	return s
}

// resolve maps an accessor index onto a list of length size. Negative
// indices resolve to size-idx, which is past the end for every negative
// input, so they always report ErrIndexOutOfRange. Callers that want the
// top of the stack use Peek instead.
func resolve(idx, size int) (int, error) {
	pos := idx
	if idx <= -1 {
		pos = size - idx
	}
	if pos < 0 || pos >= size {
		return 0, fmt.Errorf("%w: %d (resolved %d, size %d)", ErrIndexOutOfRange, idx, pos, size)
	}
	return pos, nil
}

func (s *MethodStack) ParameterCount() int { return len(s.params) }

func (s *MethodStack) Parameters() []ParameterSrc {
	return append([]ParameterSrc(nil), s.params...)
}

func (s *MethodStack) GetParameter(idx int) (ParameterSrc, error) {
	pos, err := resolve(idx, len(s.params))
	if err != nil {
		return ParameterSrc{}, fmt.Errorf("parameter: %w", err)
	}
	return s.params[pos], nil
}

func (s *MethodStack) VariableCount() int { return len(s.vars) }

func (s *MethodStack) GetVariable(idx int) (*VariableInfo, error) {
	pos, err := resolve(idx, len(s.vars))
	if err != nil {
		return nil, fmt.Errorf("variable: %w", err)
	}
	return s.vars[pos], nil
}

// Local returns the committed variable in slot, if any.
func (s *MethodStack) Local(slot int) (*VariableInfo, bool) {
	if slot < 0 || slot >= len(s.vars) || s.vars[slot].IsPlaceholder() {
		return nil, false
	}
	return s.vars[slot], true
}

func (s *MethodStack) OperandCount() int { return len(s.operands) }

func (s *MethodStack) GetOperand(idx int) (Operand, error) {
	pos, err := resolve(idx, len(s.operands))
	if err != nil {
		return Operand{}, fmt.Errorf("operand: %w", err)
	}
	return s.operands[pos].Copy(), nil
}

// Peek returns the operand on top of the stack without removing it.
func (s *MethodStack) Peek() (Operand, error) {
	if len(s.operands) == 0 {
		return Operand{}, ErrEmptyOperandStack
	}
	return s.operands[len(s.operands)-1].Copy(), nil
}

func (s *MethodStack) AddOperand(o Operand) Operand {
	s.operands = append(s.operands, o.Copy())
	return o
}

func (s *MethodStack) PopOperand() (Operand, error) {
	n := len(s.operands)
	if n == 0 {
		return Operand{}, ErrEmptyOperandStack
	}
	o := s.operands[n-1]
	s.operands = s.operands[:n-1]
	return o, nil
}

// PopOperands removes n operands and returns them in push order.
func (s *MethodStack) PopOperands(n int) ([]Operand, error) {
	if n > len(s.operands) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrEmptyOperandStack, n, len(s.operands))
	}
	start := len(s.operands) - n
	out := append([]Operand(nil), s.operands[start:]...)
	s.operands = s.operands[:start]
	return out, nil
}

// ClearOperands drops every operand; used when entering code whose
// incoming stack is known to be empty.
func (s *MethodStack) ClearOperands() {
	s.operands = s.operands[:0]
}

// nextNumber is one past the highest numbering used by a typed entry whose
// generated base name equals base.
func nextNumber[T any](entries []T, base string, get func(T) (string, int)) int {
	highest := 0
	for _, e := range entries {
		typ, n := get(e)
		if typ != "" && BaseName(typ) == base && n > highest {
			highest = n
		}
	}
	return highest + 1
}

// AddParameterUnnamed appends a parameter whose name is generated from its
// type ("i1", "i2", "str1", "hm1", ...) and returns that name. Long and
// double parameters also reserve their second slot.
func (s *MethodStack) AddParameterUnnamed(typ string) string {
	base := BaseName(typ)
	n := nextNumber(s.params, base, func(p ParameterSrc) (string, int) { return p.Type, p.Numbering })
	name := base + strconv.Itoa(n)

	s.params = append(s.params, ParameterSrc{Name: name, Type: typ, Numbering: n})
	s.vars = append(s.vars, &VariableInfo{Name: name, Type: typ, Numbering: n})
	if typ == "long" || typ == "double" {
		s.vars = append(s.vars, placeholder(len(s.vars)))
	}
	return name
}

// AddParameter appends a parameter with a known name.
func (s *MethodStack) AddParameter(name, typ string) {
	s.params = append(s.params, ParameterSrc{Name: name, Type: typ})
	s.vars = append(s.vars, &VariableInfo{Name: name, Type: typ})
	if typ == "long" || typ == "double" {
		s.vars = append(s.vars, placeholder(len(s.vars)))
	}
}

func placeholder(slot int) *VariableInfo {
	return &VariableInfo{Name: "varPlaceholder" + strconv.Itoa(slot+1)}
}

// SetVariable commits a new variable of type typ to slot index, naming it
// after its type. With a local variable table, slots beyond the current
// end are first filled with the table's names; remaining gaps up to index
// get placeholders.
func (s *MethodStack) SetVariable(index int, typ string, lvt LocalVariableTable) (*VariableInfo, error) {
	if index < 0 {
		return nil, fmt.Errorf("variable slot: %w: %d", ErrIndexOutOfRange, index)
	}
	base := BaseName(typ)
	n := nextNumber(s.vars, base, func(v *VariableInfo) (string, int) { return v.Type, v.Numbering })

	if lvt != nil {
		for i := len(s.vars); i < lvt.Len(); i++ {
			name := lvt.NameFor(i)
			if name == "" {
				s.vars = append(s.vars, placeholder(i))
				continue
			}
			s.vars = append(s.vars, &VariableInfo{Name: name})
		}
		if lvt.Len() <= index {
			log.Warningf("local variable table size (%d) is smaller than slot %d accessed in %s.%s",
				lvt.Len(), index, s.ClassType, s.MethodName)
		}
	}
	for i := len(s.vars); i <= index; i++ {
		s.vars = append(s.vars, placeholder(i))
	}

	v := &VariableInfo{Name: base + strconv.Itoa(n), Type: typ, Numbering: n}
	s.vars[index] = v
	return v, nil
}

// SetNamedVariable commits a variable with a name taken from debug
// information, padding the slots before it like SetVariable.
func (s *MethodStack) SetNamedVariable(index int, name, typ string) (*VariableInfo, error) {
	if index < 0 {
		return nil, fmt.Errorf("variable slot: %w: %d", ErrIndexOutOfRange, index)
	}
	for i := len(s.vars); i <= index; i++ {
		s.vars = append(s.vars, placeholder(i))
	}
	v := &VariableInfo{Name: name, Type: typ}
	s.vars[index] = v
	return v, nil
}
