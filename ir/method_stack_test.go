package ir

import (
	"errors"
	"testing"

	"github.com/dhamidi/jbcm/opcode"
)

func TestToInitials(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HashMap", "hm"},
		{"URLConnection", "uc"},
		{"StringBuilder", "sb"},
		{"ArrayList", "al"},
		{"my_value", "mv"},
		{"Outer$Inner", "oi"},
		{"String", "s"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ToInitials(tt.in); got != tt.want {
				t.Errorf("ToInitials(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		typ  string
		want string
	}{
		{"boolean", "bo"},
		{"int", "i"},
		{"double", "d"},
		{"java.util.List", "list"},
		{"java.util.Map", "map"},
		{"java.util.HashMap", "hm"},
		{"int[]", "iArr"},
		{"java.lang.String[][]", "sArr"},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := BaseName(tt.typ); got != tt.want {
				t.Errorf("BaseName(%q) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}
}

func TestMethodStackParameters(t *testing.T) {
	s := NewMethodStack("demo.Sample", "run", true)
	names := []string{
		s.AddParameterUnnamed("int"),
		s.AddParameterUnnamed("int"),
		s.AddParameterUnnamed("java.util.HashMap"),
		s.AddParameterUnnamed("long"),
		s.AddParameterUnnamed("boolean"),
	}
	want := []string{"i1", "i2", "hm1", "l1", "bo1"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("parameter %d = %q, want %q", i, names[i], want[i])
		}
	}

	p, err := s.GetParameter(0)
	if err != nil || p.Name != "this" {
		t.Errorf("GetParameter(0) = %+v, %v", p, err)
	}
	if got := s.ParameterCount(); got != 6 {
		t.Errorf("ParameterCount = %d, want 6", got)
	}
	// this, i1, i2, hm1, l1 (two slots), bo1
	if got := s.VariableCount(); got != 7 {
		t.Errorf("VariableCount = %d, want 7", got)
	}
	if v, ok := s.Local(6); !ok || v.Name != "bo1" {
		t.Errorf("Local(6) = %v, %v", v, ok)
	}
	if _, ok := s.Local(5); ok {
		t.Errorf("second slot of long should be a placeholder")
	}
}

func TestReverseIndex(t *testing.T) {
	s := NewMethodStack("demo.Sample", "run", false)
	s.AddOperand(ExprOperand("1", "int", opcode.Iconst1))
	s.AddOperand(ExprOperand("2", "int", opcode.Iconst2))

	if o, err := s.GetOperand(1); err != nil || o.Expression() != "2" {
		t.Errorf("GetOperand(1) = %v, %v", o, err)
	}
	// -1 resolves to size+1, which is always out of range.
	if _, err := s.GetOperand(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("GetOperand(-1) err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := s.GetVariable(-2); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("GetVariable(-2) err = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := s.GetParameter(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("GetParameter(-1) err = %v, want ErrIndexOutOfRange", err)
	}
}

func TestOperandStack(t *testing.T) {
	s := NewMethodStack("demo.Sample", "run", false)
	if _, err := s.PopOperand(); !errors.Is(err, ErrEmptyOperandStack) {
		t.Fatalf("PopOperand on empty stack err = %v", err)
	}

	v, err := s.SetVariable(1, "int", nil)
	if err != nil {
		t.Fatalf("SetVariable: %v", err)
	}
	first := s.AddOperand(VarOperand(v, opcode.Iload1))
	s.AddOperand(ExprOperand("6", "int", opcode.Bipush))

	top, err := s.PopOperand()
	if err != nil || top.Expression() != "6" {
		t.Fatalf("PopOperand = %v, %v", top, err)
	}
	next, err := s.PopOperand()
	if err != nil || next.Expression() != first.Expression() {
		t.Fatalf("PopOperand = %v, %v", next, err)
	}
	if s.OperandCount() != 0 {
		t.Errorf("OperandCount = %d, want 0", s.OperandCount())
	}

	c := first.Copy()
	c.Expr = "changed"
	if first.Expr == "changed" {
		t.Errorf("Copy aliases the original operand")
	}
}

func TestSetVariable(t *testing.T) {
	t.Run("Numbering", func(t *testing.T) {
		s := NewMethodStack("demo.Sample", "run", false)
		a, _ := s.SetVariable(1, "int", nil)
		b, _ := s.SetVariable(2, "int", nil)
		c, _ := s.SetVariable(3, "java.lang.String", nil)
		if a.Name != "i1" || b.Name != "i2" || c.Name != "s1" {
			t.Errorf("names = %q %q %q, want i1 i2 s1", a.Name, b.Name, c.Name)
		}
		slot0, err := s.GetVariable(0)
		if err != nil || slot0.Name != "varPlaceholder1" || !slot0.IsPlaceholder() {
			t.Errorf("slot 0 = %v, %v", slot0, err)
		}
	})

	t.Run("SharedBaseName", func(t *testing.T) {
		s := NewMethodStack("demo.Sample", "run", false)
		a, _ := s.SetVariable(0, "short", nil)
		b, _ := s.SetVariable(1, "java.lang.String", nil)
		if a.Name == b.Name {
			t.Errorf("short and String both named %q", a.Name)
		}
	})

	t.Run("LocalVariableTable", func(t *testing.T) {
		s := NewMethodStack("demo.Sample", "run", false)
		lvt := LocalVariableTable{
			{Slot: 0, Name: "args", Type: "java.lang.String[]"},
			{Slot: 1, Name: "count", Type: "int"},
		}
		v, err := s.SetVariable(3, "int", lvt)
		if err != nil {
			t.Fatalf("SetVariable: %v", err)
		}
		if v.Name != "i1" {
			t.Errorf("name = %q, want i1", v.Name)
		}
		want := []string{"args", "count", "varPlaceholder3", "i1"}
		for i, name := range want {
			got, err := s.GetVariable(i)
			if err != nil || got.Name != name {
				t.Errorf("slot %d = %v, %v, want %q", i, got, err, name)
			}
		}
	})

	t.Run("NegativeSlot", func(t *testing.T) {
		s := NewMethodStack("demo.Sample", "run", false)
		if _, err := s.SetVariable(-1, "int", nil); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("err = %v, want ErrIndexOutOfRange", err)
		}
	})
}
