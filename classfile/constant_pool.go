package classfile

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Constant is one constant pool entry. Reference entries keep their pool
// indices in Ref1 and Ref2 (class/name_and_type, name/descriptor, ...).
type Constant struct {
	Tag   ConstantTag
	Ref1  uint16
	Ref2  uint16
	Kind  uint8
	Int   int64
	Float float64
	Text  string
}

// ConstantPool is indexed from 1 like the class file; slot 0 and the slot
// following a long or double entry are nil.
type ConstantPool []*Constant

func (cp ConstantPool) Entry(index uint16) *Constant {
	if int(index) >= len(cp) {
		return nil
	}
	return cp[index]
}

func (cp ConstantPool) entry(index uint16, tag ConstantTag) (*Constant, bool) {
	c := cp.Entry(index)
	if c == nil || c.Tag != tag {
		return nil, false
	}
	return c, true
}

func (cp ConstantPool) Utf8(index uint16) string {
	if c, ok := cp.entry(index, ConstantUtf8); ok {
		return c.Text
	}
	return ""
}

// ClassName returns the internal (slash separated) name of a CONSTANT_Class.
func (cp ConstantPool) ClassName(index uint16) string {
	if c, ok := cp.entry(index, ConstantClass); ok {
		return cp.Utf8(c.Ref1)
	}
	return ""
}

func (cp ConstantPool) NameAndType(index uint16) (name, descriptor string) {
	if c, ok := cp.entry(index, ConstantNameAndType); ok {
		return cp.Utf8(c.Ref1), cp.Utf8(c.Ref2)
	}
	return "", ""
}

// MemberRef is a resolved field, method or interface method reference.
type MemberRef struct {
	Class      string
	Name       string
	Descriptor string
}

func (cp ConstantPool) MemberRef(index uint16) (MemberRef, bool) {
	c := cp.Entry(index)
	if c == nil {
		return MemberRef{}, false
	}
	switch c.Tag {
	case ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref:
		name, desc := cp.NameAndType(c.Ref2)
		return MemberRef{Class: cp.ClassName(c.Ref1), Name: name, Descriptor: desc}, true
	}
	return MemberRef{}, false
}

// InvokeDynamic resolves the call site name and descriptor of a
// CONSTANT_InvokeDynamic entry.
func (cp ConstantPool) InvokeDynamic(index uint16) (name, descriptor string, ok bool) {
	c, ok := cp.entry(index, ConstantInvokeDynamic)
	if !ok {
		return "", "", false
	}
	name, descriptor = cp.NameAndType(c.Ref2)
	return name, descriptor, true
}

// Literal renders a loadable constant as a source literal together with
// its source type.
func (cp ConstantPool) Literal(index uint16) (text, typ string, ok bool) {
	c := cp.Entry(index)
	if c == nil {
		return "", "", false
	}
	switch c.Tag {
	case ConstantInteger:
		return strconv.FormatInt(c.Int, 10), "int", true
	case ConstantLong:
		return strconv.FormatInt(c.Int, 10) + "L", "long", true
	case ConstantFloat:
		return floatLiteral(c.Float, 32, "F"), "float", true
	case ConstantDouble:
		return floatLiteral(c.Float, 64, ""), "double", true
	case ConstantString:
		return strconv.Quote(cp.Utf8(c.Ref1)), "java.lang.String", true
	case ConstantClass:
		return ClassType(cp.Utf8(c.Ref1)).String() + ".class", "java.lang.Class", true
	case ConstantMethodType:
		return strconv.Quote(cp.Utf8(c.Ref1)), "java.lang.invoke.MethodType", true
	case ConstantMethodHandle:
		ref, _ := cp.MemberRef(c.Ref1)
		return fmt.Sprintf("%s::%s", SourceName(ref.Class), ref.Name), "java.lang.invoke.MethodHandle", true
	case ConstantDynamic:
		name, desc := cp.NameAndType(c.Ref2)
		t, _, err := ParseType(desc)
		if err != nil {
			return name, "java.lang.Object", true
		}
		return name, t.String(), true
	}
	return "", "", false
}

func floatLiteral(v float64, bits int, suffix string) string {
	box := "Double"
	if bits == 32 {
		box = "Float"
	}
	switch {
	case math.IsNaN(v):
		return box + ".NaN"
	case math.IsInf(v, 1):
		return box + ".POSITIVE_INFINITY"
	case math.IsInf(v, -1):
		return box + ".NEGATIVE_INFINITY"
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s + suffix
}
