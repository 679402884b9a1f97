package classfile

import (
	"errors"
	"fmt"
	"strings"
)

var ErrBadDescriptor = errors.New("malformed descriptor")

// Type is a field type taken from a descriptor. Exactly one of Base and
// Class is set; Dims counts array dimensions.
type Type struct {
	Base  string
	Class string
	Dims  int
}

// ClassType builds a Type from an internal class name. Array class names
// ("[I", "[Ljava/lang/String;") are decoded as descriptors.
func ClassType(internal string) Type {
	if strings.HasPrefix(internal, "[") {
		if t, _, err := ParseType(internal); err == nil {
			return t
		}
	}
	return Type{Class: internal}
}

// String renders the type as it appears in Java source, e.g. "int[]" or
// "java.util.Map".
func (t Type) String() string {
	var sb strings.Builder
	if t.Base != "" {
		sb.WriteString(t.Base)
	} else {
		sb.WriteString(SourceName(t.Class))
	}
	for i := 0; i < t.Dims; i++ {
		sb.WriteString("[]")
	}
	return sb.String()
}

func (t Type) IsPrimitive() bool { return t.Base != "" && t.Dims == 0 }

// Slots is the number of local variable slots a value of this type uses.
func (t Type) Slots() int {
	if t.Dims == 0 && (t.Base == "long" || t.Base == "double") {
		return 2
	}
	return 1
}

type MethodType struct {
	Params []Type
	Return Type
}

var baseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// ParseType decodes one field type at the start of desc and reports how
// many bytes it consumed.
func ParseType(desc string) (Type, int, error) {
	var t Type
	i := 0
	for i < len(desc) && desc[i] == '[' {
		t.Dims++
		i++
	}
	if i >= len(desc) {
		return Type{}, 0, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	if desc[i] == 'L' {
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return Type{}, 0, fmt.Errorf("%w: unterminated class in %q", ErrBadDescriptor, desc)
		}
		t.Class = desc[i+1 : i+end]
		return t, i + end + 1, nil
	}
	base, ok := baseTypes[desc[i]]
	if !ok || (base == "void" && t.Dims > 0) {
		return Type{}, 0, fmt.Errorf("%w: unexpected %q in %q", ErrBadDescriptor, desc[i], desc)
	}
	t.Base = base
	return t, i + 1, nil
}

func ParseMethodType(desc string) (MethodType, error) {
	if !strings.HasPrefix(desc, "(") {
		return MethodType{}, fmt.Errorf("%w: %q", ErrBadDescriptor, desc)
	}
	var mt MethodType
	rest := desc[1:]
	for !strings.HasPrefix(rest, ")") {
		if rest == "" {
			return MethodType{}, fmt.Errorf("%w: unterminated parameters in %q", ErrBadDescriptor, desc)
		}
		t, n, err := ParseType(rest)
		if err != nil {
			return MethodType{}, err
		}
		mt.Params = append(mt.Params, t)
		rest = rest[n:]
	}
	ret, n, err := ParseType(rest[1:])
	if err != nil {
		return MethodType{}, err
	}
	if n != len(rest)-1 {
		return MethodType{}, fmt.Errorf("%w: trailing data in %q", ErrBadDescriptor, desc)
	}
	mt.Return = ret
	return mt, nil
}

func SourceName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// SimpleName strips the package and any enclosing class from a source or
// internal class name.
func SimpleName(name string) string {
	if i := strings.LastIndexAny(name, "./$"); i >= 0 && i < len(name)-1 {
		return name[i+1:]
	}
	return name
}
