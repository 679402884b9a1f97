package classfile

type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool ConstantPool
	AccessFlags  AccessFlags
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Member
	Methods      []Member
	Attributes   []Attribute
}

func (cf *ClassFile) ClassName() string {
	return cf.ConstantPool.ClassName(cf.ThisClass)
}

func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	return cf.ConstantPool.ClassName(cf.SuperClass)
}

func (cf *ClassFile) InterfaceNames() []string {
	names := make([]string, len(cf.Interfaces))
	for i, idx := range cf.Interfaces {
		names[i] = cf.ConstantPool.ClassName(idx)
	}
	return names
}

func (cf *ClassFile) SourceFile() string {
	if a := findAttribute(cf.Attributes, "SourceFile"); a != nil {
		if name, ok := a.Parsed.(string); ok {
			return name
		}
	}
	return ""
}

// Method looks up a method by name, and by descriptor when one is given.
func (cf *ClassFile) Method(name, descriptor string) *Member {
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if m.Name == name && (descriptor == "" || m.Descriptor == descriptor) {
			return m
		}
	}
	return nil
}

// Member is a field_info or method_info with its name and descriptor
// already resolved against the constant pool.
type Member struct {
	AccessFlags AccessFlags
	Name        string
	Descriptor  string
	Attributes  []Attribute
}

func (m *Member) Attribute(name string) *Attribute {
	return findAttribute(m.Attributes, name)
}

func (m *Member) Code() *Code {
	if a := m.Attribute("Code"); a != nil {
		if code, ok := a.Parsed.(*Code); ok {
			return code
		}
	}
	return nil
}

// Throws lists the internal names from the Exceptions attribute.
func (m *Member) Throws() []string {
	if a := m.Attribute("Exceptions"); a != nil {
		if names, ok := a.Parsed.([]string); ok {
			return names
		}
	}
	return nil
}

// ConstantValue is the pool index of a field's ConstantValue attribute, or 0.
func (m *Member) ConstantValue() uint16 {
	if a := m.Attribute("ConstantValue"); a != nil {
		if idx, ok := a.Parsed.(uint16); ok {
			return idx
		}
	}
	return 0
}

type Attribute struct {
	Name   string
	Info   []byte
	Parsed any
}

func findAttribute(attrs []Attribute, name string) *Attribute {
	for i := range attrs {
		if attrs[i].Name == name {
			return &attrs[i]
		}
	}
	return nil
}

type Code struct {
	MaxStack       uint16
	MaxLocals      uint16
	Bytes          []byte
	ExceptionTable []ExceptionHandler
	Attributes     []Attribute
}

type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

type LocalVariable struct {
	StartPC    uint16
	Length     uint16
	Name       string
	Descriptor string
	Slot       uint16
}

type LineNumber struct {
	StartPC uint16
	Line    uint16
}

// LocalVariables merges every LocalVariableTable attribute of the code.
func (c *Code) LocalVariables() []LocalVariable {
	var vars []LocalVariable
	for _, a := range c.Attributes {
		if lvt, ok := a.Parsed.([]LocalVariable); ok {
			vars = append(vars, lvt...)
		}
	}
	return vars
}

func (c *Code) LineNumbers() []LineNumber {
	var lines []LineNumber
	for _, a := range c.Attributes {
		if lnt, ok := a.Parsed.([]LineNumber); ok {
			lines = append(lines, lnt...)
		}
	}
	return lines
}
