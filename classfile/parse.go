package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"unicode/utf16"
)

type reader struct {
	r   io.Reader
	err error
}

func (r *reader) u1() uint8 {
	var buf [1]byte
	r.fill(buf[:])
	return buf[0]
}

func (r *reader) u2() uint16 {
	var buf [2]byte
	r.fill(buf[:])
	return binary.BigEndian.Uint16(buf[:])
}

func (r *reader) u4() uint32 {
	var buf [4]byte
	r.fill(buf[:])
	return binary.BigEndian.Uint32(buf[:])
}

func (r *reader) bytes(n int) []byte {
	buf := make([]byte, n)
	r.fill(buf)
	return buf
}

func (r *reader) fill(buf []byte) {
	if r.err != nil {
		return
	}
	_, r.err = io.ReadFull(r.r, buf)
}

func ParseFile(path string) (*ClassFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(rd io.Reader) (*ClassFile, error) {
	r := &reader{r: rd}

	if magic := r.u4(); r.err != nil {
		return nil, fmt.Errorf("read magic: %w", r.err)
	} else if magic != Magic {
		return nil, fmt.Errorf("invalid magic number: 0x%X", magic)
	}

	cf := &ClassFile{
		MinorVersion: r.u2(),
		MajorVersion: r.u2(),
	}

	count := r.u2()
	if r.err != nil {
		return nil, fmt.Errorf("read header: %w", r.err)
	}
	cf.ConstantPool = make(ConstantPool, max(int(count), 1))
	for i := 1; i < int(count); i++ {
		c, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		cf.ConstantPool[i] = c
		if c.Tag.Wide() {
			i++
		}
	}
	cp := cf.ConstantPool

	cf.AccessFlags = AccessFlags(r.u2())
	cf.ThisClass = r.u2()
	cf.SuperClass = r.u2()
	cf.Interfaces = make([]uint16, r.u2())
	for i := range cf.Interfaces {
		cf.Interfaces[i] = r.u2()
	}
	if r.err != nil {
		return nil, fmt.Errorf("read class info: %w", r.err)
	}

	var err error
	if cf.Fields, err = readMembers(r, cp); err != nil {
		return nil, fmt.Errorf("read fields: %w", err)
	}
	if cf.Methods, err = readMembers(r, cp); err != nil {
		return nil, fmt.Errorf("read methods: %w", err)
	}
	if cf.Attributes, err = readAttributes(r, cp); err != nil {
		return nil, fmt.Errorf("read class attributes: %w", err)
	}
	return cf, nil
}

func readConstant(r *reader) (*Constant, error) {
	c := &Constant{Tag: ConstantTag(r.u1())}
	switch c.Tag {
	case ConstantUtf8:
		c.Text = decodeModifiedUtf8(r.bytes(int(r.u2())))
	case ConstantInteger:
		c.Int = int64(int32(r.u4()))
	case ConstantFloat:
		c.Float = float64(math.Float32frombits(r.u4()))
	case ConstantLong:
		hi, lo := r.u4(), r.u4()
		c.Int = int64(uint64(hi)<<32 | uint64(lo))
	case ConstantDouble:
		hi, lo := r.u4(), r.u4()
		c.Float = math.Float64frombits(uint64(hi)<<32 | uint64(lo))
	case ConstantClass, ConstantString, ConstantMethodType, ConstantModule, ConstantPackage:
		c.Ref1 = r.u2()
	case ConstantFieldref, ConstantMethodref, ConstantInterfaceMethodref,
		ConstantNameAndType, ConstantDynamic, ConstantInvokeDynamic:
		c.Ref1, c.Ref2 = r.u2(), r.u2()
	case ConstantMethodHandle:
		c.Kind = r.u1()
		c.Ref1 = r.u2()
	default:
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("unknown constant pool tag: %d", c.Tag)
	}
	if r.err != nil {
		return nil, r.err
	}
	return c, nil
}

func readMembers(r *reader, cp ConstantPool) ([]Member, error) {
	members := make([]Member, r.u2())
	for i := range members {
		m := &members[i]
		m.AccessFlags = AccessFlags(r.u2())
		m.Name = cp.Utf8(r.u2())
		m.Descriptor = cp.Utf8(r.u2())
		attrs, err := readAttributes(r, cp)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		m.Attributes = attrs
	}
	return members, r.err
}

func readAttributes(r *reader, cp ConstantPool) ([]Attribute, error) {
	attrs := make([]Attribute, r.u2())
	for i := range attrs {
		a := &attrs[i]
		a.Name = cp.Utf8(r.u2())
		a.Info = r.bytes(int(r.u4()))
		if r.err != nil {
			return nil, r.err
		}
		parsed, err := parseAttribute(a.Name, a.Info, cp)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", a.Name, err)
		}
		a.Parsed = parsed
	}
	return attrs, r.err
}

// parseAttribute decodes the attributes the decompiler consumes; anything
// else is kept as raw bytes only.
func parseAttribute(name string, info []byte, cp ConstantPool) (any, error) {
	r := &reader{r: bytes.NewReader(info)}
	var parsed any
	switch name {
	case "Code":
		code := &Code{MaxStack: r.u2(), MaxLocals: r.u2()}
		code.Bytes = r.bytes(int(r.u4()))
		code.ExceptionTable = make([]ExceptionHandler, r.u2())
		for i := range code.ExceptionTable {
			code.ExceptionTable[i] = ExceptionHandler{
				StartPC:   r.u2(),
				EndPC:     r.u2(),
				HandlerPC: r.u2(),
				CatchType: r.u2(),
			}
		}
		if r.err != nil {
			return nil, r.err
		}
		attrs, err := readAttributes(r, cp)
		if err != nil {
			return nil, err
		}
		code.Attributes = attrs
		parsed = code
	case "LocalVariableTable":
		vars := make([]LocalVariable, r.u2())
		for i := range vars {
			vars[i] = LocalVariable{
				StartPC:    r.u2(),
				Length:     r.u2(),
				Name:       cp.Utf8(r.u2()),
				Descriptor: cp.Utf8(r.u2()),
				Slot:       r.u2(),
			}
		}
		parsed = vars
	case "LineNumberTable":
		lines := make([]LineNumber, r.u2())
		for i := range lines {
			lines[i] = LineNumber{StartPC: r.u2(), Line: r.u2()}
		}
		parsed = lines
	case "SourceFile":
		parsed = cp.Utf8(r.u2())
	case "ConstantValue":
		parsed = r.u2()
	case "Exceptions":
		names := make([]string, r.u2())
		for i := range names {
			names[i] = cp.ClassName(r.u2())
		}
		parsed = names
	default:
		return nil, nil
	}
	return parsed, r.err
}

func decodeModifiedUtf8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c&0x80 == 0:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, uint16(c))
			i++
		}
	}
	return string(utf16.Decode(units))
}
