// Package opcode describes the JVM instruction set: mnemonics, operand
// widths, behaviour flags and the source-level symbols the decompiler
// prints for comparisons and arithmetic.
package opcode

import "fmt"

type Opcode uint8

const (
	Nop Opcode = iota
	AconstNull
	IconstM1
	Iconst0
	Iconst1
	Iconst2
	Iconst3
	Iconst4
	Iconst5
	Lconst0
	Lconst1
	Fconst0
	Fconst1
	Fconst2
	Dconst0
	Dconst1
	Bipush
	Sipush
	Ldc
	LdcW
	Ldc2W
	Iload
	Lload
	Fload
	Dload
	Aload
	Iload0
	Iload1
	Iload2
	Iload3
	Lload0
	Lload1
	Lload2
	Lload3
	Fload0
	Fload1
	Fload2
	Fload3
	Dload0
	Dload1
	Dload2
	Dload3
	Aload0
	Aload1
	Aload2
	Aload3
	Iaload
	Laload
	Faload
	Daload
	Aaload
	Baload
	Caload
	Saload
	Istore
	Lstore
	Fstore
	Dstore
	Astore
	Istore0
	Istore1
	Istore2
	Istore3
	Lstore0
	Lstore1
	Lstore2
	Lstore3
	Fstore0
	Fstore1
	Fstore2
	Fstore3
	Dstore0
	Dstore1
	Dstore2
	Dstore3
	Astore0
	Astore1
	Astore2
	Astore3
	Iastore
	Lastore
	Fastore
	Dastore
	Aastore
	Bastore
	Castore
	Sastore
	Pop
	Pop2
	Dup
	DupX1
	DupX2
	Dup2
	Dup2X1
	Dup2X2
	Swap
	Iadd
	Ladd
	Fadd
	Dadd
	Isub
	Lsub
	Fsub
	Dsub
	Imul
	Lmul
	Fmul
	Dmul
	Idiv
	Ldiv
	Fdiv
	Ddiv
	Irem
	Lrem
	Frem
	Drem
	Ineg
	Lneg
	Fneg
	Dneg
	Ishl
	Lshl
	Ishr
	Lshr
	Iushr
	Lushr
	Iand
	Land
	Ior
	Lor
	Ixor
	Lxor
	Iinc
	I2l
	I2f
	I2d
	L2i
	L2f
	L2d
	F2i
	F2l
	F2d
	D2i
	D2l
	D2f
	I2b
	I2c
	I2s
	Lcmp
	Fcmpl
	Fcmpg
	Dcmpl
	Dcmpg
	Ifeq
	Ifne
	Iflt
	Ifge
	Ifgt
	Ifle
	IfIcmpeq
	IfIcmpne
	IfIcmplt
	IfIcmpge
	IfIcmpgt
	IfIcmple
	IfAcmpeq
	IfAcmpne
	Goto
	Jsr
	Ret
	Tableswitch
	Lookupswitch
	Ireturn
	Lreturn
	Freturn
	Dreturn
	Areturn
	Return
	Getstatic
	Putstatic
	Getfield
	Putfield
	Invokevirtual
	Invokespecial
	Invokestatic
	Invokeinterface
	Invokedynamic
	New
	Newarray
	Anewarray
	Arraylength
	Athrow
	Checkcast
	Instanceof
	Monitorenter
	Monitorexit
	Wide
	Multianewarray
	Ifnull
	Ifnonnull
	GotoW
	JsrW
)

type Flag uint32

const (
	Const Flag = 1 << iota
	Load
	Store
	ArrayLoad
	ArrayStore
	StackOp
	Math
	Negate
	Increment
	Convert
	Compare
	Jump
	Conditional
	Offset32
	Subroutine
	Exit
	Field
	Invoke
	Switch
	Throw
	Monitor
	Allocate
)

const Object = "java.lang.Object"

// Info is the static description of one opcode.
type Info struct {
	Name string
	// Operands is the number of operand bytes following the opcode, or -1
	// when the width depends on the instruction (wide, switches).
	Operands int
	Flags    Flag
	// Type is the value type the instruction loads, stores, produces or
	// compares.
	Type string
	// Slot is the implicit local variable index of the _n forms, -1 otherwise.
	Slot int
	// Const is the source literal pushed by constant opcodes.
	Const string
	// Symbol is the comparison or arithmetic operator; Inverse is the
	// logical negation of a comparison.
	Symbol  string
	Inverse string
	// Pops is the number of stack values a conditional or return consumes.
	Pops int
}

var table [256]Info

func (op Opcode) Valid() bool { return op <= JsrW }

func (op Opcode) Info() Info { return table[op] }

func (op Opcode) Is(f Flag) bool { return table[op].Flags&f != 0 }

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op_%d", uint8(op))
	}
	return table[op].Name
}

var typePrefixes = []struct {
	prefix string
	typ    string
}{
	{"i", "int"},
	{"l", "long"},
	{"f", "float"},
	{"d", "double"},
	{"a", Object},
}

var arrayElements = []struct {
	prefix string
	typ    string
}{
	{"i", "int"},
	{"l", "long"},
	{"f", "float"},
	{"d", "double"},
	{"a", Object},
	{"b", "byte"},
	{"c", "char"},
	{"s", "short"},
}

var inverse = map[string]string{
	"==": "!=",
	"!=": "==",
	"<":  ">=",
	">=": "<",
	">":  "<=",
	"<=": ">",
}

func def(op Opcode, name string, operands int, flags Flag) *Info {
	table[op] = Info{Name: name, Operands: operands, Flags: flags, Slot: -1}
	return &table[op]
}

func cond(op Opcode, name, symbol, typ string, pops int) {
	in := def(op, name, 2, Jump|Conditional)
	in.Symbol = symbol
	in.Inverse = inverse[symbol]
	in.Type = typ
	in.Pops = pops
}

func init() {
	def(Nop, "nop", 0, 0)

	c := def(AconstNull, "aconst_null", 0, Const)
	c.Type, c.Const = Object, "null"
	for i := -1; i <= 5; i++ {
		name := fmt.Sprintf("iconst_%d", i)
		if i < 0 {
			name = "iconst_m1"
		}
		c := def(IconstM1+Opcode(i+1), name, 0, Const)
		c.Type, c.Const = "int", fmt.Sprint(i)
	}
	for i := 0; i <= 1; i++ {
		c := def(Lconst0+Opcode(i), fmt.Sprintf("lconst_%d", i), 0, Const)
		c.Type, c.Const = "long", fmt.Sprintf("%dL", i)
		c = def(Dconst0+Opcode(i), fmt.Sprintf("dconst_%d", i), 0, Const)
		c.Type, c.Const = "double", fmt.Sprintf("%d.0", i)
	}
	for i := 0; i <= 2; i++ {
		c := def(Fconst0+Opcode(i), fmt.Sprintf("fconst_%d", i), 0, Const)
		c.Type, c.Const = "float", fmt.Sprintf("%d.0F", i)
	}
	def(Bipush, "bipush", 1, Const).Type = "int"
	def(Sipush, "sipush", 2, Const).Type = "int"
	def(Ldc, "ldc", 1, Const)
	def(LdcW, "ldc_w", 2, Const)
	def(Ldc2W, "ldc2_w", 2, Const)

	for k, p := range typePrefixes {
		def(Iload+Opcode(k), p.prefix+"load", 1, Load).Type = p.typ
		def(Istore+Opcode(k), p.prefix+"store", 1, Store).Type = p.typ
		for n := 0; n < 4; n++ {
			l := def(Iload0+Opcode(4*k+n), fmt.Sprintf("%sload_%d", p.prefix, n), 0, Load)
			l.Type, l.Slot = p.typ, n
			s := def(Istore0+Opcode(4*k+n), fmt.Sprintf("%sstore_%d", p.prefix, n), 0, Store)
			s.Type, s.Slot = p.typ, n
		}
		r := def(Ireturn+Opcode(k), p.prefix+"return", 0, Exit)
		r.Type, r.Pops = p.typ, 1
	}
	r := def(Return, "return", 0, Exit)
	r.Type = "void"

	for k, e := range arrayElements {
		def(Iaload+Opcode(k), e.prefix+"aload", 0, ArrayLoad).Type = e.typ
		def(Iastore+Opcode(k), e.prefix+"astore", 0, ArrayStore).Type = e.typ
	}

	def(Pop, "pop", 0, StackOp).Pops = 1
	def(Pop2, "pop2", 0, StackOp).Pops = 2
	def(Dup, "dup", 0, StackOp)
	def(DupX1, "dup_x1", 0, StackOp)
	def(DupX2, "dup_x2", 0, StackOp)
	def(Dup2, "dup2", 0, StackOp)
	def(Dup2X1, "dup2_x1", 0, StackOp)
	def(Dup2X2, "dup2_x2", 0, StackOp)
	def(Swap, "swap", 0, StackOp)

	arith := []struct{ name, symbol string }{
		{"add", "+"}, {"sub", "-"}, {"mul", "*"}, {"div", "/"}, {"rem", "%"},
	}
	for a, op := range arith {
		for k, p := range typePrefixes[:4] {
			m := def(Iadd+Opcode(4*a+k), p.prefix+op.name, 0, Math)
			m.Type, m.Symbol = p.typ, op.symbol
		}
	}
	for k, p := range typePrefixes[:4] {
		m := def(Ineg+Opcode(k), p.prefix+"neg", 0, Math|Negate)
		m.Type, m.Symbol = p.typ, "-"
	}
	bitwise := []struct{ name, symbol string }{
		{"shl", "<<"}, {"shr", ">>"}, {"ushr", ">>>"}, {"and", "&"}, {"or", "|"}, {"xor", "^"},
	}
	for b, op := range bitwise {
		for k, p := range typePrefixes[:2] {
			m := def(Ishl+Opcode(2*b+k), p.prefix+op.name, 0, Math)
			m.Type, m.Symbol = p.typ, op.symbol
		}
	}
	inc := def(Iinc, "iinc", 2, Increment)
	inc.Type = "int"

	conversions := []struct {
		op   Opcode
		name string
		typ  string
	}{
		{I2l, "i2l", "long"}, {I2f, "i2f", "float"}, {I2d, "i2d", "double"},
		{L2i, "l2i", "int"}, {L2f, "l2f", "float"}, {L2d, "l2d", "double"},
		{F2i, "f2i", "int"}, {F2l, "f2l", "long"}, {F2d, "f2d", "double"},
		{D2i, "d2i", "int"}, {D2l, "d2l", "long"}, {D2f, "d2f", "float"},
		{I2b, "i2b", "byte"}, {I2c, "i2c", "char"}, {I2s, "i2s", "short"},
	}
	for _, cv := range conversions {
		def(cv.op, cv.name, 0, Convert).Type = cv.typ
	}

	for op, name := range map[Opcode]string{Lcmp: "lcmp", Fcmpl: "fcmpl", Fcmpg: "fcmpg", Dcmpl: "dcmpl", Dcmpg: "dcmpg"} {
		def(op, name, 0, Compare).Type = "int"
	}

	symbols := []string{"==", "!=", "<", ">=", ">", "<="}
	suffixes := []string{"eq", "ne", "lt", "ge", "gt", "le"}
	for i, sym := range symbols {
		cond(Ifeq+Opcode(i), "if"+suffixes[i], sym, "int", 1)
		cond(IfIcmpeq+Opcode(i), "if_icmp"+suffixes[i], sym, "int", 2)
	}
	cond(IfAcmpeq, "if_acmpeq", "==", Object, 2)
	cond(IfAcmpne, "if_acmpne", "!=", Object, 2)
	cond(Ifnull, "ifnull", "==", Object, 1)
	cond(Ifnonnull, "ifnonnull", "!=", Object, 1)

	def(Goto, "goto", 2, Jump)
	def(GotoW, "goto_w", 4, Jump|Offset32)
	def(Jsr, "jsr", 2, Jump|Subroutine)
	def(JsrW, "jsr_w", 4, Jump|Subroutine|Offset32)
	def(Ret, "ret", 1, Subroutine)

	def(Tableswitch, "tableswitch", -1, Switch).Pops = 1
	def(Lookupswitch, "lookupswitch", -1, Switch).Pops = 1

	def(Getstatic, "getstatic", 2, Field)
	def(Putstatic, "putstatic", 2, Field)
	def(Getfield, "getfield", 2, Field)
	def(Putfield, "putfield", 2, Field)
	def(Invokevirtual, "invokevirtual", 2, Invoke)
	def(Invokespecial, "invokespecial", 2, Invoke)
	def(Invokestatic, "invokestatic", 2, Invoke)
	def(Invokeinterface, "invokeinterface", 4, Invoke)
	def(Invokedynamic, "invokedynamic", 4, Invoke)

	def(New, "new", 2, Allocate)
	def(Newarray, "newarray", 1, Allocate)
	def(Anewarray, "anewarray", 2, Allocate)
	def(Multianewarray, "multianewarray", 3, Allocate)
	def(Arraylength, "arraylength", 0, 0).Type = "int"
	def(Athrow, "athrow", 0, Throw).Pops = 1
	def(Checkcast, "checkcast", 2, 0)
	def(Instanceof, "instanceof", 2, 0).Type = "boolean"
	def(Monitorenter, "monitorenter", 0, Monitor).Pops = 1
	def(Monitorexit, "monitorexit", 0, Monitor).Pops = 1
	def(Wide, "wide", -1, 0)
}

// ArrayType maps the atype operand of newarray to its element type.
func ArrayType(atype int) string {
	switch atype {
	case 4:
		return "boolean"
	case 5:
		return "char"
	case 6:
		return "float"
	case 7:
		return "double"
	case 8:
		return "byte"
	case 9:
		return "short"
	case 10:
		return "int"
	case 11:
		return "long"
	}
	return Object
}
