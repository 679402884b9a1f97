package decompile

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/ir"
	"github.com/dhamidi/jbcm/opcode"
)

func asm(parts ...any) []byte {
	var out []byte
	for _, p := range parts {
		switch v := p.(type) {
		case opcode.Opcode:
			out = append(out, byte(v))
		case int:
			out = append(out, byte(v))
		case []byte:
			out = append(out, v...)
		}
	}
	return out
}

func s2(v int) []byte { return []byte{byte(v >> 8), byte(v)} }

func s4(v int) []byte { return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)} }

type fakePool struct {
	classes  map[uint16]string
	literals map[uint16]string
	refs     map[uint16]classfile.MemberRef
}

func (p fakePool) ClassName(index uint16) string { return p.classes[index] }

func (p fakePool) Literal(index uint16) (string, string, bool) {
	s, ok := p.literals[index]
	return strconv.Quote(s), "java.lang.String", ok
}

func (p fakePool) MemberRef(index uint16) (classfile.MemberRef, bool) {
	r, ok := p.refs[index]
	return r, ok
}

func (p fakePool) InvokeDynamic(index uint16) (string, string, bool) { return "", "", false }

func decompile(t *testing.T, m Method) *Result {
	t.Helper()
	if m.Class == "" {
		m.Class = "demo/Sample"
	}
	if m.Name == "" {
		m.Name = "run"
	}
	if m.Descriptor == "" {
		m.Descriptor = "()V"
	}
	opts := DefaultOptions()
	opts.EndComments = false
	res, err := New(opts).Method(m)
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	if res.Created != res.Deregistered {
		t.Errorf("created %d emitters, deregistered %d", res.Created, res.Deregistered)
	}
	return res
}

func checkSource(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("source =\n%s\nwant\n%s", got, want)
	}
}

func TestMethodStraightLine(t *testing.T) {
	code := asm(
		opcode.Iconst2,
		opcode.Istore1,
		opcode.Bipush, 6,
		opcode.Istore2,
		opcode.Iload1,
		opcode.Iload2,
		opcode.Imul,
		opcode.Istore3,
		opcode.Iinc, 3, 1,
		opcode.Return,
	)
	res := decompile(t, Method{Static: true, Code: code})
	checkSource(t, res.Source, "int i1 = 2;\nint i2 = 6;\nint i3 = i1 * i2;\ni3++;\nreturn;\n")
	if res.Created != 0 {
		t.Errorf("Created = %d, want 0", res.Created)
	}
}

func TestMethodLoops(t *testing.T) {
	t.Run("While", func(t *testing.T) {
		code := asm(
			opcode.Iconst0,         // 0
			opcode.Istore1,         // 1
			opcode.Iload1,          // 2
			opcode.Bipush, 10,      // 3
			opcode.IfIcmpge, s2(9), // 5 -> 14
			opcode.Iinc, 1, 1,      // 8
			opcode.Goto, s2(-9),    // 11 -> 2
			opcode.Return,          // 14
		)
		res := decompile(t, Method{Static: true, Code: code})
		checkSource(t, res.Source, "int i1 = 0;\nwhile(i1 < 10) {\n    i1++;\n}\nreturn;\n")
		if res.Created != 1 {
			t.Errorf("Created = %d, want 1", res.Created)
		}
	})

	t.Run("DoWhile", func(t *testing.T) {
		code := asm(
			opcode.Iconst0,         // 0
			opcode.Istore1,         // 1
			opcode.Iinc, 1, 1,      // 2
			opcode.Iload1,          // 5
			opcode.Bipush, 10,      // 6
			opcode.IfIcmplt, s2(-6), // 8 -> 2
			opcode.Return,          // 11
		)
		res := decompile(t, Method{Static: true, Code: code})
		checkSource(t, res.Source, "int i1 = 0;\ndo {\n    i1++;\n} while(i1 < 10);\nreturn;\n")
	})
}

func TestMethodIf(t *testing.T) {
	code := asm(
		opcode.Iload0,       // 0
		opcode.Ifle, s2(6),  // 1 -> 7
		opcode.Iinc, 0, 1,   // 4
		opcode.Return,       // 7
	)
	res := decompile(t, Method{Static: true, Descriptor: "(I)V", Code: code})
	checkSource(t, res.Source, "if(i1 <= 0) {\n    i1++;\n}\nreturn;\n")
	if len(res.Parameters) != 1 || res.Parameters[0].Name != "i1" {
		t.Errorf("Parameters = %v, want [i1]", res.Parameters)
	}
}

func TestMethodEndComments(t *testing.T) {
	code := asm(
		opcode.Iload0,      // 0
		opcode.Ifle, s2(6), // 1 -> 7
		opcode.Iinc, 0, 1,  // 4
		opcode.Return,      // 7
	)
	res, err := New(DefaultOptions()).Method(Method{
		Class: "demo/Sample", Name: "run", Descriptor: "(I)V", Static: true, Code: code,
	})
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	checkSource(t, res.Source, "if(i1 <= 0) {\n    i1++;\n} // end if(i1 <= 0)\nreturn;\n")
}

func TestMethodParameterNames(t *testing.T) {
	code := asm(opcode.Iload1, opcode.Ireturn)
	lvt := ir.LocalVariableTable{
		{Slot: 0, Name: "this", Type: "demo.Sample", StartPC: 0, Length: 2},
		{Slot: 1, Name: "count", Type: "int", StartPC: 0, Length: 2},
	}
	res := decompile(t, Method{Descriptor: "(I)I", Code: code, Locals: lvt})
	checkSource(t, res.Source, "return count;\n")
	if got := res.Parameters[1].Name; got != "count" {
		t.Errorf("parameter name = %q, want %q", got, "count")
	}
}

// tableSwitchCode is
//
//	switch(i1) { case 0: i2 = 1; case 1: i2 = 2; case 2: i2 = 3; default: i2 = 0; }
//
// with every case jumping to the return at 45. The default target is
// passed in so a test can point it at the end of the switch.
func tableSwitchCode(defaultTarget int) []byte {
	return asm(
		opcode.Iload0,         // 0
		opcode.Tableswitch, 0, 0, // 1, padding
		s4(defaultTarget-1), s4(0), s4(2),
		s4(27), s4(32), s4(37),
		opcode.Iconst1, opcode.Istore1, opcode.Goto, s2(15), // 28
		opcode.Iconst2, opcode.Istore1, opcode.Goto, s2(10), // 33
		opcode.Iconst3, opcode.Istore1, opcode.Goto, s2(5), // 38
		opcode.Iconst0, opcode.Istore1, // 43
		opcode.Return, // 45
	)
}

func TestMethodSwitch(t *testing.T) {
	t.Run("Table", func(t *testing.T) {
		res := decompile(t, Method{Static: true, Descriptor: "(I)V", Code: tableSwitchCode(43)})
		want := "switch(i1) {\n" +
			"case 0:\n    int i2 = 1;\n" +
			"case 1:\n    i2 = 2;\n" +
			"case 2:\n    i2 = 3;\n" +
			"default:\n    i2 = 0;\n" +
			"}\nreturn;\n"
		checkSource(t, res.Source, want)
		if res.Created != 1 || res.Deregistered != 1 {
			t.Errorf("created %d, deregistered %d, want 1 and 1", res.Created, res.Deregistered)
		}
	})

	t.Run("FallIntoDefault", func(t *testing.T) {
		code := asm(
			opcode.Iload0,            // 0
			opcode.Tableswitch, 0, 0, // 1, padding
			s4(22), s4(0), s4(0), // default 23, low 0, high 0
			s4(19),               // 20
			opcode.Iinc, 0, 1,    // 20
			opcode.Iinc, 0, 2,    // 23
			opcode.Return,        // 26
		)
		res := decompile(t, Method{Static: true, Descriptor: "(I)V", Code: code})
		want := "switch(i1) {\n" +
			"case 0:\n    i1++;\n" +
			"default:\n    i1 += 2;\n" +
			"}\nreturn;\n"
		checkSource(t, res.Source, want)
	})

	t.Run("DefaultAtEnd", func(t *testing.T) {
		res := decompile(t, Method{Static: true, Descriptor: "(I)V", Code: tableSwitchCode(45)})
		if strings.Contains(res.Source, "default:") {
			t.Errorf("source has a default label for a default that targets the end:\n%s", res.Source)
		}
		if n := strings.Count(res.Source, "}\n"); n != 1 {
			t.Errorf("switch closed %d times, want 1:\n%s", n, res.Source)
		}
	})
}

func TestMethodSynchronized(t *testing.T) {
	code := asm(
		opcode.Aload0,          // 0
		opcode.Dup,             // 1
		opcode.Astore2,         // 2
		opcode.Monitorenter,    // 3
		opcode.Iinc, 1, 1,      // 4
		opcode.Aload2,          // 7
		opcode.Monitorexit,     // 8
		opcode.Goto, s2(8),     // 9 -> 17
		opcode.Astore3,         // 12
		opcode.Aload2,          // 13
		opcode.Monitorexit,     // 14
		opcode.Aload3,          // 15
		opcode.Athrow,          // 16
		opcode.Return,          // 17
	)
	res := decompile(t, Method{
		Static:     true,
		Descriptor: "(Ljava/lang/Object;I)V",
		Code:       code,
		Exceptions: []ExceptionEntry{
			{Start: 4, End: 9, Handler: 12},
			{Start: 12, End: 15, Handler: 12},
		},
	})
	want := "java.lang.Object o2 = o1;\nsynchronized(o1) {\n    i1++;\n}\nreturn;\n"
	checkSource(t, res.Source, want)
	if strings.Contains(res.Source, "try") || strings.Contains(res.Source, "throw") {
		t.Errorf("synchronized handler leaked into the source:\n%s", res.Source)
	}
	if !hasDiagnostic(res, "covers its own handler") {
		t.Errorf("Diagnostics = %q, want the self-covering handler reported", res.Diagnostics)
	}
}

func hasDiagnostic(res *Result, part string) bool {
	for _, d := range res.Diagnostics {
		if strings.Contains(d, part) {
			return true
		}
	}
	return false
}

func TestMethodNestedSynchronized(t *testing.T) {
	code := asm(
		opcode.Aload0,       // 0
		opcode.Monitorenter, // 1
		opcode.Aload1,       // 2
		opcode.Monitorenter, // 3
		opcode.Aload1,       // 4
		opcode.Monitorexit,  // 5
		opcode.Aload0,       // 6
		opcode.Monitorexit,  // 7
		opcode.Return,       // 8
	)
	res := decompile(t, Method{
		Static:     true,
		Descriptor: "(Ljava/lang/Object;Ljava/lang/Object;)V",
		Code:       code,
	})
	if !hasDiagnostic(res, "closes 2 nested synchronized blocks") {
		t.Errorf("Diagnostics = %q, want the nested blocks reported", res.Diagnostics)
	}
}

func TestMethodTryCatch(t *testing.T) {
	code := asm(
		opcode.Iconst1,     // 0
		opcode.Istore0,     // 1
		opcode.Goto, s2(6), // 2 -> 8
		opcode.Astore1,     // 5
		opcode.Aload1,      // 6
		opcode.Athrow,      // 7
		opcode.Return,      // 8
	)
	res := decompile(t, Method{
		Static:     true,
		Code:       code,
		Exceptions: []ExceptionEntry{{Start: 0, End: 2, Handler: 5}},
	})
	want := "try {\n    int i1 = 1;\n} catch(Throwable t1) {\n    throw t1;\n}\nreturn;\n"
	checkSource(t, res.Source, want)
	if len(res.Diagnostics) != 0 {
		t.Errorf("Diagnostics = %q, want none", res.Diagnostics)
	}
}

func TestMethodObjects(t *testing.T) {
	pool := fakePool{
		classes:  map[uint16]string{2: "java/lang/StringBuilder"},
		literals: map[uint16]string{3: "hi"},
		refs: map[uint16]classfile.MemberRef{
			1: {Class: "java/lang/Object", Name: "<init>", Descriptor: "()V"},
			4: {Class: "java/lang/StringBuilder", Name: "<init>", Descriptor: "(Ljava/lang/String;)V"},
			5: {Class: "demo/Sample", Name: "sb", Descriptor: "Ljava/lang/StringBuilder;"},
			6: {Class: "java/lang/System", Name: "out", Descriptor: "Ljava/io/PrintStream;"},
			7: {Class: "java/io/PrintStream", Name: "println", Descriptor: "(Ljava/lang/Object;)V"},
		},
	}
	code := asm(
		opcode.Aload0,                 // 0
		opcode.Invokespecial, s2(1),   // 1
		opcode.Aload0,                 // 4
		opcode.New, s2(2),             // 5
		opcode.Dup,                    // 8
		opcode.Ldc, 3,                 // 9
		opcode.Invokespecial, s2(4),   // 11
		opcode.Putfield, s2(5),        // 14
		opcode.Getstatic, s2(6),       // 17
		opcode.Aload0,                 // 20
		opcode.Getfield, s2(5),        // 21
		opcode.Invokevirtual, s2(7),   // 24
		opcode.Return,                 // 27
	)
	res := decompile(t, Method{Name: "<init>", Code: code, Pool: pool})
	want := "this.sb = new java.lang.StringBuilder(\"hi\");\n" +
		"java.lang.System.out.println(this.sb);\n" +
		"return;\n"
	checkSource(t, res.Source, want)
}

func TestMethodArrays(t *testing.T) {
	code := asm(
		opcode.Iconst3,       // 0
		opcode.Newarray, 10,  // 1
		opcode.Astore0,       // 3
		opcode.Aload0,        // 4
		opcode.Iconst0,       // 5
		opcode.Bipush, 7,     // 6
		opcode.Iastore,       // 8
		opcode.Aload0,        // 9
		opcode.Arraylength,   // 10
		opcode.Istore1,       // 11
		opcode.Iinc, 1, 0xFE, // 12
		opcode.Return,        // 15
	)
	res := decompile(t, Method{Static: true, Code: code})
	want := "int[] iArr1 = new int[3];\n" +
		"iArr1[0] = 7;\n" +
		"int i1 = iArr1.length;\n" +
		"i1 -= 2;\n" +
		"return;\n"
	checkSource(t, res.Source, want)
}

func TestMethodErrors(t *testing.T) {
	d := New(DefaultOptions())
	t.Run("EmptyStack", func(t *testing.T) {
		_, err := d.Method(Method{Class: "demo/Sample", Name: "f", Descriptor: "()I", Static: true, Code: asm(opcode.Ireturn)})
		if !errors.Is(err, ir.ErrEmptyOperandStack) {
			t.Errorf("Method = %v, want ErrEmptyOperandStack", err)
		}
	})
	t.Run("BadDescriptor", func(t *testing.T) {
		_, err := d.Method(Method{Class: "demo/Sample", Name: "f", Descriptor: "(", Code: asm(opcode.Return)})
		if !errors.Is(err, classfile.ErrBadDescriptor) {
			t.Errorf("Method = %v, want ErrBadDescriptor", err)
		}
	})
	t.Run("NoPool", func(t *testing.T) {
		_, err := d.Method(Method{Class: "demo/Sample", Name: "f", Descriptor: "()V", Static: true, Code: asm(opcode.Ldc, 1, opcode.Pop, opcode.Return)})
		if !errors.Is(err, ErrBadConstant) {
			t.Errorf("Method = %v, want ErrBadConstant", err)
		}
		_, err = d.Method(Method{
			Class: "demo/Sample", Name: "g", Descriptor: "()V", Static: true,
			Code:       asm(opcode.Nop, opcode.Return),
			Exceptions: []ExceptionEntry{{Start: 0, End: 1, Handler: 1, CatchType: 4}},
		})
		if !errors.Is(err, ErrBadConstant) {
			t.Errorf("Method with a typed catch = %v, want ErrBadConstant", err)
		}
	})
	t.Run("Truncated", func(t *testing.T) {
		_, err := d.Method(Method{Class: "demo/Sample", Name: "f", Descriptor: "()V", Static: true, Code: asm(opcode.Bipush)})
		if !errors.Is(err, opcode.ErrTruncated) {
			t.Errorf("Method = %v, want ErrTruncated", err)
		}
	})
}
