package decompile

import (
	"context"
	"strings"
	"testing"

	"github.com/dhamidi/jbcm/classfile"
	"github.com/dhamidi/jbcm/opcode"
)

func codeAttr(code []byte) []classfile.Attribute {
	return []classfile.Attribute{{Name: "Code", Parsed: &classfile.Code{Bytes: code}}}
}

func sampleClass() *classfile.ClassFile {
	pool := classfile.ConstantPool{
		nil,
		{Tag: classfile.ConstantUtf8, Text: "demo/Sample"},
		{Tag: classfile.ConstantClass, Ref1: 1},
		{Tag: classfile.ConstantUtf8, Text: "java/lang/Object"},
		{Tag: classfile.ConstantClass, Ref1: 3},
		{Tag: classfile.ConstantInteger, Int: 10},
	}
	return &classfile.ClassFile{
		ConstantPool: pool,
		AccessFlags:  classfile.AccPublic,
		ThisClass:    2,
		SuperClass:   4,
		Fields: []classfile.Member{{
			AccessFlags: classfile.AccPrivate | classfile.AccStatic | classfile.AccFinal,
			Name:        "LIMIT",
			Descriptor:  "I",
			Attributes:  []classfile.Attribute{{Name: "ConstantValue", Parsed: uint16(5)}},
		}},
		Methods: []classfile.Member{
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "run",
				Descriptor:  "()V",
				Attributes:  codeAttr(asm(opcode.Iconst2, opcode.Istore0, opcode.Return)),
			},
			{
				AccessFlags: classfile.AccPublic | classfile.AccStatic,
				Name:        "broken",
				Descriptor:  "()I",
				Attributes:  codeAttr(asm(opcode.Ireturn)),
			},
			{
				AccessFlags: classfile.AccPublic | classfile.AccNative,
				Name:        "peek",
				Descriptor:  "(J)J",
			},
		},
	}
}

func TestClass(t *testing.T) {
	src, err := New(DefaultOptions()).Class(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Class: %v", err)
	}
	for _, want := range []string{
		"package demo;\n",
		"public class Sample {\n",
		"    private static final int LIMIT = 10;\n",
		"    public static void run() {\n        int i1 = 2;\n        return;\n    }\n",
		"    public static int broken() {\n        // decompilation failed: ",
		"    public native long peek(long l1);\n",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source is missing %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, "extends") {
		t.Errorf("source extends java.lang.Object explicitly:\n%s", src)
	}
	if !strings.HasSuffix(src, "}\n") {
		t.Errorf("source does not close the class:\n%s", src)
	}
}

func TestClassCodeTooLarge(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCodeSize = 2
	src, err := New(opts).Class(context.Background(), sampleClass())
	if err != nil {
		t.Fatalf("Class: %v", err)
	}
	if !strings.Contains(src, "// code too large to decompile (3 bytes)") {
		t.Errorf("source does not skip the large method:\n%s", src)
	}
}

func TestClassCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(DefaultOptions()).Class(ctx, sampleClass()); err == nil {
		t.Errorf("Class with a cancelled context succeeded")
	}
}
