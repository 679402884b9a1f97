package decompile

import (
	"github.com/dhamidi/jbcm/classfile"
)

// ConstantPool resolves the pool references made by instructions.
// classfile.ConstantPool satisfies it.
type ConstantPool interface {
	ClassName(index uint16) string
	Literal(index uint16) (text, typ string, ok bool)
	MemberRef(index uint16) (classfile.MemberRef, bool)
	InvokeDynamic(index uint16) (name, descriptor string, ok bool)
}

// ExceptionEntry is one row of a method's exception table with pc values
// widened to int. A zero CatchType catches everything.
type ExceptionEntry struct {
	Start, End, Handler int
	CatchType           uint16
}

func ExceptionEntries(code *classfile.Code) []ExceptionEntry {
	out := make([]ExceptionEntry, len(code.ExceptionTable))
	for i, h := range code.ExceptionTable {
		out[i] = ExceptionEntry{
			Start:     int(h.StartPC),
			End:       int(h.EndPC),
			Handler:   int(h.HandlerPC),
			CatchType: h.CatchType,
		}
	}
	return out
}

type Options struct {
	// IndentMark is written once per nesting level.
	IndentMark string
	// EndComments appends a comment naming the structure to closing braces.
	EndComments bool
	// Workers bounds how many methods of a class decompile at once.
	Workers int
	// MaxCodeSize skips methods with more code bytes than this; 0 means no
	// limit.
	MaxCodeSize int
}

func DefaultOptions() Options {
	return Options{
		IndentMark:  "    ",
		EndComments: true,
		Workers:     4,
		MaxCodeSize: 65535,
	}
}
