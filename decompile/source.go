package decompile

import (
	"fmt"
	"strings"
)

// SourceBuffer accumulates generated lines at a tracked indentation depth.
type SourceBuffer struct {
	mark  string
	depth int
	sb    strings.Builder
}

func NewSourceBuffer(mark string, depth int) *SourceBuffer {
	return &SourceBuffer{mark: mark, depth: depth}
}

func (b *SourceBuffer) Indent() { b.depth++ }

func (b *SourceBuffer) Dedent() {
	if b.depth > 0 {
		b.depth--
	}
}

func (b *SourceBuffer) Depth() int { return b.depth }

func (b *SourceBuffer) writeIndent(depth int) {
	for i := 0; i < depth; i++ {
		b.sb.WriteString(b.mark)
	}
}

func (b *SourceBuffer) Line(s string) {
	b.writeIndent(b.depth)
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
}

func (b *SourceBuffer) Linef(format string, args ...any) {
	b.Line(fmt.Sprintf(format, args...))
}

// Label writes s one level left of the current depth, the way case labels
// sit beside the statements they introduce.
func (b *SourceBuffer) Label(s string) {
	b.writeIndent(max(b.depth-1, 0))
	b.sb.WriteString(s)
	b.sb.WriteByte('\n')
}

// Close dedents and writes a closing brace followed by an optional comment.
func (b *SourceBuffer) Close(comment string) {
	b.Dedent()
	if comment == "" {
		b.Line("}")
		return
	}
	b.Line("} // " + comment)
}

// Raw appends already indented text.
func (b *SourceBuffer) Raw(s string) { b.sb.WriteString(s) }

func (b *SourceBuffer) Len() int { return b.sb.Len() }

func (b *SourceBuffer) String() string { return b.sb.String() }
