package decompile

import (
	"fmt"

	"github.com/dhamidi/jbcm/flow"
	"github.com/dhamidi/jbcm/ir"
	"github.com/dhamidi/jbcm/opcode"
)

// If writes `if(lhs OP rhs) {` at its condition and closes at the
// condition's end index.
type If struct {
	Cond     *ir.JumpCondition
	LHS, RHS string
	comments bool
}

func NewIf(cond *ir.JumpCondition, lhs, rhs string, comments bool) *If {
	return &If{Cond: cond, LHS: lhs, RHS: rhs, comments: comments}
}

func (e *If) Emit(op opcode.Opcode, code []byte, idx, operand int, src *SourceBuffer) Response {
	if idx >= e.Cond.EndIndex() {
		src.Close(e.comment())
		e.Cond.Finish()
		return Deregister
	}
	if idx == e.Cond.Index {
		src.Linef("if(%s %s %s) {", e.LHS, e.Cond.Comparison(), e.RHS)
		src.Indent()
	}
	return Continue
}

func (e *If) comment() string {
	if !e.comments {
		return ""
	}
	return fmt.Sprintf("end if(%s %s %s)", e.LHS, e.Cond.Comparison(), e.RHS)
}

func (e *If) String() string { return "if " + e.Cond.String() }

// Loop writes a while loop tested at the top, or a do-while loop tested at
// its back edge when the loop has no separate test.
type Loop struct {
	Cond     *ir.JumpCondition
	LHS, RHS string
	comments bool
	opened   bool
}

// NewWhile builds a loop whose header is written at the test index with
// the inverse of the test's comparison.
func NewWhile(cond *ir.JumpCondition, lhs, rhs string, comments bool) *Loop {
	return &Loop{Cond: cond, LHS: lhs, RHS: rhs, comments: comments}
}

// NewDoWhile builds a loop that opens at its jump target. The test is set
// with SetTest once the back edge's operands are known.
func NewDoWhile(cond *ir.JumpCondition, comments bool) *Loop {
	return &Loop{Cond: cond, comments: comments}
}

func (e *Loop) IsDoWhile() bool { return e.Cond.PotentialIfIndex < 0 }

func (e *Loop) SetTest(lhs, rhs string) { e.LHS, e.RHS = lhs, rhs }

// StartIndex is where the loop header is written.
func (e *Loop) StartIndex() int {
	if e.IsDoWhile() {
		return e.Cond.TargetIndex()
	}
	return e.Cond.PotentialIfIndex
}

func (e *Loop) Emit(op opcode.Opcode, code []byte, idx, operand int, src *SourceBuffer) Response {
	if e.opened && idx >= e.Cond.UpperIndex() {
		e.Cond.Finish()
		if !e.IsDoWhile() {
			src.Close(e.comment())
			return Deregister
		}
		src.Dedent()
		test := "true"
		if e.Cond.Op.Is(opcode.Conditional) {
			test = fmt.Sprintf("%s %s %s", e.LHS, e.Cond.Op.Info().Symbol, e.RHS)
		}
		line := fmt.Sprintf("} while(%s);", test)
		if c := e.comment(); c != "" {
			line += " // " + c
		}
		src.Line(line)
		return Deregister
	}
	if idx == e.StartIndex() && !e.opened {
		e.opened = true
		if e.IsDoWhile() {
			src.Line("do {")
		} else {
			src.Linef("while(%s %s %s) {", e.LHS, e.Cond.Op.Info().Inverse, e.RHS)
		}
		src.Indent()
	}
	return Continue
}

func (e *Loop) comment() string {
	if !e.comments {
		return ""
	}
	return fmt.Sprintf("end loop at %d", e.Cond.Index)
}

func (e *Loop) String() string { return "loop " + e.Cond.String() }

// SwitchBlock writes a switch statement, its case labels and its closing
// brace.
type SwitchBlock struct {
	Switch   *flow.Switch
	Key      string
	comments bool
}

func NewSwitch(sw *flow.Switch, key string, comments bool) *SwitchBlock {
	return &SwitchBlock{Switch: sw, Key: key, comments: comments}
}

func (e *SwitchBlock) closes(idx int) bool {
	if e.Switch.ReturnPacked {
		return idx > e.Switch.EndIndex
	}
	return idx >= e.Switch.EndIndex
}

func (e *SwitchBlock) Emit(op opcode.Opcode, code []byte, idx, operand int, src *SourceBuffer) Response {
	sw := e.Switch
	if idx == sw.Index {
		src.Linef("switch(%s) {", e.Key)
		src.Indent()
		return Continue
	}
	if e.closes(idx) {
		comment := ""
		if e.comments {
			comment = fmt.Sprintf("end switch at %d", sw.Index)
		}
		src.Close(comment)
		return Deregister
	}

	for i := flow.FindCase(idx, sw.Cases, 0); i >= 0; i = flow.FindCase(idx, sw.Cases, i+1) {
		c := sw.Cases[i]
		sw.Finish(c)
		src.Label(fmt.Sprintf("case %d:", c.Match))
	}
	if sw.Default.Target == idx {
		sw.Finish(sw.Default)
		src.Label("default:")
	}
	return Continue
}

func (e *SwitchBlock) String() string { return "switch " + e.Switch.String() }

// Synchronized writes a synchronized block opened at a monitorenter. It
// closes on the first monitorexit it sees, wherever that is.
type Synchronized struct {
	Index    int
	Object   string
	comments bool
}

func NewSynchronized(idx int, object string, comments bool) *Synchronized {
	return &Synchronized{Index: idx, Object: object, comments: comments}
}

func (e *Synchronized) Emit(op opcode.Opcode, code []byte, idx, operand int, src *SourceBuffer) Response {
	if op == opcode.Monitorexit {
		comment := ""
		if e.comments {
			comment = "end synchronized(" + e.Object + ")"
		}
		src.Close(comment)
		return Deregister
	}
	if idx == e.Index {
		src.Linef("synchronized(%s) {", e.Object)
		src.Indent()
	}
	return Continue
}

func (e *Synchronized) String() string {
	return fmt.Sprintf("synchronized at %d", e.Index)
}

// CatchClause is one handler of a try block.
type CatchClause struct {
	Handler int
	Type    string
	Var     *ir.VariableInfo
}

// TryCatch writes a try block over [Start, End) with one catch clause per
// handler. The first clause opens at End, later ones at their handler.
type TryCatch struct {
	Start, End int
	Clauses    []CatchClause
	// CloseAt is the first index after the last handler's code.
	CloseAt  int
	stack    *ir.MethodStack
	comments bool

	opened bool
	next   int
}

func NewTryCatch(start, end, closeAt int, clauses []CatchClause, stack *ir.MethodStack, comments bool) *TryCatch {
	return &TryCatch{
		Start:    start,
		End:      end,
		CloseAt:  closeAt,
		Clauses:  clauses,
		stack:    stack,
		comments: comments,
	}
}

func (e *TryCatch) catch(c CatchClause, src *SourceBuffer) {
	src.Dedent()
	src.Linef("} catch(%s %s) {", c.Type, c.Var.Name)
	src.Indent()
	e.stack.ClearOperands()
	e.stack.AddOperand(ir.VarOperand(c.Var, opcode.Athrow))
	e.next++
}

func (e *TryCatch) Emit(op opcode.Opcode, code []byte, idx, operand int, src *SourceBuffer) Response {
	if idx == e.Start && !e.opened {
		e.opened = true
		src.Line("try {")
		src.Indent()
	}
	if e.next == 0 && idx == e.End {
		e.catch(e.Clauses[0], src)
	}
	for e.next > 0 && e.next < len(e.Clauses) && idx == e.Clauses[e.next].Handler {
		e.catch(e.Clauses[e.next], src)
	}
	if e.next > 0 && idx >= e.CloseAt {
		comment := ""
		if e.comments {
			comment = fmt.Sprintf("end try at %d", e.Start)
		}
		src.Close(comment)
		return Deregister
	}
	return Continue
}

func (e *TryCatch) String() string {
	return fmt.Sprintf("try [%d, %d)", e.Start, e.End)
}
