package ir

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dhamidi/jbcm/opcode"
)

// UsageHint is the structural role guessed for a jump condition.
type UsageHint int

const (
	UsageIf UsageHint = iota
	// UsageIfWithinLoop marks a conditional inside a loop body that jumps
	// back to the loop start, so it ends where the loop ends.
	UsageIfWithinLoop
	UsageForOrWhileLoop
	UsageDoWhileLoop
)

func (h UsageHint) IsLoop() bool {
	return h == UsageForOrWhileLoop || h == UsageDoWhileLoop
}

func (h UsageHint) String() string {
	switch h {
	case UsageIf:
		return "if"
	case UsageIfWithinLoop:
		return "if-within-loop"
	case UsageForOrWhileLoop:
		return "while"
	case UsageDoWhileLoop:
		return "do-while"
	}
	return fmt.Sprintf("usage(%d)", int(h))
}

// JumpCondition is one branch instruction: its opcode, index and raw
// signed offset, plus the loop bookkeeping computed by flow analysis.
type JumpCondition struct {
	Op     opcode.Opcode
	Index  int
	Offset int
	// PotentialIfIndex is the conditional that tests a loop, -1 if none.
	PotentialIfIndex int
	// LoopEndIndexForIf is where the enclosing loop ends for
	// UsageIfWithinLoop conditions.
	LoopEndIndexForIf int
	Usage             UsageHint

	finished bool
}

func NewJumpCondition(op opcode.Opcode, index, offset int, usage UsageHint) *JumpCondition {
	return &JumpCondition{
		Op:                op,
		Index:             index,
		Offset:            offset,
		PotentialIfIndex:  -1,
		LoopEndIndexForIf: -1,
		Usage:             usage,
	}
}

func (c *JumpCondition) TargetIndex() int { return c.Index + c.Offset }

func (c *JumpCondition) IsBackward() bool { return c.Offset < 0 }

func (c *JumpCondition) LowerIndex() int { return min(c.Index, c.TargetIndex()) }

func (c *JumpCondition) UpperIndex() int { return max(c.Index, c.TargetIndex()) }

func (c *JumpCondition) loopEmbedded() bool {
	return c.Usage == UsageIfWithinLoop && c.Offset < 0
}

// EndIndex is where an if block opened by this condition closes.
func (c *JumpCondition) EndIndex() int {
	if c.loopEmbedded() {
		return c.LoopEndIndexForIf
	}
	return c.TargetIndex()
}

// Comparison is the operator printed for an if block: the opcode's own
// symbol, or its inverse for a test folded into a loop back edge.
func (c *JumpCondition) Comparison() string {
	info := c.Op.Info()
	if c.loopEmbedded() {
		return info.Inverse
	}
	return info.Symbol
}

func (c *JumpCondition) Finish()        { c.finished = true }
func (c *JumpCondition) Finished() bool { return c.finished }

func (c *JumpCondition) WithPotentialIfIndex(idx int) *JumpCondition {
	n := *c
	n.PotentialIfIndex = idx
	return &n
}

func (c *JumpCondition) WithLoopEndIndexForIf(end int) *JumpCondition {
	n := *c
	n.LoopEndIndexForIf = end
	n.Usage = UsageIfWithinLoop
	return &n
}

func (c *JumpCondition) WithUsage(h UsageHint) *JumpCondition {
	n := *c
	n.Usage = h
	return &n
}

func (c *JumpCondition) String() string {
	return fmt.Sprintf("condition at %d (%s)", c.Index, c.Op)
}

// SortByLowerIndex orders conditions by ascending lower index, widest
// range first on ties.
func SortByLowerIndex(conds []*JumpCondition) {
	slices.SortStableFunc(conds, func(a, b *JumpCondition) int {
		if c := cmp.Compare(a.LowerIndex(), b.LowerIndex()); c != 0 {
			return c
		}
		return cmp.Compare(b.UpperIndex(), a.UpperIndex())
	})
}
