package ir

import (
	"testing"

	"github.com/dhamidi/jbcm/opcode"
)

func TestJumpCondition(t *testing.T) {
	t.Run("PlainIf", func(t *testing.T) {
		c := NewJumpCondition(opcode.IfIcmpge, 10, 12, UsageIf)
		if c.TargetIndex() != 22 || c.EndIndex() != 22 {
			t.Errorf("target/end = %d/%d, want 22/22", c.TargetIndex(), c.EndIndex())
		}
		if c.Comparison() != ">=" {
			t.Errorf("Comparison = %q, want %q", c.Comparison(), ">=")
		}
		if c.LowerIndex() != 10 || c.UpperIndex() != 22 {
			t.Errorf("lower/upper = %d/%d", c.LowerIndex(), c.UpperIndex())
		}
	})

	t.Run("LoopEmbedded", func(t *testing.T) {
		c := NewJumpCondition(opcode.IfIcmplt, 30, -20, UsageIf).WithLoopEndIndexForIf(33)
		if c.Usage != UsageIfWithinLoop {
			t.Errorf("Usage = %v, want %v", c.Usage, UsageIfWithinLoop)
		}
		if c.TargetIndex() != 10 {
			t.Errorf("TargetIndex = %d, want 10", c.TargetIndex())
		}
		if c.EndIndex() != 33 {
			t.Errorf("EndIndex = %d, want 33", c.EndIndex())
		}
		if c.Comparison() != ">=" {
			t.Errorf("Comparison = %q, want inverse %q", c.Comparison(), ">=")
		}
		if c.LowerIndex() != 10 || c.UpperIndex() != 30 {
			t.Errorf("lower/upper = %d/%d", c.LowerIndex(), c.UpperIndex())
		}
	})

	t.Run("TwosComplementOffset", func(t *testing.T) {
		code := []byte{byte(opcode.Nop), byte(opcode.Goto), 0xFF, 0xFF}
		c := NewJumpCondition(opcode.Goto, 1, opcode.Branch(code, 1), UsageDoWhileLoop)
		if !c.IsBackward() || c.TargetIndex() != 0 {
			t.Errorf("goto -1 at 1: backward=%v target=%d", c.IsBackward(), c.TargetIndex())
		}
	})

	t.Run("Finish", func(t *testing.T) {
		c := NewJumpCondition(opcode.Ifeq, 0, 5, UsageIf)
		copied := c.WithPotentialIfIndex(3)
		c.Finish()
		if !c.Finished() || copied.Finished() {
			t.Errorf("finished = %v/%v, want true/false", c.Finished(), copied.Finished())
		}
		if c.PotentialIfIndex != -1 || copied.PotentialIfIndex != 3 {
			t.Errorf("potential if = %d/%d", c.PotentialIfIndex, copied.PotentialIfIndex)
		}
	})
}

func TestSortByLowerIndex(t *testing.T) {
	conds := []*JumpCondition{
		NewJumpCondition(opcode.Ifeq, 20, 5, UsageIf),
		NewJumpCondition(opcode.Goto, 40, -30, UsageForOrWhileLoop),
		NewJumpCondition(opcode.Ifne, 10, 8, UsageIf),
		NewJumpCondition(opcode.Ifeq, 10, 30, UsageIf),
	}
	SortByLowerIndex(conds)
	want := []struct{ index, target int }{{40, 10}, {10, 40}, {10, 18}, {20, 25}}
	for i, w := range want {
		if conds[i].Index != w.index || conds[i].TargetIndex() != w.target {
			t.Errorf("position %d = %v -> %d, want %d -> %d", i, conds[i], conds[i].TargetIndex(), w.index, w.target)
		}
	}
}
