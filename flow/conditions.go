package flow

import (
	"slices"

	"github.com/dhamidi/jbcm/ir"
	"github.com/dhamidi/jbcm/opcode"
)

// FindConditions collects the jumps in code and classifies them. Every
// backward jump starts as a loop and every forward conditional as an if.
// The list is then sorted by lower index and refined:
//
//   - a backward conditional that shares its target with an enclosing loop
//     is an if inside that loop and ends where the loop ends;
//   - a loop takes the first if inside it that jumps just past the loop as
//     its test, and that if is removed from the list;
//   - a loop without such a test is a do-while.
func FindConditions(code []byte) ([]*ir.JumpCondition, error) {
	indices, err := opcode.Indices(code)
	if err != nil {
		return nil, err
	}

	var conds []*ir.JumpCondition
	for _, idx := range indices {
		op := opcode.Opcode(code[idx])
		if !op.Is(opcode.Jump) || op.Is(opcode.Subroutine) {
			continue
		}
		offset := opcode.Branch(code, idx)
		switch {
		case offset < 0:
			conds = append(conds, ir.NewJumpCondition(op, idx, offset, ir.UsageForOrWhileLoop))
		case op.Is(opcode.Conditional):
			conds = append(conds, ir.NewJumpCondition(op, idx, offset, ir.UsageIf))
		}
	}
	ir.SortByLowerIndex(conds)

	for i := 0; i < len(conds); i++ {
		loop := conds[i]
		if loop.IsBackward() {
			target, upper := loop.TargetIndex(), loop.UpperIndex()
			for j := i + 1; j < len(conds); j++ {
				inner := conds[j]
				if inner.Index > upper {
					break
				}
				if inner.IsBackward() && inner.TargetIndex() == target && containsIndex(loop, inner.Index) {
					log.Debugf("%s shares the target of %s, ending at %d", inner, loop, upper)
					conds[j] = inner.WithLoopEndIndexForIf(upper)
				}
			}
		}

		if !loop.Usage.IsLoop() || loop.PotentialIfIndex >= 0 {
			continue
		}
		test := firstIfEndingAfter(code, conds, i)
		if test < 0 {
			conds[i] = loop.WithUsage(ir.UsageDoWhileLoop)
			continue
		}
		conds[i] = loop.WithPotentialIfIndex(conds[test].Index)
		log.Debugf("%s is tested by %s", conds[i], conds[test])
		conds = slices.Delete(conds, test, test+1)
		if test <= i {
			i--
		}
	}
	return conds, nil
}

// firstIfEndingAfter finds, among the conditions after position at that
// fall inside the loop there, the one with the lowest index that jumps to
// the instruction following the loop's back edge.
func firstIfEndingAfter(code []byte, conds []*ir.JumpCondition, at int) int {
	loop := conds[at]
	upper := loop.UpperIndex()
	after := opcode.Next(code, loop.Index)

	found, lowest := -1, 0
	for i := at + 1; i < len(conds); i++ {
		c := conds[i]
		if c.LowerIndex() > upper {
			break
		}
		if loop.TargetIndex() <= c.LowerIndex() && c.UpperIndex() == after {
			if found < 0 || c.Index < lowest {
				found, lowest = i, c.Index
			}
		}
	}
	return found
}

// containsIndex reports whether idx lies between a condition's index and
// its target, both ends included.
func containsIndex(c *ir.JumpCondition, idx int) bool {
	return idx >= c.LowerIndex() && idx <= c.UpperIndex()
}

// Roles indexes conditions by the instruction that opens their structure.
type Roles struct {
	// Loops maps the index of a while loop's test to the loop.
	Loops map[int]*ir.JumpCondition
	// BackEdges maps a loop's back-edge index to the loop.
	BackEdges map[int]*ir.JumpCondition
	// Ifs maps a conditional's index to its if classification.
	Ifs map[int]*ir.JumpCondition
}

// Classify splits the output of FindConditions by role.
func Classify(conds []*ir.JumpCondition) Roles {
	r := Roles{
		Loops:     make(map[int]*ir.JumpCondition),
		BackEdges: make(map[int]*ir.JumpCondition),
		Ifs:       make(map[int]*ir.JumpCondition),
	}
	for _, c := range conds {
		if c.Usage.IsLoop() {
			r.BackEdges[c.Index] = c
			if c.PotentialIfIndex >= 0 {
				r.Loops[c.PotentialIfIndex] = c
			}
			continue
		}
		r.Ifs[c.Index] = c
	}
	return r
}
