package flow

import (
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/dhamidi/jbcm/opcode"
)

var ErrNotSwitch = errors.New("instruction is not a switch")

// SwitchCase is one branch of a switch: the value it matches, the index its
// code starts at and the forward trace from there.
type SwitchCase struct {
	Match  int
	Target int
	// EndIndex is the largest index reachable from Target.
	EndIndex int
	// EndTarget is where the goto closing this case jumps, -1 when the case
	// falls through or leaves the method.
	EndTarget int
	Flow      []int

	finished bool
}

func (c *SwitchCase) Finish()          { c.finished = true }
func (c *SwitchCase) IsFinished() bool { return c.finished }

func (c *SwitchCase) String() string {
	return fmt.Sprintf("case %d: [%d, %v]", c.Match, c.Target, c.Flow)
}

// Switch is a decoded tableswitch or lookupswitch instruction.
type Switch struct {
	Op    opcode.Opcode
	Index int
	// Cases keep the order of the instruction's jump table.
	Cases   []*SwitchCase
	Default *SwitchCase
	// Low and High bound a tableswitch.
	Low, High int
	// InstSize is the length of the instruction, opcode and padding
	// included.
	InstSize int
	// EndIndex is where the switch statement closes: the first index every
	// case reaches, or the last index any case reaches when ReturnPacked.
	EndIndex     int
	ReturnPacked bool

	finished int
}

// Finish marks c as emitted.
func (s *Switch) Finish(c *SwitchCase) {
	if !c.IsFinished() {
		c.Finish()
		s.finished++
	}
}

// IsFinished reports whether every case and the default have been emitted.
func (s *Switch) IsFinished() bool {
	return s.finished == len(s.Cases)+1
}

// DecodeSwitch decodes the switch at idx and resolves where it ends.
func DecodeSwitch(code []byte, idx int) (*Switch, error) {
	s, err := decode(code, idx)
	if err != nil {
		return nil, err
	}

	traces := make(map[int][]int)
	analyse := func(c *SwitchCase) {
		t, ok := traces[c.Target]
		if !ok {
			t = Trace(code, c.Target)
			traces[c.Target] = t
		}
		c.Flow = t
		c.EndIndex = MaxIndex(t)
	}
	analyse(s.Default)
	for _, c := range s.Cases {
		analyse(c)
	}

	s.EndIndex = s.exitIndex(code)
	if s.EndIndex == -1 {
		s.EndIndex = MaxFlowIndex(s.Cases, s.Default)
		s.ReturnPacked = true
		if !IsSimplePacked(code, s.Cases, s.Default) {
			log.Warningf("%s at %d: cases do not converge and are not packed, closing at %d", s.Op, idx, s.EndIndex)
		}
	}
	endTargets(code, s)
	return s, nil
}

// decode reads the jump table without tracing the cases.
func decode(code []byte, idx int) (*Switch, error) {
	if idx < 0 || idx >= len(code) {
		return nil, fmt.Errorf("%w: index %d outside code", ErrNotSwitch, idx)
	}
	op := opcode.Opcode(code[idx])
	if op != opcode.Tableswitch && op != opcode.Lookupswitch {
		return nil, fmt.Errorf("%w: %s at %d", ErrNotSwitch, op, idx)
	}
	size, err := opcode.Length(code, idx)
	if err != nil {
		return nil, err
	}

	base := idx + 1 + opcode.Padding(idx)
	s := &Switch{
		Op:       op,
		Index:    idx,
		InstSize: size,
		Default:  newCase(0, idx+opcode.S4(code, base)),
	}
	if op == opcode.Tableswitch {
		s.Low = opcode.S4(code, base+4)
		s.High = opcode.S4(code, base+8)
		for j := 0; j <= s.High-s.Low; j++ {
			s.Cases = append(s.Cases, newCase(s.Low+j, idx+opcode.S4(code, base+12+4*j)))
		}
		return s, nil
	}
	npairs := opcode.S4(code, base+4)
	for j := 0; j < npairs; j++ {
		at := base + 8 + 8*j
		s.Cases = append(s.Cases, newCase(opcode.S4(code, at), idx+opcode.S4(code, at+4)))
	}
	return s, nil
}

func newCase(match, target int) *SwitchCase {
	return &SwitchCase{Match: match, Target: target, EndIndex: -1, EndTarget: -1}
}

// endTargets records the goto that closes each case's straight-line code.
func endTargets(code []byte, s *Switch) {
	all := append(slices.Clone(s.Cases), s.Default)
	starts := make([]int, 0, len(all))
	for _, c := range all {
		starts = append(starts, c.Target)
	}
	slices.Sort(starts)

	for _, c := range all {
		next := s.EndIndex
		for _, st := range starts {
			if st > c.Target {
				next = st
				break
			}
		}
		if next <= c.Target {
			continue
		}
		last := opcode.LastBefore(code, c.Target, next)
		if last < 0 {
			continue
		}
		if op := opcode.Opcode(code[last]); op == opcode.Goto || op == opcode.GotoW {
			c.EndTarget = last + opcode.Branch(code, last)
		}
	}
}

// FindCase returns the position of the first case at or after from whose
// target is idx, or -1.
func FindCase(idx int, cases []*SwitchCase, from int) int {
	for i := max(from, 0); i < len(cases); i++ {
		if cases[i].Target == idx {
			return i
		}
	}
	return -1
}

// CommonEndIndex is the smallest index that the default and every case
// reach, or -1 when their traces never meet.
func CommonEndIndex(cases []*SwitchCase, def *SwitchCase) int {
	points := commonPoints(cases, def)
	if len(points) == 0 {
		return -1
	}
	return points[0]
}

// commonPoints lists, ascending, the indices that the default and every
// case reach.
func commonPoints(cases []*SwitchCase, def *SwitchCase) []int {
	var out []int
points:
	for _, point := range def.Flow {
		for _, c := range cases {
			if !Contains(c.Flow, point) {
				continue points
			}
		}
		out = append(out, point)
	}
	return out
}

// exitIndex is the first common point that is not a label entered by
// falling through from the code before it. A label reached that way is
// the last label of the switch, not its exit.
func (s *Switch) exitIndex(code []byte) int {
	for _, p := range commonPoints(s.Cases, s.Default) {
		if !s.fallsInto(code, p) {
			return p
		}
	}
	return -1
}

// fallsInto reports whether idx is a case or default target that the
// instruction before it can fall through to.
func (s *Switch) fallsInto(code []byte, idx int) bool {
	if s.Default.Target != idx && FindCase(idx, s.Cases, 0) < 0 {
		return false
	}
	prev := opcode.LastBefore(code, s.Index, idx)
	if prev <= s.Index {
		return false
	}
	switch op := opcode.Opcode(code[prev]); {
	case op == opcode.Goto, op == opcode.GotoW, op == opcode.Athrow, op == opcode.Ret:
		return false
	case op.Is(opcode.Exit), op.Is(opcode.Switch):
		return false
	}
	return true
}

// MaxFlowIndex is the largest index reached by any case or the default.
func MaxFlowIndex(cases []*SwitchCase, def *SwitchCase) int {
	m := def.EndIndex
	for _, c := range cases {
		m = max(m, c.EndIndex)
	}
	return m
}

// IsSimplePacked reports whether, in target order, each case's code ends
// right before the next case starts, which is the layout of a switch whose
// cases all return or throw.
func IsSimplePacked(code []byte, cases []*SwitchCase, def *SwitchCase) bool {
	all := append(slices.Clone(cases), def)
	slices.SortStableFunc(all, func(a, b *SwitchCase) int { return cmp.Compare(a.Target, b.Target) })

	prevEnd := -1
	for _, c := range all {
		if prevEnd >= 0 && opcode.Next(code, prevEnd) < c.Target {
			return false
		}
		prevEnd = c.EndIndex
		if prevEnd < 0 {
			return false
		}
	}
	return true
}

// Encode writes the switch instruction back out as it would appear at
// Index, padding bytes zeroed.
func (s *Switch) Encode() []byte {
	pad := opcode.Padding(s.Index)
	out := make([]byte, 0, s.InstSize)
	out = append(out, byte(s.Op))
	out = append(out, make([]byte, pad)...)
	put := func(v int) {
		out = binary.BigEndian.AppendUint32(out, uint32(int32(v)))
	}
	put(s.Default.Target - s.Index)
	if s.Op == opcode.Tableswitch {
		put(s.Low)
		put(s.High)
		for _, c := range s.Cases {
			put(c.Target - s.Index)
		}
		return out
	}
	put(len(s.Cases))
	for _, c := range s.Cases {
		put(c.Match)
		put(c.Target - s.Index)
	}
	return out
}

func (s *Switch) String() string {
	return fmt.Sprintf("%s at %d: %d cases, end %d", s.Op, s.Index, len(s.Cases), s.EndIndex)
}
