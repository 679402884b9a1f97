// Package flow analyses the branch structure of a method's bytecode:
// forward reachability traces, loop and if classification of jumps, and
// switch decoding.
package flow

import (
	"slices"

	"github.com/dhamidi/jbcm/opcode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jbcm.flow")

// Trace lists, in ascending order, every instruction index reachable from
// start without taking a backward edge. Conditional and unconditional
// forward jumps and switch targets are followed; returns, athrow, ret and
// backward gotos end a path. Each index is visited once.
func Trace(code []byte, start int) []int {
	if start < 0 || start >= len(code) {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	work := []int{start}

	push := func(from, to int) {
		if to > from && to < len(code) && !seen[to] {
			work = append(work, to)
		}
	}

	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]
		if seen[idx] {
			continue
		}
		n, err := opcode.Length(code, idx)
		if err != nil {
			log.Debugf("trace stopped at %d: %s", idx, err)
			continue
		}
		seen[idx] = true
		out = append(out, idx)

		op := opcode.Opcode(code[idx])
		switch {
		case op.Is(opcode.Exit), op == opcode.Athrow, op == opcode.Ret:
			continue
		case op.Is(opcode.Switch):
			sw, err := decode(code, idx)
			if err != nil {
				log.Debugf("trace stopped at %d: %s", idx, err)
				continue
			}
			push(idx, sw.Default.Target)
			for _, c := range sw.Cases {
				push(idx, c.Target)
			}
			continue
		case op.Is(opcode.Jump):
			push(idx, idx+opcode.Branch(code, idx))
			if op == opcode.Goto || op == opcode.GotoW {
				continue
			}
		}
		push(idx, idx+n)
	}

	slices.Sort(out)
	return out
}

// MaxIndex is the largest index in a trace, -1 when it is empty.
func MaxIndex(trace []int) int {
	if len(trace) == 0 {
		return -1
	}
	return slices.Max(trace)
}

// Contains reports whether a sorted trace contains idx.
func Contains(trace []int, idx int) bool {
	_, ok := slices.BinarySearch(trace, idx)
	return ok
}
