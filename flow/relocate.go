package flow

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dhamidi/jbcm/opcode"
)

var (
	ErrNotInstruction = errors.New("index is not an instruction boundary")
	ErrOffsetRange    = errors.New("branch offset out of range")
	ErrBranchInInsert = errors.New("inserted code contains a branch")
)

// Relocation is code rewritten by Insert together with the new position
// of every original instruction.
type Relocation struct {
	Code  []byte
	index map[int]int
}

// Index returns where the instruction that started at old now starts, or
// -1 when old was not an instruction. The old code length maps to the new
// one.
func (r *Relocation) Index(old int) int {
	if i, ok := r.index[old]; ok {
		return i
	}
	return -1
}

// Insert places insert in front of the instruction at at and rewrites
// every branch and switch so control flow is unchanged. Branches that
// targeted at now reach the inserted code. Switch padding is recomputed
// for each switch's new position, so a switch may grow or shrink by up to
// three bytes. The inserted code must be straight-line. at may be
// len(code) to append.
func Insert(code []byte, at int, insert []byte) (*Relocation, error) {
	indices, err := opcode.Indices(code)
	if err != nil {
		return nil, err
	}
	if at != len(code) && !slices.Contains(indices, at) {
		return nil, fmt.Errorf("%w: %d", ErrNotInstruction, at)
	}
	inserted, err := opcode.Indices(insert)
	if err != nil {
		return nil, fmt.Errorf("inserted code: %w", err)
	}
	for _, i := range inserted {
		if op := opcode.Opcode(insert[i]); op.Is(opcode.Jump) || op.Is(opcode.Switch) {
			return nil, fmt.Errorf("%w: %s at %d", ErrBranchInInsert, op, i)
		}
	}

	r := &Relocation{index: make(map[int]int, len(indices)+1)}
	pos := 0
	for _, idx := range indices {
		if idx == at {
			pos += len(insert)
		}
		r.index[idx] = pos
		n, _ := opcode.Length(code, idx)
		if opcode.Opcode(code[idx]).Is(opcode.Switch) {
			n += opcode.Padding(pos) - opcode.Padding(idx)
		}
		pos += n
	}
	if at == len(code) {
		pos += len(insert)
	}
	r.index[len(code)] = pos

	target := func(from, to int) (int, error) {
		if to == at {
			return r.index[at] - len(insert), nil
		}
		if i, ok := r.index[to]; ok && to < len(code) {
			return i, nil
		}
		return 0, fmt.Errorf("%w: branch at %d targets %d", ErrNotInstruction, from, to)
	}

	out := make([]byte, 0, pos)
	for _, idx := range indices {
		if idx == at {
			out = append(out, insert...)
		}
		n, _ := opcode.Length(code, idx)
		now := r.index[idx]
		switch op := opcode.Opcode(code[idx]); {
		case op.Is(opcode.Switch):
			sw, err := decode(code, idx)
			if err != nil {
				return nil, err
			}
			moved := &Switch{Op: sw.Op, Index: now, Low: sw.Low, High: sw.High}
			t, err := target(idx, sw.Default.Target)
			if err != nil {
				return nil, err
			}
			moved.Default = newCase(0, t)
			for _, c := range sw.Cases {
				t, err := target(idx, c.Target)
				if err != nil {
					return nil, err
				}
				moved.Cases = append(moved.Cases, newCase(c.Match, t))
			}
			out = append(out, moved.Encode()...)
		case op.Is(opcode.Jump):
			t, err := target(idx, idx+opcode.Branch(code, idx))
			if err != nil {
				return nil, err
			}
			off := t - now
			out = append(out, byte(op))
			if op.Is(opcode.Offset32) {
				out = binary.BigEndian.AppendUint32(out, uint32(int32(off)))
				continue
			}
			if off < math.MinInt16 || off > math.MaxInt16 {
				return nil, fmt.Errorf("%w: %s at %d needs offset %d", ErrOffsetRange, op, now, off)
			}
			out = binary.BigEndian.AppendUint16(out, uint16(int16(off)))
		default:
			out = append(out, code[idx:idx+n]...)
		}
	}
	if at == len(code) {
		out = append(out, insert...)
	}
	r.Code = out
	return r, nil
}
