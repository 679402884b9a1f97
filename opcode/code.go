package opcode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrTruncated     = errors.New("truncated instruction")
)

func U1(code []byte, at int) int {
	if at < 0 || at >= len(code) {
		return 0
	}
	return int(code[at])
}

func S1(code []byte, at int) int {
	return int(int8(U1(code, at)))
}

func U2(code []byte, at int) int {
	if at < 0 || at+2 > len(code) {
		return 0
	}
	return int(binary.BigEndian.Uint16(code[at:]))
}

func S2(code []byte, at int) int {
	return int(int16(U2(code, at)))
}

func S4(code []byte, at int) int {
	if at < 0 || at+4 > len(code) {
		return 0
	}
	return int(int32(binary.BigEndian.Uint32(code[at:])))
}

// Padding is the number of alignment bytes between a switch opcode at idx
// and its first 4-byte operand.
func Padding(idx int) int {
	return (4 - (idx+1)%4) % 4
}

// Length returns the size in bytes of the instruction starting at idx,
// operands included.
func Length(code []byte, idx int) (int, error) {
	if idx < 0 || idx >= len(code) {
		return 0, fmt.Errorf("%w: index %d outside code of length %d", ErrTruncated, idx, len(code))
	}
	op := Opcode(code[idx])
	if !op.Valid() {
		return 0, fmt.Errorf("%w: 0x%02X at %d", ErrUnknownOpcode, code[idx], idx)
	}

	var n int
	switch op {
	case Wide:
		if idx+1 >= len(code) {
			return 0, fmt.Errorf("%w: wide at %d", ErrTruncated, idx)
		}
		n = 4
		if Opcode(code[idx+1]) == Iinc {
			n = 6
		}
	case Tableswitch:
		base := idx + 1 + Padding(idx)
		if base+12 > len(code) {
			return 0, fmt.Errorf("%w: tableswitch at %d", ErrTruncated, idx)
		}
		low, high := S4(code, base+4), S4(code, base+8)
		if high < low {
			return 0, fmt.Errorf("tableswitch at %d: high %d below low %d", idx, high, low)
		}
		n = base - idx + 12 + 4*(high-low+1)
	case Lookupswitch:
		base := idx + 1 + Padding(idx)
		if base+8 > len(code) {
			return 0, fmt.Errorf("%w: lookupswitch at %d", ErrTruncated, idx)
		}
		npairs := S4(code, base+4)
		if npairs < 0 {
			return 0, fmt.Errorf("lookupswitch at %d: negative pair count %d", idx, npairs)
		}
		n = base - idx + 8 + 8*npairs
	default:
		n = 1 + table[op].Operands
	}
	if idx+n > len(code) {
		return 0, fmt.Errorf("%w: %s at %d needs %d bytes", ErrTruncated, op, idx, n)
	}
	return n, nil
}

// Indices lists the start index of every instruction in code.
func Indices(code []byte) ([]int, error) {
	var out []int
	for idx := 0; idx < len(code); {
		n, err := Length(code, idx)
		if err != nil {
			return out, err
		}
		out = append(out, idx)
		idx += n
	}
	return out, nil
}

// Next returns the index of the instruction following the one at idx, or
// len(code) when the instruction cannot be decoded.
func Next(code []byte, idx int) int {
	n, err := Length(code, idx)
	if err != nil {
		return len(code)
	}
	return idx + n
}

// LastBefore returns the start of the last instruction that begins in
// [from, to), walking forward from from. It returns -1 when there is none.
func LastBefore(code []byte, from, to int) int {
	last := -1
	for idx := from; idx < to && idx < len(code); {
		n, err := Length(code, idx)
		if err != nil {
			break
		}
		last = idx
		idx += n
	}
	return last
}

// Branch returns the signed jump offset of a branch instruction at idx.
func Branch(code []byte, idx int) int {
	if Opcode(U1(code, idx)).Is(Offset32) {
		return S4(code, idx+1)
	}
	return S2(code, idx+1)
}

// Operand returns the primary operand of the instruction at idx: the jump
// offset for branches, the signed immediate of bipush and sipush, the
// local slot of variable instructions (through wide as well), the pool
// index of constant pool instructions and the default offset of switches.
func Operand(code []byte, idx int) int {
	op := Opcode(U1(code, idx))
	info := table[op]
	switch {
	case op == Wide:
		return U2(code, idx+2)
	case info.Flags&Jump != 0:
		return Branch(code, idx)
	case op == Bipush:
		return S1(code, idx+1)
	case op == Sipush:
		return S2(code, idx+1)
	case op == Tableswitch || op == Lookupswitch:
		return S4(code, idx+1+Padding(idx))
	case info.Operands == 1:
		return U1(code, idx+1)
	case info.Operands >= 2:
		return U2(code, idx+1)
	}
	return 0
}

// LocalSlot resolves the local variable index used by a load, store, iinc
// or ret instruction, including the implicit _n forms and wide prefixes.
func LocalSlot(code []byte, idx int) int {
	op := Opcode(U1(code, idx))
	if op == Wide {
		return U2(code, idx+2)
	}
	if s := table[op].Slot; s >= 0 {
		return s
	}
	return U1(code, idx+1)
}

// IncrementOf decodes the slot and signed delta of iinc or wide iinc.
func IncrementOf(code []byte, idx int) (slot, delta int) {
	if Opcode(U1(code, idx)) == Wide {
		return U2(code, idx+2), S2(code, idx+4)
	}
	return U1(code, idx+1), S1(code, idx+2)
}
