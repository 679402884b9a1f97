package opcode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var ErrIndexRange = errors.New("constant pool index does not fit the instruction")

// PoolIndex returns the constant pool index operand of the instruction at
// idx. ok is false for instructions that do not refer to the pool.
func PoolIndex(code []byte, idx int) (index int, ok bool) {
	switch op := Opcode(U1(code, idx)); {
	case op == Ldc:
		return U1(code, idx+1), true
	case op == LdcW, op == Ldc2W, op == New, op == Anewarray, op == Multianewarray,
		op == Checkcast, op == Instanceof, op.Is(Field), op.Is(Invoke):
		return U2(code, idx+1), true
	}
	return 0, false
}

// ChangePoolIndex rewrites every instruction in code that refers to
// constant pool entry from so that it refers to to instead. It returns how
// many instructions changed.
func ChangePoolIndex(code []byte, from, to uint16) (int, error) {
	indices, err := Indices(code)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, idx := range indices {
		index, ok := PoolIndex(code, idx)
		if !ok || index != int(from) {
			continue
		}
		if Opcode(code[idx]) == Ldc {
			if to > 0xFF {
				return changed, fmt.Errorf("%w: ldc at %d cannot refer to #%d", ErrIndexRange, idx, to)
			}
			code[idx+1] = byte(to)
		} else {
			binary.BigEndian.PutUint16(code[idx+1:], to)
		}
		changed++
	}
	return changed, nil
}
