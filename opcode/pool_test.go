package opcode

import (
	"bytes"
	"errors"
	"testing"
)

func TestChangePoolIndex(t *testing.T) {
	code := []byte{
		byte(Ldc), 5, // 0
		byte(Getstatic), 0, 5, // 2
		byte(Invokeinterface), 0, 5, 1, 0, // 5
		byte(Bipush), 5, // 10
		byte(New), 0, 6, // 12
		byte(Return), // 15
	}
	n, err := ChangePoolIndex(code, 5, 9)
	if err != nil {
		t.Fatalf("ChangePoolIndex: %v", err)
	}
	if n != 3 {
		t.Errorf("changed %d instructions, want 3", n)
	}
	want := []byte{
		byte(Ldc), 9,
		byte(Getstatic), 0, 9,
		byte(Invokeinterface), 0, 9, 1, 0,
		byte(Bipush), 5,
		byte(New), 0, 6,
		byte(Return),
	}
	if !bytes.Equal(code, want) {
		t.Errorf("code = % x, want % x", code, want)
	}

	if _, ok := PoolIndex(code, 10); ok {
		t.Errorf("bipush reported a pool index")
	}
	if index, ok := PoolIndex(code, 12); !ok || index != 6 {
		t.Errorf("PoolIndex(new) = %d, %v, want 6, true", index, ok)
	}

	t.Run("LdcOutOfRange", func(t *testing.T) {
		code := []byte{byte(Ldc), 5, byte(Return)}
		if _, err := ChangePoolIndex(code, 5, 300); !errors.Is(err, ErrIndexRange) {
			t.Errorf("err = %v, want ErrIndexRange", err)
		}
	})
}
