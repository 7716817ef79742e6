// securemem_test.go: Test cases for secure buffers and the locked pool.

package vault_test

import (
	"errors"
	"sync"
	"testing"

	vault "github.com/teiwaz/keywarden"
)

func TestSecureBuffer(t *testing.T) {
	buf := vault.NewSecureBuffer(32)
	if buf.Len() != 32 {
		t.Fatalf("Expected length 32, got %d", buf.Len())
	}
	copy(buf.Bytes(), "some secret material over here!!")

	clone := buf.Clone()
	if string(clone.Bytes()) != string(buf.Bytes()) {
		t.Error("Clone should copy the contents")
	}

	buf.Destroy()
	for i, b := range buf.Bytes() {
		if b != 0 {
			t.Fatalf("Byte %d not zeroized after Destroy", i)
		}
	}
	if string(clone.Bytes())[0] == 0 {
		t.Error("Destroying the original should not affect the clone")
	}
	clone.Destroy()

	// Destroy is idempotent.
	buf.Destroy()
}

func TestZeroize(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 65, 256, 1000} {
		b := make([]byte, n)
		for i := range b {
			b[i] = 0xAA
		}
		vault.Zeroize(b)
		for i := range b {
			if b[i] != 0 {
				t.Fatalf("Length %d: byte %d not cleared", n, i)
			}
		}
	}
}

func TestAllocateLocked(t *testing.T) {
	buf, err := vault.AllocateLocked(64)
	if err != nil {
		t.Fatalf("AllocateLocked() error: %v", err)
	}
	if buf.Len() != 64 {
		t.Errorf("Expected length 64, got %d", buf.Len())
	}
	copy(buf.Bytes(), "data")
	buf.Release()
	// Release is idempotent.
	buf.Release()
}

func TestAllocateLocked_InvalidSize(t *testing.T) {
	if _, err := vault.AllocateLocked(0); !errors.Is(err, vault.ErrPoolExhausted) {
		t.Errorf("Expected ErrPoolExhausted for size 0, got %v", err)
	}
	if _, err := vault.AllocateLocked(vault.LockedSlotCapacity + 1); !errors.Is(err, vault.ErrPoolExhausted) {
		t.Errorf("Expected ErrPoolExhausted for oversized request, got %v", err)
	}
}

func TestAllocateLocked_ExhaustionFailsFast(t *testing.T) {
	var held []*vault.LockedBuffer
	defer func() {
		for _, b := range held {
			b.Release()
		}
	}()

	// Drain the pool. Allocation never blocks: once full it must fail
	// immediately.
	for {
		buf, err := vault.AllocateLocked(vault.LockedSlotCapacity)
		if err != nil {
			if !errors.Is(err, vault.ErrPoolExhausted) {
				t.Fatalf("Expected ErrPoolExhausted, got %v", err)
			}
			break
		}
		held = append(held, buf)
		if len(held) > 1024 {
			t.Fatal("Pool did not exhaust; it must not grow")
		}
	}
	if len(held) == 0 {
		t.Fatal("Expected at least one successful allocation")
	}

	// Releasing one slot makes allocation succeed again.
	held[0].Release()
	held = held[1:]
	buf, err := vault.AllocateLocked(16)
	if err != nil {
		t.Fatalf("Allocation after release failed: %v", err)
	}
	buf.Release()
}

func TestAllocateLocked_SlotsDoNotAlias(t *testing.T) {
	b1, err := vault.AllocateLocked(vault.LockedSlotCapacity)
	if err != nil {
		t.Fatal(err)
	}
	defer b1.Release()
	b2, err := vault.AllocateLocked(vault.LockedSlotCapacity)
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Release()

	for i := range b1.Bytes() {
		b1.Bytes()[i] = 0x11
	}
	for i := range b2.Bytes() {
		b2.Bytes()[i] = 0x22
	}
	for i, b := range b1.Bytes() {
		if b != 0x11 {
			t.Fatalf("Slot 1 byte %d overwritten by slot 2", i)
		}
	}
}

func TestAllocateLocked_ReleasedSlotIsZeroed(t *testing.T) {
	buf, err := vault.AllocateLocked(vault.LockedSlotCapacity)
	if err != nil {
		t.Fatal(err)
	}
	for i := range buf.Bytes() {
		buf.Bytes()[i] = 0xFF
	}
	buf.Release()

	// The next allocation of the slot must see zeros.
	next, err := vault.AllocateLocked(vault.LockedSlotCapacity)
	if err != nil {
		t.Fatal(err)
	}
	defer next.Release()
	for i, b := range next.Bytes() {
		if b != 0 {
			t.Fatalf("Byte %d not zeroed on release", i)
		}
	}
}

func TestAllocateLocked_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf, err := vault.AllocateLocked(32)
				if err != nil {
					// Exhaustion under contention is legal; what matters
					// is that bookkeeping stays consistent.
					continue
				}
				buf.Bytes()[0] = byte(j)
				buf.Release()
			}
		}()
	}
	wg.Wait()

	// Everything was released, so a fresh allocation succeeds.
	buf, err := vault.AllocateLocked(32)
	if err != nil {
		t.Fatalf("Pool inconsistent after concurrent use: %v", err)
	}
	buf.Release()
}
