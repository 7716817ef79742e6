// autolock_test.go: Test cases for the idle-lock deadline.

package vault_test

import (
	"testing"
	"time"

	vault "github.com/teiwaz/keywarden"
)

func TestAutolockerArmAndExpire(t *testing.T) {
	a := vault.NewAutolocker(time.Millisecond)

	if a.ShouldLock() {
		t.Error("Unarmed autolocker should not lock")
	}

	a.UpdateNextLockTime(true)
	if a.ShouldLock() {
		t.Error("Deadline should lie in the future right after arming")
	}

	time.Sleep(5 * time.Millisecond)
	if !a.ShouldLock() {
		t.Error("Deadline should have passed")
	}
}

func TestAutolockerActivityPushesDeadline(t *testing.T) {
	a := vault.NewAutolocker(20 * time.Millisecond)
	a.UpdateNextLockTime(true)

	// Keep touching it; the deadline must keep moving out.
	for i := 0; i < 5; i++ {
		time.Sleep(5 * time.Millisecond)
		a.UpdateNextLockTime(false)
		if a.ShouldLock() {
			t.Fatal("Activity should keep the deadline ahead")
		}
	}
}

func TestAutolockerDisabledWhileUnarmed(t *testing.T) {
	a := vault.NewAutolocker(time.Millisecond)

	// Activity without enable must not arm the timer.
	a.UpdateNextLockTime(false)
	time.Sleep(5 * time.Millisecond)
	if a.ShouldLock() {
		t.Error("Activity alone must not arm the autolocker")
	}
}

func TestAutolockerClear(t *testing.T) {
	a := vault.NewAutolocker(time.Millisecond)
	a.UpdateNextLockTime(true)
	a.Clear()

	time.Sleep(5 * time.Millisecond)
	if a.ShouldLock() {
		t.Error("Cleared autolocker should not lock")
	}
}

func TestAutolockerZeroTimeoutDisables(t *testing.T) {
	a := vault.NewAutolocker(0)
	a.UpdateNextLockTime(true)

	time.Sleep(2 * time.Millisecond)
	if a.ShouldLock() {
		t.Error("Zero timeout disables autolocking entirely")
	}
}
