// autolock.go: Idle-timeout bookkeeping for automatic vault locking.

package vault

import (
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// Autolocker tracks when an unlocked vault should lock itself. It only
// keeps the deadline; the owner polls ShouldLock from its event loop and
// performs the lock transition itself. A zero idle timeout disables
// autolocking.
type Autolocker struct {
	mu       sync.Mutex
	deadline time.Time
	timeout  time.Duration
}

// NewAutolocker returns an autolocker with the given idle timeout and no
// armed deadline.
func NewAutolocker(timeout time.Duration) *Autolocker {
	return &Autolocker{timeout: timeout}
}

// UpdateNextLockTime pushes the deadline forward from now. With enable
// false the deadline only moves if one is already armed, so activity while
// locked or logged out does not arm the timer.
func (a *Autolocker) UpdateNextLockTime(enable bool) {
	if a.timeout <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if enable || !a.deadline.IsZero() {
		a.deadline = timecache.CachedTime().Add(a.timeout)
	}
}

// Clear disarms the deadline. Called on lock and logout.
func (a *Autolocker) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deadline = time.Time{}
}

// ShouldLock reports whether an armed deadline has passed.
func (a *Autolocker) ShouldLock() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.deadline.IsZero() && timecache.CachedTime().After(a.deadline)
}
