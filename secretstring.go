// secretstring.go: Fixed-capacity secret text buffer with in-place editing.

package vault

import (
	"fmt"
	"unicode/utf8"

	goerrors "github.com/agilira/go-errors"
)

// SecretString is a fixed-maximum-length text buffer for secrets typed by
// the user (passwords, search filters). Edits happen in place over a fixed
// backing array, without intermediate heap allocations that could leave
// copies of the secret behind, and the whole backing array can be wiped.
//
// The buffer content is valid UTF-8 at all times. Byte offsets passed to
// InsertRune and RemoveRune must lie on rune boundaries within the current
// length; violating that is a caller bug (the driving cursor is maintained
// on boundaries) and panics rather than returning an error.
type SecretString struct {
	buf [SecretStringCapacity]byte
	n   int
}

// SecretStringCapacity is the fixed backing size of a SecretString in bytes.
const SecretStringCapacity = 1024

// Len returns the current length in bytes.
func (s *SecretString) Len() int {
	return s.n
}

// String returns the current content. The returned string is a copy; prefer
// Bytes for paths that must avoid stray heap copies.
func (s *SecretString) String() string {
	return string(s.buf[:s.n])
}

// Bytes returns a view of the current content. Invalidated by any mutation.
func (s *SecretString) Bytes() []byte {
	return s.buf[:s.n]
}

// SetString replaces the content. Returns ErrCapacity if v does not fit.
func (s *SecretString) SetString(v string) error {
	if len(v) > len(s.buf) {
		richErr := goerrors.New(ErrCodeCapacity, fmt.Sprintf("%d bytes do not fit in capacity %d", len(v), len(s.buf)))
		return fmt.Errorf("%w: %w", ErrCapacity, richErr)
	}
	s.Wipe()
	copy(s.buf[:], v)
	s.n = len(v)
	return nil
}

// InsertRune inserts r at byte offset off. Returns ErrCapacity without
// mutating the buffer if the rune's encoding does not fit the remaining
// capacity. Panics if off is past the end or not on a rune boundary.
func (s *SecretString) InsertRune(off int, r rune) error {
	rl := utf8.RuneLen(r)
	if rl < 0 {
		richErr := goerrors.New(ErrCodeCapacity, "rune is not encodable as UTF-8")
		return fmt.Errorf("%w: %w", ErrCapacity, richErr)
	}
	if len(s.buf)-s.n < rl {
		richErr := goerrors.New(ErrCodeCapacity, fmt.Sprintf("rune needs %d bytes, %d remain", rl, len(s.buf)-s.n))
		return fmt.Errorf("%w: %w", ErrCapacity, richErr)
	}

	if off > s.n {
		panic("vault: tried to insert past the end of a SecretString")
	}
	if !s.isRuneBoundary(off) {
		panic("vault: tried to insert off a rune boundary in a SecretString")
	}

	// Grow the logical length, shift the tail forward to open a gap, then
	// encode the rune into the gap.
	prev := s.n
	s.n += rl
	copy(s.buf[off+rl:s.n], s.buf[off:prev])
	utf8.EncodeRune(s.buf[off:off+rl], r)
	return nil
}

// RemoveRune removes the rune starting at byte offset off and returns it.
// Panics if off is at or past the end or not on a rune boundary.
func (s *SecretString) RemoveRune(off int) rune {
	if off >= s.n {
		panic("vault: tried to remove past the end of a SecretString")
	}
	if !s.isRuneBoundary(off) {
		panic("vault: tried to remove off a rune boundary in a SecretString")
	}

	r, rl := utf8.DecodeRune(s.buf[off:s.n])
	copy(s.buf[off:], s.buf[off+rl:s.n])
	// Clear the vacated tail so removed secret bytes do not linger.
	Zeroize(s.buf[s.n-rl : s.n])
	s.n -= rl
	return r
}

// Wipe zeroizes the entire backing array, including bytes beyond the
// current length, and resets the buffer to empty.
func (s *SecretString) Wipe() {
	Zeroize(s.buf[:])
	s.n = 0
}

func (s *SecretString) isRuneBoundary(off int) bool {
	if off == 0 || off == s.n {
		return true
	}
	return !isUTF8Continuation(s.buf[off])
}

func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}
