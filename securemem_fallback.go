//go:build !linux

// securemem_fallback.go: Plain allocation where page locking is unsupported.

package vault

import "errors"

func allocLockedPage(size int) ([]byte, error) {
	return nil, errors.New("page locking not supported on this platform")
}
