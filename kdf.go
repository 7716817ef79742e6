// kdf.go: Password-stretching functions and master-key expansion.

package vault

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
)

// KDFFunction selects the password-stretching algorithm.
type KDFFunction int

const (
	// KDFPbkdf2 is PBKDF2-HMAC-SHA256 with the lowercased email as salt.
	KDFPbkdf2 KDFFunction = iota
	// KDFArgon2id is Argon2id with SHA-256(lowercased email) as salt.
	KDFArgon2id
)

// KDFParams are the cost parameters delivered by the API layer alongside a
// user's account. MemoryMiB and Parallelism are only meaningful for
// Argon2id.
type KDFParams struct {
	Function    KDFFunction `json:"kdf"`
	Iterations  uint32      `json:"iterations"`
	MemoryMiB   uint32      `json:"memory_mib,omitempty"`
	Parallelism uint32      `json:"parallelism,omitempty"`
}

// KDF derives a master key from the account email and password. Argon2id
// derivation with a nontrivial memory cost is long-running; callers dispatch
// it off the UI thread.
type KDF interface {
	CreateMasterKey(email string, password []byte) (*MasterKey, error)
}

// NewKDF returns the implementation selected by params.
func NewKDF(params KDFParams) KDF {
	switch params.Function {
	case KDFArgon2id:
		return &argon2idKDF{
			iterations:  params.Iterations,
			memoryKiB:   params.MemoryMiB * 1024,
			parallelism: params.Parallelism,
		}
	default:
		return &pbkdf2KDF{iterations: params.Iterations}
	}
}

// CreateMasterKey derives the master key for (email, password) using the
// function selected by params.
func CreateMasterKey(email string, password []byte, params KDFParams) (*MasterKey, error) {
	return NewKDF(params).CreateMasterKey(email, password)
}

type pbkdf2KDF struct {
	iterations uint32
}

func (k *pbkdf2KDF) CreateMasterKey(email string, password []byte) (*MasterKey, error) {
	if k.iterations == 0 {
		richErr := goerrors.New(ErrCodeInvalidKDFParams, "PBKDF2 iteration count must be positive")
		return nil, fmt.Errorf("%w: %w", ErrInvalidKDFParams, richErr)
	}

	// Email is always lowercased before use as salt.
	salt := []byte(strings.ToLower(email))
	mk := newMasterKey()
	derived := pbkdf2.Key(password, salt, int(k.iterations), CredentialLen, sha256.New)
	copy(mk.buf.Bytes(), derived)
	Zeroize(derived)
	return mk, nil
}

type argon2idKDF struct {
	iterations  uint32
	memoryKiB   uint32
	parallelism uint32
}

func (k *argon2idKDF) CreateMasterKey(email string, password []byte) (*MasterKey, error) {
	// x/crypto/argon2 panics on out-of-range costs, so the legality check
	// happens here and surfaces as a recoverable error.
	if k.iterations == 0 || k.parallelism == 0 || k.parallelism > 255 {
		richErr := goerrors.New(ErrCodeInvalidKDFParams, fmt.Sprintf("illegal Argon2id costs: t=%d p=%d", k.iterations, k.parallelism))
		return nil, fmt.Errorf("%w: %w", ErrInvalidKDFParams, richErr)
	}
	if k.memoryKiB < 8*k.parallelism {
		richErr := goerrors.New(ErrCodeInvalidKDFParams, fmt.Sprintf("Argon2id memory %d KiB below minimum for parallelism %d", k.memoryKiB, k.parallelism))
		return nil, fmt.Errorf("%w: %w", ErrInvalidKDFParams, richErr)
	}

	// The plain email is too short to be a legal Argon2 salt, so it is
	// pre-hashed to 32 bytes first.
	salt := sha256.Sum256([]byte(strings.ToLower(email)))

	mk := newMasterKey()
	derived := argon2.IDKey(password, salt[:], k.iterations, k.memoryKiB, uint8(k.parallelism), CredentialLen)
	copy(mk.buf.Bytes(), derived)
	Zeroize(derived)
	return mk, nil
}

// DeriveEncMacKeys derives an encryption/MAC key pair directly from a
// password and an arbitrary salt string, for wrapping auxiliary secrets
// (such as an API credential) under a password plus context string rather
// than an account email.
func DeriveEncMacKeys(kdf KDF, password []byte, salt string) (*EncMacKeys, error) {
	mk, err := kdf.CreateMasterKey(salt, password)
	if err != nil {
		return nil, err
	}
	defer mk.Destroy()
	return ExpandMasterKey(mk)
}

// ExpandMasterKey expands a master key into its encryption/MAC key pair
// using HKDF-SHA256 with the master key as the pseudorandom key and the
// info strings "enc" and "mac". Pure function of the master key.
func ExpandMasterKey(mk *MasterKey) (*EncMacKeys, error) {
	keys := newEncMacKeys()

	if err := hkdfExpand(mk.buf.Bytes(), "enc", keys.enc.buf.Bytes()); err != nil {
		keys.Destroy()
		return nil, err
	}
	if err := hkdfExpand(mk.buf.Bytes(), "mac", keys.mac.buf.Bytes()); err != nil {
		keys.Destroy()
		return nil, err
	}
	return keys, nil
}

func hkdfExpand(prk []byte, info string, out []byte) error {
	r := hkdf.Expand(sha256.New, prk, []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeKDF, "HKDF expand failed")
		return fmt.Errorf("%w: %w", ErrKDF, richErr)
	}
	return nil
}

// CreateMasterPasswordHash derives the hash sent to the server as the login
// credential: one PBKDF2-HMAC-SHA256 round with the master key as input and
// the password as salt. Never used for local decryption.
func CreateMasterPasswordHash(mk *MasterKey, password []byte) *MasterPasswordHash {
	h := newMasterPasswordHash()
	derived := pbkdf2.Key(mk.buf.Bytes(), password, 1, CredentialLen, sha256.New)
	copy(h.buf.Bytes(), derived)
	Zeroize(derived)
	return h
}
