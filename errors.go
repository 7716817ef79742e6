// errors.go: Sentinel errors and error codes shared across the package.

package vault

import (
	"errors"
)

// Public standard errors for use with errors.Is().
// Rich error details are attached through github.com/agilira/go-errors.
var (
	// ErrInvalidKeyLength is returned when decrypted or supplied key
	// material does not have the expected length.
	ErrInvalidKeyLength = errors.New("vault: decrypted key length was invalid")

	// ErrMacVerification is returned when the HMAC over an envelope does
	// not match. This is the only local password-correctness signal.
	ErrMacVerification = errors.New("vault: MAC verification failed")

	// ErrInvalidCipherFormat is returned when an envelope string has the
	// wrong structure or invalid base64 segments.
	ErrInvalidCipherFormat = errors.New("vault: cipher string was in an invalid format")

	// ErrUnknownEncType is returned when the envelope type code is not one
	// of the seven known values.
	ErrUnknownEncType = errors.New("vault: unknown cipher encryption type")

	// ErrInvalidKeyTypeForCipher is returned when an envelope is routed to
	// a decrypt path that takes the wrong kind of key (symmetric envelope
	// to the RSA path or vice versa).
	ErrInvalidKeyTypeForCipher = errors.New("vault: invalid key type for cipher")

	// ErrInvalidPadding is returned when PKCS#7 unpadding fails after a
	// successful MAC check.
	ErrInvalidPadding = errors.New("vault: invalid padding while decrypting")

	// ErrInvalidKDFParams is returned when Argon2id cost parameters are
	// outside the algorithm's legal range.
	ErrInvalidKDFParams = errors.New("vault: invalid KDF parameters")

	// ErrKDF is returned on an internal key-derivation failure.
	ErrKDF = errors.New("vault: error with KDF")

	// ErrRSA is returned when an RSA wrap or unwrap operation fails.
	ErrRSA = errors.New("vault: RSA operation failed")

	// ErrCipherDecryption is returned for decryption failures that are not
	// one of the more specific cases above.
	ErrCipherDecryption = errors.New("vault: cipher decryption failed")

	// ErrPoolExhausted is returned when the locked buffer pool has no free
	// slot. Allocation never blocks.
	ErrPoolExhausted = errors.New("vault: secure buffer pool exhausted")

	// ErrCapacity is returned when an insert would not fit into a
	// SecretString's remaining capacity.
	ErrCapacity = errors.New("vault: secret string capacity exceeded")

	// ErrRefreshLoop is returned when a token still needs a refresh
	// immediately after one; the session must be terminated.
	ErrRefreshLoop = errors.New("vault: token refresh loop detected")
)

// Error codes for rich error handling.
const (
	ErrCodeInvalidKeyLength = "VAULT_INVALID_KEY_LENGTH"
	ErrCodeMacVerification  = "VAULT_MAC_VERIFICATION"
	ErrCodeCipherFormat     = "VAULT_CIPHER_FORMAT"
	ErrCodeUnknownEncType   = "VAULT_UNKNOWN_ENC_TYPE"
	ErrCodeInvalidKeyType   = "VAULT_INVALID_KEY_TYPE"
	ErrCodeInvalidPadding   = "VAULT_INVALID_PADDING"
	ErrCodeInvalidKDFParams = "VAULT_INVALID_KDF_PARAMS"
	ErrCodeKDF              = "VAULT_KDF"
	ErrCodeRSA              = "VAULT_RSA"
	ErrCodeDecrypt          = "VAULT_DECRYPT"
	ErrCodePoolExhausted    = "VAULT_POOL_EXHAUSTED"
	ErrCodeCapacity         = "VAULT_CAPACITY"
	ErrCodeRefreshLoop      = "VAULT_REFRESH_LOOP"
)
