// Package vault implements the credential and session core of a password
// manager client: key derivation, the tagged cipher-envelope codec, the
// multi-level key hierarchy, and the session lifecycle that decides which
// keys may legally live in memory at any moment.
//
// The package offers:
//   - PBKDF2-HMAC-SHA256 and Argon2id master-key derivation from (email,
//     password, cost parameters), plus the master password hash sent to the
//     server as the login credential
//   - HKDF-SHA256 expansion of a master key into an encryption/MAC key pair
//   - The versioned cipher-envelope text format ("<type>.<iv>|<ct>|<mac>")
//     with AES-256-CBC+HMAC-SHA256 authenticated decryption/encryption and
//     RSA-OAEP-SHA1 unwrapping of organization share keys
//   - Key hierarchy resolution: user keys, organization keys (unwrapped via
//     the user's RSA private key), and optional per-item keys
//   - A typestate session machine (LoggedOut, LoggingIn, Refreshing,
//     LoggedIn, Unlocked, Locked, Unlocking) that owns the master key and
//     derived keys and re-encrypts UI-visible state across lock/unlock
//   - Zero-on-destroy secret buffers backed by a process-wide locked,
//     non-dumpable memory page
//
// # Decryption and the password check
//
// There is no standalone "is this password right" primitive. The only local
// correctness check is the HMAC verification performed when the user's
// wrapped symmetric key is decrypted:
//
//	mk, err := vault.NewKDF(params).CreateMasterKey(email, password)
//	if err != nil {
//		return err
//	}
//	keys, err := vault.DecryptSymmetricKeys(tokenKey, mk)
//	if errors.Is(err, vault.ErrMacVerification) {
//		// wrong password
//	}
//
// # Error handling
//
// All recoverable failures are reported as typed errors usable with
// errors.Is, carrying rich details through github.com/agilira/go-errors.
// Routing data through an envelope algorithm variant that is specified but
// deliberately unimplemented (legacy AES-CBC without MAC, RSA-OAEP-SHA256,
// the RSA+HMAC hybrids) panics: completing those paths with guessed logic
// would be a security regression, so misuse must fail loudly.
//
// # Concurrency
//
// Key derivation and envelope operations are synchronous, pure-CPU calls.
// Key hierarchy resolution is read-only per item and safe to parallelize
// across a vault; OrgKeysForVault does so. The session machine itself is not
// thread-safe and must be driven from a single owner context.
package vault
