// keys.go: Secret key types and the unwrap operations between them.

package vault

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// CredentialLen is the size in bytes of every 256-bit credential: master
// key, master password hash, encryption key, MAC key.
const CredentialLen = 32

// MasterKey is the password-derived root of the local key hierarchy. Owned
// by the session for the lifetime of an authenticated session and destroyed
// on logout, lock, or KDF-parameter mismatch.
type MasterKey struct {
	buf *SecureBuffer
}

func newMasterKey() *MasterKey {
	return &MasterKey{buf: NewSecureBuffer(CredentialLen)}
}

// MasterKeyFromBase64 decodes a 32-byte master key from its base64 form.
func MasterKeyFromBase64(s string) (*MasterKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeInvalidKeyLength, "failed to decode base64 master key")
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
	}
	defer Zeroize(raw)
	if len(raw) != CredentialLen {
		richErr := goerrors.New(ErrCodeInvalidKeyLength, fmt.Sprintf("master key must be %d bytes, got %d", CredentialLen, len(raw)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
	}
	mk := newMasterKey()
	copy(mk.buf.Bytes(), raw)
	return mk, nil
}

// Base64 returns the base64 encoding of the key. Test and debug use only;
// the string is a normal heap allocation.
func (k *MasterKey) Base64() string {
	return base64.StdEncoding.EncodeToString(k.buf.Bytes())
}

// Clone returns an independent copy.
func (k *MasterKey) Clone() *MasterKey {
	return &MasterKey{buf: k.buf.Clone()}
}

// Destroy zeroizes the key material.
func (k *MasterKey) Destroy() {
	k.buf.Destroy()
}

// MasterPasswordHash is the server-side login credential derived from the
// master key. Not secret enough to restrict cloning, still zeroized on
// destroy, and never used for local decryption.
type MasterPasswordHash struct {
	buf *SecureBuffer
}

func newMasterPasswordHash() *MasterPasswordHash {
	return &MasterPasswordHash{buf: NewSecureBuffer(CredentialLen)}
}

// Base64 returns the wire form sent to the server.
func (h *MasterPasswordHash) Base64() string {
	return base64.StdEncoding.EncodeToString(h.buf.Bytes())
}

// Destroy zeroizes the hash.
func (h *MasterPasswordHash) Destroy() {
	h.buf.Destroy()
}

// EncryptionKey is the AES half of a stretched key pair.
type EncryptionKey struct {
	buf *SecureBuffer
}

func (k *EncryptionKey) data() []byte { return k.buf.Bytes() }

// MacKey is the HMAC half of a stretched key pair.
type MacKey struct {
	buf *SecureBuffer
}

func (k *MacKey) data() []byte { return k.buf.Bytes() }

// EncMacKeys is a stretched key pair: an encryption key and a MAC key,
// always held and used together.
type EncMacKeys struct {
	enc *EncryptionKey
	mac *MacKey
}

func newEncMacKeys() *EncMacKeys {
	return &EncMacKeys{
		enc: &EncryptionKey{buf: NewSecureBuffer(CredentialLen)},
		mac: &MacKey{buf: NewSecureBuffer(CredentialLen)},
	}
}

// Enc returns the encryption half.
func (k *EncMacKeys) Enc() *EncryptionKey { return k.enc }

// Mac returns the MAC half.
func (k *EncMacKeys) Mac() *MacKey { return k.mac }

// Clone returns an independent copy of both halves.
func (k *EncMacKeys) Clone() *EncMacKeys {
	return &EncMacKeys{
		enc: &EncryptionKey{buf: k.enc.buf.Clone()},
		mac: &MacKey{buf: k.mac.buf.Clone()},
	}
}

// Destroy zeroizes both halves.
func (k *EncMacKeys) Destroy() {
	k.enc.buf.Destroy()
	k.mac.buf.Destroy()
}

// EncMacKeysTotalLen is the serialized length of a key pair.
const EncMacKeysTotalLen = 2 * CredentialLen

// SecureGenerateKeys returns a fresh random key pair, used as the
// intermediate lock key protecting the lock-time session snapshot.
func SecureGenerateKeys() (*EncMacKeys, error) {
	keys := newEncMacKeys()
	if _, err := io.ReadFull(rand.Reader, keys.enc.buf.Bytes()); err != nil {
		keys.Destroy()
		richErr := goerrors.Wrap(err, ErrCodeKDF, "failed to generate encryption key")
		return nil, fmt.Errorf("%w: %w", ErrKDF, richErr)
	}
	if _, err := io.ReadFull(rand.Reader, keys.mac.buf.Bytes()); err != nil {
		keys.Destroy()
		richErr := goerrors.Wrap(err, ErrCodeKDF, "failed to generate MAC key")
		return nil, fmt.Errorf("%w: %w", ErrKDF, richErr)
	}
	return keys, nil
}

// StoreTo writes the serialized pair (enc key then MAC key) into buf.
func (k *EncMacKeys) StoreTo(buf []byte) error {
	if len(buf) < EncMacKeysTotalLen {
		richErr := goerrors.New(ErrCodeInvalidKeyLength, fmt.Sprintf("need %d bytes to store key pair, got %d", EncMacKeysTotalLen, len(buf)))
		return fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
	}
	copy(buf[:CredentialLen], k.enc.data())
	copy(buf[CredentialLen:EncMacKeysTotalLen], k.mac.data())
	return nil
}

// EncMacKeysFromSlice reads a serialized pair back from buf.
func EncMacKeysFromSlice(buf []byte) (*EncMacKeys, error) {
	if len(buf) != EncMacKeysTotalLen {
		richErr := goerrors.New(ErrCodeInvalidKeyLength, fmt.Sprintf("serialized key pair must be %d bytes, got %d", EncMacKeysTotalLen, len(buf)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyLength, richErr)
	}
	keys := newEncMacKeys()
	copy(keys.enc.buf.Bytes(), buf[:CredentialLen])
	copy(keys.mac.buf.Bytes(), buf[CredentialLen:])
	return keys, nil
}

// EncryptSerialized serializes this pair and wraps it under another pair.
// The inverse is DecryptEncMacKeys.
func (k *EncMacKeys) EncryptSerialized(wrapWith *EncMacKeys) (*Cipher, error) {
	scratch, err := AllocateLocked(EncMacKeysTotalLen)
	if err != nil {
		return nil, err
	}
	defer scratch.Release()

	if err := k.StoreTo(scratch.Bytes()); err != nil {
		return nil, err
	}
	return EncryptCipher(scratch.Bytes(), wrapWith)
}

// DecryptEncMacKeys unwraps a serialized key pair from a cipher envelope,
// decrypting into a locked scratch slot so the plaintext pair never touches
// pageable memory.
func DecryptEncMacKeys(c *Cipher, decryptWith *EncMacKeys) (*EncMacKeys, error) {
	scratch, err := AllocateLocked(LockedSlotCapacity)
	if err != nil {
		return nil, err
	}
	defer scratch.Release()

	plain, err := c.DecryptTo(decryptWith, scratch.Bytes())
	if err != nil {
		return nil, err
	}
	return EncMacKeysFromSlice(plain)
}

// DerPrivateKey holds a user's RSA private key in PKCS#8 DER form,
// zeroized on destroy.
type DerPrivateKey struct {
	buf *SecureBuffer
}

// NewDerPrivateKey takes ownership of DER-encoded private key bytes.
func NewDerPrivateKey(der []byte) *DerPrivateKey {
	b := NewSecureBuffer(len(der))
	copy(b.Bytes(), der)
	Zeroize(der)
	return &DerPrivateKey{buf: b}
}

func (k *DerPrivateKey) data() []byte { return k.buf.Bytes() }

// PublicKey parses the private key and returns its public half.
func (k *DerPrivateKey) PublicKey() (*rsa.PublicKey, error) {
	priv, err := parseRSAPrivateKey(k.data())
	if err != nil {
		return nil, err
	}
	return &priv.PublicKey, nil
}

// Destroy zeroizes the DER bytes.
func (k *DerPrivateKey) Destroy() {
	k.buf.Destroy()
}

func parseRSAPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeRSA, "reading RSA private key failed")
		return nil, fmt.Errorf("%w: %w", ErrRSA, richErr)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		richErr := goerrors.New(ErrCodeRSA, "private key is not an RSA key")
		return nil, fmt.Errorf("%w: %w", ErrRSA, richErr)
	}
	return priv, nil
}

// DecryptSymmetricKeys unwraps the user's stretched key pair from their
// wrapped-key envelope using the master key. The HMAC verification inside
// the unwrap is the local password-correctness check: a wrong password
// surfaces here as ErrMacVerification.
func DecryptSymmetricKeys(keyCipher *Cipher, mk *MasterKey) (*EncMacKeys, error) {
	keys, err := ExpandMasterKey(mk)
	if err != nil {
		return nil, err
	}
	defer keys.Destroy()
	return DecryptEncMacKeys(keyCipher, keys)
}

// DecryptItemKeys unwraps an item-level stretched key pair using the keys
// one level up the hierarchy (user or organization keys).
func DecryptItemKeys(keys *EncMacKeys, itemKeyCipher *Cipher) (*EncMacKeys, error) {
	return DecryptEncMacKeys(itemKeyCipher, keys)
}

// DecryptOrgKeys unwraps an organization's stretched key pair from its
// RSA-wrapped share key using the user's private key.
func DecryptOrgKeys(privateKey *DerPrivateKey, orgKeyCipher *Cipher) (*EncMacKeys, error) {
	plain, err := orgKeyCipher.DecryptWithPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	defer Zeroize(plain)
	return EncMacKeysFromSlice(plain)
}
