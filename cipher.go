// cipher.go: The tagged cipher envelope codec and its crypto operations.

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	goerrors "github.com/agilira/go-errors"
)

// EncType is the envelope algorithm code, the digit before the first '.' in
// the text encoding.
type EncType int

const (
	// AesCbc256B64 is legacy AES-256-CBC without a MAC. Parsing and
	// decryption of this variant are hard stops.
	AesCbc256B64 EncType = 0
	// AesCbc128HmacSha256B64 decryption is a hard stop.
	AesCbc128HmacSha256B64 EncType = 1
	// AesCbc256HmacSha256B64 is the only fully implemented symmetric
	// variant and the one all current envelopes use.
	AesCbc256HmacSha256B64 EncType = 2
	// Rsa2048OaepSha256B64 decryption is a hard stop.
	Rsa2048OaepSha256B64 EncType = 3
	// Rsa2048OaepSha1B64 is the implemented asymmetric variant, used for
	// organization share keys.
	Rsa2048OaepSha1B64 EncType = 4
	// Rsa2048OaepSha256HmacSha256B64 is a hard stop.
	Rsa2048OaepSha256HmacSha256B64 EncType = 5
	// Rsa2048OaepSha1HmacSha256B64 is a hard stop.
	Rsa2048OaepSha1HmacSha256B64 EncType = 6
)

// HasIV reports whether the envelope body carries an IV segment.
func (t EncType) HasIV() bool {
	return t == AesCbc256B64 || t == AesCbc128HmacSha256B64 || t == AesCbc256HmacSha256B64
}

// HasMAC reports whether the envelope body carries a MAC segment.
func (t EncType) HasMAC() bool {
	return t != AesCbc256B64 && t != Rsa2048OaepSha1B64 && t != Rsa2048OaepSha256B64
}

func parseEncType(s string) (EncType, error) {
	switch s {
	case "0":
		return AesCbc256B64, nil
	case "1":
		return AesCbc128HmacSha256B64, nil
	case "2":
		return AesCbc256HmacSha256B64, nil
	case "3":
		return Rsa2048OaepSha256B64, nil
	case "4":
		return Rsa2048OaepSha1B64, nil
	case "5":
		return Rsa2048OaepSha256HmacSha256B64, nil
	case "6":
		return Rsa2048OaepSha1HmacSha256B64, nil
	default:
		richErr := goerrors.New(ErrCodeUnknownEncType, fmt.Sprintf("unknown cipher encryption type %q", s))
		return 0, fmt.Errorf("%w: %w", ErrUnknownEncType, richErr)
	}
}

// Cipher is one parsed envelope: either the Empty variant (an absent or
// optional field, decrypting to nothing) or a value with an algorithm code
// and its IV/ciphertext/MAC segments. Immutable once parsed.
//
// The zero value is the Empty variant.
type Cipher struct {
	valued  bool
	encType EncType
	iv      []byte
	ct      []byte
	mac     []byte
}

// IsEmpty reports whether this is the Empty variant.
func (c *Cipher) IsEmpty() bool {
	return !c.valued
}

// EncType returns the algorithm code. Only meaningful for non-Empty
// envelopes.
func (c *Cipher) EncType() EncType {
	return c.encType
}

// ParseCipher parses the text encoding "<type>.<iv b64>|<ct b64>|<mac b64>"
// (or "<type>.<ct b64>" for IV-and-MAC-less types). An empty input parses to
// the Empty variant.
func ParseCipher(s string) (*Cipher, error) {
	if s == "" {
		return &Cipher{}, nil
	}

	typeStr, body, found := strings.Cut(s, ".")
	if !found {
		richErr := goerrors.New(ErrCodeCipherFormat, "missing '.' separator")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
	}
	encType, err := parseEncType(typeStr)
	if err != nil {
		return nil, err
	}

	switch {
	case encType.HasIV() && encType.HasMAC():
		parts := strings.Split(body, "|")
		if len(parts) != 3 {
			richErr := goerrors.New(ErrCodeCipherFormat, fmt.Sprintf("expected 3 body segments, got %d", len(parts)))
			return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
		}
		iv, err := decodeCipherSegment(parts[0])
		if err != nil {
			return nil, err
		}
		ct, err := decodeCipherSegment(parts[1])
		if err != nil {
			return nil, err
		}
		mac, err := decodeCipherSegment(parts[2])
		if err != nil {
			return nil, err
		}
		return &Cipher{valued: true, encType: encType, iv: iv, ct: ct, mac: mac}, nil

	case !encType.HasIV() && !encType.HasMAC():
		ct, err := decodeCipherSegment(body)
		if err != nil {
			return nil, err
		}
		return &Cipher{valued: true, encType: encType, ct: ct}, nil

	default:
		// No body layout exists for the IV-without-MAC and MAC-without-IV
		// combinations; reaching one means an unimplemented legacy variant.
		panic(fmt.Sprintf("vault: no body layout for cipher encryption type %d", encType))
	}
}

func decodeCipherSegment(s string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeCipherFormat, "invalid base64 in cipher segment")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
	}
	return raw, nil
}

// Encode returns the text encoding, the exact inverse of ParseCipher. The
// Empty variant encodes to the empty string.
func (c *Cipher) Encode() string {
	if !c.valued {
		return ""
	}
	ct := base64.StdEncoding.EncodeToString(c.ct)
	switch {
	case c.encType.HasIV() && c.encType.HasMAC():
		iv := base64.StdEncoding.EncodeToString(c.iv)
		mac := base64.StdEncoding.EncodeToString(c.mac)
		return fmt.Sprintf("%d.%s|%s|%s", c.encType, iv, ct, mac)
	case !c.encType.HasIV() && !c.encType.HasMAC():
		return fmt.Sprintf("%d.%s", c.encType, ct)
	default:
		panic(fmt.Sprintf("vault: no body layout for cipher encryption type %d", c.encType))
	}
}

// String returns the text encoding.
func (c *Cipher) String() string {
	return c.Encode()
}

// MarshalJSON encodes the envelope as its text form.
func (c *Cipher) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Encode())
}

// UnmarshalJSON accepts a cipher string or null; null parses to Empty.
func (c *Cipher) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*c = Cipher{}
		return nil
	}
	parsed, err := ParseCipher(*s)
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// Decrypt decrypts a symmetric envelope with a stretched key pair. The
// Empty variant decrypts to an empty slice. RSA envelopes return
// ErrInvalidKeyTypeForCipher; unimplemented symmetric variants abort.
func (c *Cipher) Decrypt(keys *EncMacKeys) ([]byte, error) {
	if !c.valued {
		return []byte{}, nil
	}
	switch c.encType {
	case AesCbc256HmacSha256B64:
		return c.decryptAesCbc256HmacSha256(keys)
	case AesCbc256B64:
		panic("vault: AES-256-CBC without MAC decryption is not implemented")
	case AesCbc128HmacSha256B64:
		panic("vault: AES-128-CBC decryption is not implemented")
	default:
		richErr := goerrors.New(ErrCodeInvalidKeyType, fmt.Sprintf("symmetric decrypt of RSA cipher type %d", c.encType))
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyTypeForCipher, richErr)
	}
}

// DecryptTo is Decrypt writing the plaintext into a caller-supplied buffer,
// for use with locked pool slots. Returns the written prefix of buf.
func (c *Cipher) DecryptTo(keys *EncMacKeys, buf []byte) ([]byte, error) {
	if !c.valued {
		return buf[:0], nil
	}
	switch c.encType {
	case AesCbc256HmacSha256B64:
		return c.decryptAesCbc256HmacSha256To(keys, buf)
	case AesCbc256B64:
		panic("vault: AES-256-CBC without MAC decryption is not implemented")
	case AesCbc128HmacSha256B64:
		panic("vault: AES-128-CBC decryption is not implemented")
	default:
		richErr := goerrors.New(ErrCodeInvalidKeyType, fmt.Sprintf("symmetric decrypt of RSA cipher type %d", c.encType))
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyTypeForCipher, richErr)
	}
}

// DecryptToString decrypts to a string for display. Failures, including
// plaintext that is not valid UTF-8, are logged and yield an empty string;
// callers rendering vault fields treat undecryptable values as blank rather
// than failing the whole view.
func (c *Cipher) DecryptToString(keys *EncMacKeys) string {
	plain, err := c.Decrypt(keys)
	if err != nil {
		slog.Warn("error decrypting cipher", "error", err)
		return ""
	}
	if !utf8.Valid(plain) {
		slog.Warn("decrypted data is not valid UTF-8")
		return ""
	}
	return string(plain)
}

func (c *Cipher) verifyMac(keys *EncMacKeys) error {
	h := hmac.New(sha256.New, keys.mac.data())
	h.Write(c.iv)
	h.Write(c.ct)
	if !hmac.Equal(h.Sum(nil), c.mac) {
		richErr := goerrors.New(ErrCodeMacVerification, "cipher MAC did not match")
		return fmt.Errorf("%w: %w", ErrMacVerification, richErr)
	}
	return nil
}

func (c *Cipher) newCBCDecrypter(keys *EncMacKeys) (cipher.BlockMode, error) {
	block, err := aes.NewCipher(keys.enc.data())
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeDecrypt, "initializing AES failed")
		return nil, fmt.Errorf("%w: %w", ErrCipherDecryption, richErr)
	}
	if len(c.iv) != block.BlockSize() {
		richErr := goerrors.New(ErrCodeDecrypt, fmt.Sprintf("IV must be %d bytes, got %d", block.BlockSize(), len(c.iv)))
		return nil, fmt.Errorf("%w: %w", ErrCipherDecryption, richErr)
	}
	if len(c.ct) == 0 || len(c.ct)%block.BlockSize() != 0 {
		richErr := goerrors.New(ErrCodeInvalidPadding, fmt.Sprintf("ciphertext length %d is not a positive multiple of the block size", len(c.ct)))
		return nil, fmt.Errorf("%w: %w", ErrInvalidPadding, richErr)
	}
	return cipher.NewCBCDecrypter(block, c.iv), nil
}

func (c *Cipher) decryptAesCbc256HmacSha256(keys *EncMacKeys) ([]byte, error) {
	if err := c.verifyMac(keys); err != nil {
		return nil, err
	}
	dec, err := c.newCBCDecrypter(keys)
	if err != nil {
		return nil, err
	}

	padded := make([]byte, len(c.ct))
	dec.CryptBlocks(padded, c.ct)
	plain, err := pkcs7Unpad(padded, dec.BlockSize())
	if err != nil {
		Zeroize(padded)
		return nil, err
	}
	return plain, nil
}

func (c *Cipher) decryptAesCbc256HmacSha256To(keys *EncMacKeys, buf []byte) ([]byte, error) {
	if err := c.verifyMac(keys); err != nil {
		return nil, err
	}
	dec, err := c.newCBCDecrypter(keys)
	if err != nil {
		return nil, err
	}
	if len(buf) < len(c.ct) {
		richErr := goerrors.New(ErrCodeDecrypt, fmt.Sprintf("output buffer of %d bytes cannot hold %d ciphertext bytes", len(buf), len(c.ct)))
		return nil, fmt.Errorf("%w: %w", ErrCipherDecryption, richErr)
	}

	dec.CryptBlocks(buf[:len(c.ct)], c.ct)
	plain, err := pkcs7Unpad(buf[:len(c.ct)], dec.BlockSize())
	if err != nil {
		Zeroize(buf[:len(c.ct)])
		return nil, err
	}
	return plain, nil
}

func pkcs7Unpad(padded []byte, blockSize int) ([]byte, error) {
	n := int(padded[len(padded)-1])
	if n == 0 || n > blockSize || n > len(padded) {
		richErr := goerrors.New(ErrCodeInvalidPadding, "illegal padding length")
		return nil, fmt.Errorf("%w: %w", ErrInvalidPadding, richErr)
	}
	for _, b := range padded[len(padded)-n:] {
		if int(b) != n {
			richErr := goerrors.New(ErrCodeInvalidPadding, "inconsistent padding bytes")
			return nil, fmt.Errorf("%w: %w", ErrInvalidPadding, richErr)
		}
	}
	return padded[:len(padded)-n], nil
}

func pkcs7Pad(plain []byte, blockSize int) []byte {
	n := blockSize - len(plain)%blockSize
	padded := make([]byte, len(plain)+n)
	copy(padded, plain)
	for i := len(plain); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

// EncryptCipher encrypts content into a fresh AES-256-CBC+HMAC-SHA256
// envelope with a random IV. The only symmetric variant produced.
func EncryptCipher(content []byte, keys *EncMacKeys) (*Cipher, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeDecrypt, "generating IV failed")
		return nil, fmt.Errorf("%w: %w", ErrCipherDecryption, richErr)
	}

	block, err := aes.NewCipher(keys.enc.data())
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeDecrypt, "initializing AES failed")
		return nil, fmt.Errorf("%w: %w", ErrCipherDecryption, richErr)
	}

	padded := pkcs7Pad(content, block.BlockSize())
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)
	Zeroize(padded)

	h := hmac.New(sha256.New, keys.mac.data())
	h.Write(iv)
	h.Write(ct)

	return &Cipher{
		valued:  true,
		encType: AesCbc256HmacSha256B64,
		iv:      iv,
		ct:      ct,
		mac:     h.Sum(nil),
	}, nil
}

// EncryptWithPublicKey wraps content under an RSA public key with OAEP-SHA1,
// the variant the counterpart decrypt expects.
func EncryptWithPublicKey(content []byte, publicKey *rsa.PublicKey) (*Cipher, error) {
	ct, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, publicKey, content, nil)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeRSA, "RSA encryption failed")
		return nil, fmt.Errorf("%w: %w", ErrRSA, richErr)
	}
	return &Cipher{valued: true, encType: Rsa2048OaepSha1B64, ct: ct}, nil
}

// DecryptWithPrivateKey unwraps an asymmetric envelope with an RSA private
// key. The Empty variant decrypts to an empty slice. Symmetric envelopes
// return ErrInvalidKeyTypeForCipher; unimplemented RSA variants abort.
func (c *Cipher) DecryptWithPrivateKey(privateKey *DerPrivateKey) ([]byte, error) {
	if !c.valued {
		return []byte{}, nil
	}
	switch c.encType {
	case Rsa2048OaepSha1B64:
		return c.decryptRsa2048OaepSha1(privateKey)
	case Rsa2048OaepSha256B64:
		panic("vault: RSA-OAEP-SHA256 decryption is not implemented")
	case Rsa2048OaepSha256HmacSha256B64:
		panic("vault: RSA-OAEP-SHA256 with HMAC decryption is not implemented")
	case Rsa2048OaepSha1HmacSha256B64:
		panic("vault: RSA-OAEP-SHA1 with HMAC decryption is not implemented")
	default:
		richErr := goerrors.New(ErrCodeInvalidKeyType, fmt.Sprintf("asymmetric decrypt of AES cipher type %d", c.encType))
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeyTypeForCipher, richErr)
	}
}

func (c *Cipher) decryptRsa2048OaepSha1(privateKey *DerPrivateKey) ([]byte, error) {
	priv, err := parseRSAPrivateKey(privateKey.data())
	if err != nil {
		return nil, err
	}
	plain, err := rsa.DecryptOAEP(sha1.New(), nil, priv, c.ct, nil)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeRSA, "RSA decryption failed")
		return nil, fmt.Errorf("%w: %w", ErrRSA, richErr)
	}
	return plain, nil
}
