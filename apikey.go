// apikey.go: Password-wrapped storage of API credentials.

package vault

import (
	"encoding/json"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// defaultAPIKeyKDFParams follows the OWASP Argon2id recommendation for
// password storage.
var defaultAPIKeyKDFParams = KDFParams{
	Function:    KDFArgon2id,
	Iterations:  2,
	MemoryMiB:   19,
	Parallelism: 1,
}

// APIKey is an API credential used for non-interactive login.
type APIKey struct {
	Email        string `json:"email"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// EncryptedAPIKey is an APIKey wrapped under the user's master password for
// storage on disk, with the KDF parameters needed to unwrap it again.
type EncryptedAPIKey struct {
	EncryptedKey *Cipher   `json:"encrypted_key"`
	KDFParams    KDFParams `json:"pbkdf_params"`
}

// NewAPIKey returns an APIKey for the given credential triple.
func NewAPIKey(email, clientID, clientSecret string) *APIKey {
	return &APIKey{Email: email, ClientID: clientID, ClientSecret: clientSecret}
}

// Encrypt wraps the credential under (password, profile, email). The
// profile and email are bound into the derivation salt so a wrapped key
// cannot be moved between profiles or accounts.
func (k *APIKey) Encrypt(profile, email, password string) (*EncryptedAPIKey, error) {
	serialized, err := json.Marshal(k)
	if err != nil {
		richErr := goerrors.Wrap(err, ErrCodeCipherFormat, "serializing API key failed")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
	}
	defer Zeroize(serialized)

	keys, err := apiKeyEncryptionKeys(profile, email, password, defaultAPIKeyKDFParams)
	if err != nil {
		return nil, err
	}
	defer keys.Destroy()

	c, err := EncryptCipher(serialized, keys)
	if err != nil {
		return nil, err
	}
	return &EncryptedAPIKey{EncryptedKey: c, KDFParams: defaultAPIKeyKDFParams}, nil
}

// DecryptAPIKey unwraps a stored credential with the same inputs it was
// wrapped under. A wrong password fails the MAC check inside the decrypt.
func DecryptAPIKey(enc *EncryptedAPIKey, profile, email, password string) (*APIKey, error) {
	keys, err := apiKeyEncryptionKeys(profile, email, password, enc.KDFParams)
	if err != nil {
		return nil, err
	}
	defer keys.Destroy()

	serialized, err := enc.EncryptedKey.Decrypt(keys)
	if err != nil {
		return nil, err
	}
	defer Zeroize(serialized)

	var k APIKey
	if err := json.Unmarshal(serialized, &k); err != nil {
		richErr := goerrors.Wrap(err, ErrCodeCipherFormat, "parsing API key failed")
		return nil, fmt.Errorf("%w: %w", ErrInvalidCipherFormat, richErr)
	}
	return &k, nil
}

func apiKeyEncryptionSalt(profile, email string) string {
	return fmt.Sprintf("APIKEYENCRYPTION:%s:%s", profile, email)
}

func apiKeyEncryptionKeys(profile, email, password string, params KDFParams) (*EncMacKeys, error) {
	salt := apiKeyEncryptionSalt(profile, email)
	return DeriveEncMacKeys(NewKDF(params), []byte(password), salt)
}
