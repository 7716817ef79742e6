// apikey_test.go: Test cases for password-wrapped API credentials.

package vault_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vault "github.com/teiwaz/keywarden"
)

func TestAPIKeyEncryptDecryptRoundTrip(t *testing.T) {
	key := vault.NewAPIKey(userEmail, "client-id", "client-secret")
	enc, err := key.Encrypt("default", userEmail, userPassword)
	require.NoError(t, err)
	require.NotNil(t, enc.EncryptedKey)
	assert.Equal(t, vault.KDFArgon2id, enc.KDFParams.Function)

	back, err := vault.DecryptAPIKey(enc, "default", userEmail, userPassword)
	require.NoError(t, err)
	assert.Equal(t, key, back)
}

func TestDecryptAPIKey_WrongPassword(t *testing.T) {
	key := vault.NewAPIKey(userEmail, "client-id", "client-secret")
	enc, err := key.Encrypt("default", userEmail, userPassword)
	require.NoError(t, err)

	_, err = vault.DecryptAPIKey(enc, "default", userEmail, "wrong password")
	assert.ErrorIs(t, err, vault.ErrMacVerification)
}

func TestDecryptAPIKey_SaltBindsProfileAndEmail(t *testing.T) {
	key := vault.NewAPIKey(userEmail, "client-id", "client-secret")
	enc, err := key.Encrypt("default", userEmail, userPassword)
	require.NoError(t, err)

	// Moving the wrapped key to another profile or account changes the
	// derivation salt and must fail the MAC check.
	_, err = vault.DecryptAPIKey(enc, "other-profile", userEmail, userPassword)
	assert.ErrorIs(t, err, vault.ErrMacVerification)

	_, err = vault.DecryptAPIKey(enc, "default", "other@example.com", userPassword)
	assert.ErrorIs(t, err, vault.ErrMacVerification)
}
