// token.go: Session token lifetime tracking.

package vault

import (
	"fmt"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// refreshMargin is how long before actual expiry a token is already
// considered stale, so a refresh lands well ahead of rejected requests.
const refreshMargin = 4 * time.Minute

// Token is the session credential returned by the server, together with the
// user's wrapped key material that rides along in the token response.
type Token struct {
	// Key is the user's symmetric key pair wrapped under the master key.
	Key *Cipher `json:"key"`
	// PrivateKey is the user's RSA private key wrapped under the
	// symmetric keys.
	PrivateKey *Cipher `json:"privateKey"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    uint32 `json:"expires_in"`

	// Timestamp is when the token was received, not part of the wire
	// response.
	Timestamp time.Time `json:"-"`
}

// NewToken stamps a freshly received token with the current time.
func NewToken(key, privateKey *Cipher, accessToken, refreshToken string, expiresIn uint32) *Token {
	return &Token{
		Key:          key,
		PrivateKey:   privateKey,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		Timestamp:    timecache.CachedTime(),
	}
}

// TimeToExpiry returns the remaining token lifetime, or false if the token
// has already expired.
func (t *Token) TimeToExpiry() (time.Duration, bool) {
	expiresAt := t.Timestamp.Add(time.Duration(t.ExpiresIn) * time.Second)
	left := expiresAt.Sub(timecache.CachedTime())
	if left < 0 {
		return 0, false
	}
	return left, true
}

// ShouldRefresh reports whether the token is expired or expiring soon.
func (t *Token) ShouldRefresh() bool {
	left, ok := t.TimeToExpiry()
	return !ok || left < refreshMargin
}

// CheckRefreshLoop returns ErrRefreshLoop when a token still needs a
// refresh immediately after one. Retrying would loop forever, so the
// caller must terminate the session instead.
func CheckRefreshLoop(t *Token, justRefreshed bool) error {
	if justRefreshed && t.ShouldRefresh() {
		richErr := goerrors.New(ErrCodeRefreshLoop, "token still stale immediately after refresh")
		return fmt.Errorf("%w: %w", ErrRefreshLoop, richErr)
	}
	return nil
}
