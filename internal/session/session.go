// Package session implements the stateless admin session: a signed token
// codec, the admin password check, and the cookie that carries the token.
//
// Token format:
//
//	base64url( JSON(claim) + "." + base64url( HMAC-SHA256(secret, JSON(claim)) ) )
//
// The token is signed, not encrypted. It carries no expiry; the cookie
// Max-Age bounds its lifetime.
package session

import (
	"errors"

	"github.com/prn-tf/sigil/internal/domain"
)

// Cookie settings.
const (
	CookieName = "admin_session"

	// MaxAge is the cookie lifetime in seconds (30 days).
	MaxAge = 30 * 24 * 60 * 60
)

// ErrInvalidClaim is returned when encoding a claim that could never be decoded.
var ErrInvalidClaim = errors.New("only admin claims can be encoded")

// secretKey converts the configured secret, reporting a missing one as a
// configuration error.
func secretKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, domain.NewConfigError("session", "auth.admin_password")
	}
	return []byte(secret), nil
}
