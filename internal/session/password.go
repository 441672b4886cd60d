package session

import "github.com/prn-tf/sigil/internal/pkg/crypto"

// Verifier checks submitted passwords against the admin secret.
type Verifier struct {
	key    []byte
	keyErr error
}

// NewVerifier creates a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	key, err := secretKey(secret)
	return &Verifier{key: key, keyErr: err}
}

// Configured returns domain.ErrNotConfigured when no secret is set.
func (v *Verifier) Configured() error {
	return v.keyErr
}

// Verify reports whether candidate equals the secret. It is false when no
// secret is configured.
func (v *Verifier) Verify(candidate string) bool {
	if v.keyErr != nil {
		return false
	}
	return crypto.ConstantTimeEqual([]byte(candidate), v.key)
}
