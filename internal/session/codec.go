package session

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/metrics"
	"github.com/prn-tf/sigil/internal/pkg/crypto"
)

var encoding = base64.RawURLEncoding

// Decode failure reasons. They are logged and counted, never returned.
var (
	errUnconfigured = errors.New("unconfigured")
	errMalformed    = errors.New("malformed")
	errSignature    = errors.New("signature")
	errClaim        = errors.New("claim")
)

// Codec encodes and decodes admin session tokens.
type Codec struct {
	key    []byte
	keyErr error
	logger zerolog.Logger
}

// NewCodec creates a Codec keyed by secret. An empty secret yields a Codec
// whose Encode fails with domain.ErrNotConfigured and whose Decode rejects
// every token.
func NewCodec(secret string, logger zerolog.Logger) *Codec {
	key, err := secretKey(secret)
	return &Codec{
		key:    key,
		keyErr: err,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// Encode produces a token for claim.
func (c *Codec) Encode(claim domain.AdminClaim) (string, error) {
	if c.keyErr != nil {
		return "", c.keyErr
	}
	if !claim.IsAdmin {
		return "", ErrInvalidClaim
	}

	payload, err := json.Marshal(claim)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claim: %w", err)
	}

	signed := string(payload) + "." + c.sign(payload)
	return encoding.EncodeToString([]byte(signed)), nil
}

// Decode verifies token and returns its claim. It reports false for every
// token that is not a well-formed, correctly signed admin claim.
func (c *Codec) Decode(token string) (domain.AdminClaim, bool) {
	claim, err := c.decode(token)
	if err != nil {
		metrics.RecordSessionDecode(err.Error())
		c.logger.Debug().Str("reason", err.Error()).Msg("session token rejected")
		return domain.AdminClaim{}, false
	}
	metrics.RecordSessionDecode("valid")
	return claim, true
}

func (c *Codec) decode(token string) (domain.AdminClaim, error) {
	if c.keyErr != nil {
		return domain.AdminClaim{}, errUnconfigured
	}

	raw, err := encoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil || len(raw) == 0 {
		return domain.AdminClaim{}, errMalformed
	}

	sep := bytes.LastIndexByte(raw, '.')
	if sep < 0 {
		return domain.AdminClaim{}, errMalformed
	}
	payload, signature := raw[:sep], raw[sep+1:]

	if !crypto.ConstantTimeEqual([]byte(c.sign(payload)), signature) {
		return domain.AdminClaim{}, errSignature
	}

	return parseClaim(payload)
}

// sign returns the base64url HMAC-SHA256 of payload.
func (c *Codec) sign(payload []byte) string {
	return encoding.EncodeToString(crypto.HMACSHA256(c.key, payload))
}

// parseClaim accepts exactly {"isAdmin":true}: no unknown fields, no
// trailing data, no missing or false flag.
func parseClaim(payload []byte) (domain.AdminClaim, error) {
	var wire struct {
		IsAdmin *bool `json:"isAdmin"`
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return domain.AdminClaim{}, errClaim
	}
	if dec.More() {
		return domain.AdminClaim{}, errClaim
	}
	if wire.IsAdmin == nil || !*wire.IsAdmin {
		return domain.AdminClaim{}, errClaim
	}

	return domain.NewAdminClaim(), nil
}
