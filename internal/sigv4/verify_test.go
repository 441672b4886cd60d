package sigv4

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupExample(accessKeyID string) (string, bool) {
	if accessKeyID == "AKIDEXAMPLE" {
		return exampleSecret, true
	}
	return "", false
}

func signedHTTPRequest(t *testing.T, req SignRequest) (*http.Request, []byte) {
	t.Helper()
	signed, err := NewSigner(testR2Config(true)).SignAt(req, fixedTime)
	require.NoError(t, err)
	httpReq, err := signed.HTTPRequest(context.Background())
	require.NoError(t, err)
	return httpReq, signed.Body
}

func TestVerifyAcceptsSignedRequests(t *testing.T) {
	tests := []struct {
		name string
		req  SignRequest
	}{
		{"list", SignRequest{Method: "GET", Query: map[string]string{"list-type": "2", "prefix": "diag/", "max-keys": "1"}}},
		{"put", SignRequest{
			Method:  "PUT",
			Key:     "diag/x.json",
			Headers: map[string]string{"Content-Type": "application/json", "Content-Length": "11"},
			Body:    []byte(`{"ok":true}`),
		}},
		{"get special key", SignRequest{Method: "GET", Key: "a dir/it's (1)*.txt"}},
		{"delete", SignRequest{Method: "DELETE", Key: "diag/x.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, body := signedHTTPRequest(t, tt.req)
			values, err := Verify(r, body, lookupExample, fixedTime.Add(time.Minute))
			require.NoError(t, err)
			assert.Equal(t, "AKIDEXAMPLE", values.Credential.AccessKey)
			assert.Equal(t, RegionAuto, values.Credential.Scope.Region)
		})
	}
}

func TestVerifyRejects(t *testing.T) {
	base := SignRequest{Method: "PUT", Key: "k", Body: []byte("payload")}

	t.Run("tampered body", func(t *testing.T) {
		r, _ := signedHTTPRequest(t, base)
		_, err := Verify(r, []byte("other"), lookupExample, fixedTime)
		assert.ErrorIs(t, err, ErrContentSHA256Mismatch)
	})

	t.Run("unsigned payload", func(t *testing.T) {
		r, body := signedHTTPRequest(t, base)
		r.Header.Set(HeaderContentSHA256, "UNSIGNED-PAYLOAD")
		_, err := Verify(r, body, lookupExample, fixedTime)
		assert.ErrorIs(t, err, ErrInvalidContentSHA256)
	})

	t.Run("tampered path", func(t *testing.T) {
		r, body := signedHTTPRequest(t, base)
		r.URL.Path = "/site-assets/other"
		_, err := Verify(r, body, lookupExample, fixedTime)
		assert.ErrorIs(t, err, ErrSignatureDoesNotMatch)
	})

	t.Run("tampered signature", func(t *testing.T) {
		r, body := signedHTTPRequest(t, base)
		auth := []byte(r.Header.Get("Authorization"))
		last := len(auth) - 1
		if auth[last] == '0' {
			auth[last] = '1'
		} else {
			auth[last] = '0'
		}
		r.Header.Set("Authorization", string(auth))
		_, err := Verify(r, body, lookupExample, fixedTime)
		assert.ErrorIs(t, err, ErrSignatureDoesNotMatch)
	})

	t.Run("unknown access key", func(t *testing.T) {
		r, body := signedHTTPRequest(t, base)
		_, err := Verify(r, body, func(string) (string, bool) { return "", false }, fixedTime)
		assert.ErrorIs(t, err, ErrInvalidAccessKeyID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		r, body := signedHTTPRequest(t, base)
		_, err := Verify(r, body, func(string) (string, bool) { return "nope", true }, fixedTime)
		assert.ErrorIs(t, err, ErrSignatureDoesNotMatch)
	})

	t.Run("clock skew", func(t *testing.T) {
		r, body := signedHTTPRequest(t, base)
		_, err := Verify(r, body, lookupExample, fixedTime.Add(MaxSkewTime+time.Second))
		assert.ErrorIs(t, err, ErrRequestTimeTooSkewed)
	})

	t.Run("missing authorization", func(t *testing.T) {
		r, body := signedHTTPRequest(t, base)
		r.Header.Del("Authorization")
		_, err := Verify(r, body, lookupExample, fixedTime)
		assert.ErrorIs(t, err, ErrInvalidAuthorizationHeader)
	})
}
