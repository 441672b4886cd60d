package sigv4

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prn-tf/sigil/internal/pkg/crypto"
)

// SecretLookup returns the secret key for an access key ID.
type SecretLookup func(accessKeyID string) (secret string, ok bool)

// Verify checks the SigV4 Authorization header of an incoming request.
// body is the complete request payload; its SHA-256 must match the
// x-amz-content-sha256 header. now is the server's current time.
//
// It mirrors SignAt: the path is decoded and re-encoded per segment, the
// query is re-encoded and sorted, and signed header values are collapsed.
func Verify(r *http.Request, body []byte, lookup SecretLookup, now time.Time) (*SignedValues, error) {
	signedValues, err := ParseSignV4(r.Header.Get(HeaderAuthorization))
	if err != nil {
		return nil, err
	}

	requestTime, err := GetRequestTime(r)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequestTime(requestTime, now); err != nil {
		return nil, err
	}
	if requestTime.UTC().Format(YYYYMMDD) != signedValues.Credential.Scope.Date.Format(YYYYMMDD) {
		return nil, fmt.Errorf("%w: credential date does not match %s", ErrInvalidAuthorizationHeader, HeaderAmzDate)
	}

	secret, ok := lookup(signedValues.Credential.AccessKey)
	if !ok {
		return nil, ErrInvalidAccessKeyID
	}

	payloadHash := r.Header.Get(HeaderContentSHA256)
	if payloadHash == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingSecurityHeader, HeaderContentSHA256)
	}
	if !crypto.ValidateSHA256(payloadHash) {
		return nil, ErrInvalidContentSHA256
	}
	if payloadHash != crypto.ComputeSHA256(body) {
		return nil, ErrContentSHA256Mismatch
	}

	headers, err := extractSignedHeaders(r, signedValues.SignedHeaders)
	if err != nil {
		return nil, err
	}
	canonicalHeaders, _ := GetCanonicalHeaders(headers)

	canonical := CanonicalRequest{
		Method:        r.Method,
		URI:           GetCanonicalURI(r.URL.Path),
		QueryString:   GetCanonicalQueryString(r.URL.Query()),
		Headers:       canonicalHeaders,
		SignedHeaders: joinSignedHeaders(signedValues.SignedHeaders),
		PayloadHash:   payloadHash,
	}

	scope := signedValues.Credential.Scope
	stringToSign := GetStringToSign(canonical.String(), requestTime, scope)
	signingKey := GetSigningKey(secret, scope.Date, scope.Region, scope.Service)
	expected := GetSignature(signingKey, stringToSign)

	if !crypto.ConstantTimeEqualString(expected, signedValues.Signature) {
		return nil, ErrSignatureDoesNotMatch
	}

	return signedValues, nil
}

// extractSignedHeaders collects the values of the signed headers.
// host and x-amz-date must be among them.
func extractSignedHeaders(r *http.Request, signedHeaders []string) (map[string]string, error) {
	extracted := make(map[string]string, len(signedHeaders))
	for _, name := range signedHeaders {
		name = strings.ToLower(name)
		switch name {
		case HeaderHost:
			extracted[name] = r.Host
		case "content-length":
			extracted[name] = strconv.FormatInt(r.ContentLength, 10)
		default:
			extracted[name] = strings.Join(r.Header.Values(name), ",")
		}
	}

	for _, required := range []string{HeaderHost, HeaderAmzDate} {
		if extracted[required] == "" {
			return nil, fmt.Errorf("%w: %s is not signed", ErrMissingSecurityHeader, required)
		}
	}
	return extracted, nil
}
