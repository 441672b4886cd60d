package sigv4

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// =============================================================================
// Credential Types
// =============================================================================

// CredentialScope represents the scope of AWS credentials.
// Format: {date}/{region}/{service}/aws4_request
type CredentialScope struct {
	// Date is the date portion of the scope (YYYYMMDD).
	Date time.Time

	// Region is the region token ("auto" for R2).
	Region string

	// Service is the service token (e.g., "s3").
	Service string
}

// String returns the credential scope as a string.
// Format: {date}/{region}/{service}/aws4_request
func (cs CredentialScope) String() string {
	return cs.Date.UTC().Format(YYYYMMDD) + "/" + cs.Region + "/" + cs.Service + "/" + AWS4Request
}

// CredentialHeader represents parsed AWS credentials from the Authorization header.
type CredentialHeader struct {
	// AccessKey is the access key ID.
	AccessKey string

	// Scope is the credential scope.
	Scope CredentialScope
}

// String returns the credential as a string.
// Format: {access_key}/{scope}
func (ch CredentialHeader) String() string {
	return ch.AccessKey + "/" + ch.Scope.String()
}

// SignedValues represents the components of an AWS v4 signature.
// These are parsed from the Authorization header.
type SignedValues struct {
	// Credential contains the access key and scope.
	Credential CredentialHeader

	// SignedHeaders is the list of headers included in the signature.
	SignedHeaders []string

	// Signature is the calculated signature (hex-encoded).
	Signature string
}

// AuthorizationHeader formats the values as an Authorization header value.
func (sv SignedValues) AuthorizationHeader() string {
	return SignV4Algorithm +
		" Credential=" + sv.Credential.String() +
		", SignedHeaders=" + joinSignedHeaders(sv.SignedHeaders) +
		", Signature=" + sv.Signature
}

// =============================================================================
// Signature Components
// =============================================================================

// CanonicalRequest represents the components of a canonical request.
type CanonicalRequest struct {
	// Method is the HTTP method.
	Method string

	// URI is the canonical URI path.
	URI string

	// QueryString is the canonical query string.
	QueryString string

	// Headers is the canonical headers block. Every line, including the
	// last, ends in a newline.
	Headers string

	// SignedHeaders is the signed headers list.
	SignedHeaders string

	// PayloadHash is the hash of the request payload.
	PayloadHash string
}

// String returns the canonical request as a string for signing.
func (cr CanonicalRequest) String() string {
	return cr.Method + "\n" +
		cr.URI + "\n" +
		cr.QueryString + "\n" +
		cr.Headers + "\n" +
		cr.SignedHeaders + "\n" +
		cr.PayloadHash
}

// StringToSign represents the string to sign.
type StringToSign struct {
	// Algorithm is the signing algorithm.
	Algorithm string

	// RequestDateTime is the request timestamp.
	RequestDateTime string

	// CredentialScope is the credential scope string.
	CredentialScope string

	// CanonicalRequestHash is the hash of the canonical request.
	CanonicalRequestHash string
}

// String returns the string to sign.
func (sts StringToSign) String() string {
	return sts.Algorithm + "\n" +
		sts.RequestDateTime + "\n" +
		sts.CredentialScope + "\n" +
		sts.CanonicalRequestHash
}

// =============================================================================
// Signing Input and Output
// =============================================================================

// SignRequest describes one request to sign.
type SignRequest struct {
	// Method is the HTTP method (GET, PUT, DELETE, ...).
	Method string

	// Key is the object key, without a leading slash. Empty addresses the bucket.
	Key string

	// Query holds the query parameters.
	Query map[string]string

	// Headers holds extra headers to sign and send. The host, x-amz-date and
	// x-amz-content-sha256 headers are always computed by the signer.
	Headers map[string]string

	// Body is the request payload. Nil and empty are equivalent.
	Body []byte
}

// SignedRequest is a fully authenticated request, built fresh for every call.
type SignedRequest struct {
	// Method is the upper-case HTTP method.
	Method string

	// URL is the absolute request URL, with the canonical path and query.
	URL string

	// Host is the value of the signed host header.
	Host string

	// Headers holds every header to send, keyed by lower-case name,
	// including "authorization".
	Headers map[string]string

	// Body is the request payload.
	Body []byte

	// AmzDate is the x-amz-date value the signature is scoped to.
	AmzDate string

	// SignedHeaders is the sorted list of signed header names.
	SignedHeaders []string

	// Signature is the hex-encoded signature.
	Signature string

	// Canonical is the canonical request that was signed.
	Canonical CanonicalRequest

	// StringToSign is the exact string the signature was computed over.
	StringToSign string
}

// Authorization returns the Authorization header value.
func (sr *SignedRequest) Authorization() string {
	return sr.Headers[HeaderAuthorization]
}

// HTTPRequest builds an *http.Request carrying the signed method, URL,
// headers and body. The host header is applied through Request.Host and the
// body length through Request.ContentLength, as net/http requires.
func (sr *SignedRequest) HTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, sr.Method, sr.URL, bytes.NewReader(sr.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for name, value := range sr.Headers {
		switch name {
		case HeaderHost:
			req.Host = value
		case "content-length":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid content-length %q: %w", value, err)
			}
			req.ContentLength = n
		default:
			req.Header.Set(name, value)
		}
	}

	return req, nil
}
