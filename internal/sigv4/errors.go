package sigv4

import "errors"

// Signature verification errors.
var (
	// ErrInvalidAuthorizationHeader indicates the Authorization header is malformed.
	ErrInvalidAuthorizationHeader = errors.New("invalid authorization header")

	// ErrSignatureDoesNotMatch indicates the calculated signature doesn't match.
	ErrSignatureDoesNotMatch = errors.New("the request signature we calculated does not match the signature you provided")

	// ErrMissingSecurityHeader indicates a required security header is missing.
	ErrMissingSecurityHeader = errors.New("missing required security header")

	// ErrRequestTimeTooSkewed indicates the request time is too far from server time.
	ErrRequestTimeTooSkewed = errors.New("the difference between the request time and the server time is too large")

	// ErrInvalidAccessKeyID indicates the access key ID is not known to the verifier.
	ErrInvalidAccessKeyID = errors.New("the access key ID you provided does not exist in our records")

	// ErrInvalidContentSHA256 indicates x-amz-content-sha256 is not a hex SHA-256 digest.
	ErrInvalidContentSHA256 = errors.New("x-amz-content-sha256 must be a lower-case hex SHA-256 digest")

	// ErrContentSHA256Mismatch indicates the body does not match x-amz-content-sha256.
	ErrContentSHA256Mismatch = errors.New("the provided x-amz-content-sha256 header does not match what was computed")
)
