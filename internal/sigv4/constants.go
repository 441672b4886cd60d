// Package sigv4 implements AWS Signature Version 4 request signing for an
// S3-compatible object store, plus the matching server-side verification.
package sigv4

import "time"

// =============================================================================
// Constants
// =============================================================================

const (
	// SignV4Algorithm is the algorithm identifier for AWS Signature Version 4.
	SignV4Algorithm = "AWS4-HMAC-SHA256"

	// ISO8601BasicFormat is the date format used in AWS v4 signatures.
	ISO8601BasicFormat = "20060102T150405Z"

	// YYYYMMDD is the short date format used in credential scope.
	YYYYMMDD = "20060102"

	// ServiceS3 is the service name for S3.
	ServiceS3 = "s3"

	// RegionAuto is the region token R2 expects in the credential scope.
	RegionAuto = "auto"

	// AWS4Request is the termination string for credential scope.
	AWS4Request = "aws4_request"

	// MaxSkewTime is the maximum allowed time skew when verifying requests.
	MaxSkewTime = 15 * time.Minute
)

// =============================================================================
// Header Names
// =============================================================================

// Canonical (lower-case) names of the headers the signer always computes.
const (
	HeaderHost          = "host"
	HeaderAmzDate       = "x-amz-date"
	HeaderContentSHA256 = "x-amz-content-sha256"
	HeaderAuthorization = "authorization"
)

// mandatoryHeaders are computed by the signer and override caller values.
var mandatoryHeaders = map[string]bool{
	HeaderHost:          true,
	HeaderAmzDate:       true,
	HeaderContentSHA256: true,
}
