package sigv4

import (
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/prn-tf/sigil/internal/pkg/crypto"
)

// =============================================================================
// Signing Key Generation
// =============================================================================

// GetSigningKey derives the signing key for AWS v4 signatures.
// This implements the key derivation: HMAC(HMAC(HMAC(HMAC("AWS4"+secret, date), region), service), "aws4_request")
func GetSigningKey(secretKey string, date time.Time, region, service string) []byte {
	kDate := crypto.HMACSHA256([]byte("AWS4"+secretKey), []byte(date.UTC().Format(YYYYMMDD)))
	kRegion := crypto.HMACSHA256(kDate, []byte(region))
	kService := crypto.HMACSHA256(kRegion, []byte(service))
	return crypto.HMACSHA256(kService, []byte(AWS4Request))
}

// GetSignature calculates the signature using the signing key.
func GetSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(crypto.HMACSHA256(signingKey, []byte(stringToSign)))
}

// =============================================================================
// Percent-Encoding
// =============================================================================

// URIEncode percent-encodes s per RFC 3986: only A-Z, a-z, 0-9 and "-_.~"
// pass through. Everything else, including "!'()*" and "/", becomes %XX with
// upper-case hex over the UTF-8 bytes.
func URIEncode(s string) string {
	const hexUpper = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexUpper[c>>4])
		b.WriteByte(hexUpper[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// =============================================================================
// Canonical Request Building
// =============================================================================

// GetCanonicalURI encodes each "/"-separated segment of a decoded path
// independently, keeping the slashes. An empty path yields "/".
func GetCanonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = URIEncode(segment)
	}
	return strings.Join(segments, "/")
}

// GetCanonicalQueryString returns the encoded query pairs sorted by encoded
// key, ties broken by encoded value. An empty query yields "".
func GetCanonicalQueryString(query map[string][]string) string {
	if len(query) == 0 {
		return ""
	}

	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(query))
	for key, values := range query {
		encodedKey := URIEncode(key)
		if len(values) == 0 {
			pairs = append(pairs, pair{encodedKey, ""})
			continue
		}
		for _, value := range values {
			pairs = append(pairs, pair{encodedKey, URIEncode(value)})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.value
	}
	return strings.Join(parts, "&")
}

// singleValued adapts a one-value-per-key map to GetCanonicalQueryString.
func singleValued(query map[string]string) map[string][]string {
	if len(query) == 0 {
		return nil
	}
	out := make(map[string][]string, len(query))
	for k, v := range query {
		out[k] = []string{v}
	}
	return out
}

// CanonicalHeaderValue trims a header value and collapses internal runs of
// whitespace to a single space.
func CanonicalHeaderValue(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// GetCanonicalHeaders builds the canonical headers block and the sorted
// signed header names from lower-case header names and their values.
func GetCanonicalHeaders(headers map[string]string) (string, []string) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var canonical strings.Builder
	for _, name := range names {
		canonical.WriteString(name)
		canonical.WriteString(":")
		canonical.WriteString(CanonicalHeaderValue(headers[name]))
		canonical.WriteString("\n")
	}

	return canonical.String(), names
}

func joinSignedHeaders(names []string) string {
	return strings.Join(names, ";")
}

// =============================================================================
// String to Sign Building
// =============================================================================

// GetStringToSign builds the string to sign.
func GetStringToSign(canonicalRequest string, requestTime time.Time, scope CredentialScope) string {
	return StringToSign{
		Algorithm:            SignV4Algorithm,
		RequestDateTime:      requestTime.UTC().Format(ISO8601BasicFormat),
		CredentialScope:      scope.String(),
		CanonicalRequestHash: crypto.ComputeSHA256([]byte(canonicalRequest)),
	}.String()
}
