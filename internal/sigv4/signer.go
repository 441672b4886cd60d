package sigv4

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prn-tf/sigil/internal/config"
	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/pkg/crypto"
)

// Signer signs requests for the configured bucket.
//
// The configuration is validated on first use and the outcome, success or
// failure, is kept for the lifetime of the Signer. Signatures are never
// cached: every call derives a new timestamp and signature.
type Signer struct {
	now     func() time.Time
	resolve func() (*target, error)
}

// target is the validated, parsed form of config.R2Config.
type target struct {
	scheme          string
	host            string
	basePath        string
	bucket          string
	pathStyle       bool
	accessKeyID     string
	secretAccessKey string
}

// Option configures a Signer.
type Option func(*Signer)

// WithClock replaces the clock used by Sign.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner creates a Signer for the given store configuration.
func NewSigner(cfg config.R2Config, opts ...Option) *Signer {
	s := &Signer{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.resolve = sync.OnceValues(func() (*target, error) {
		return resolveTarget(cfg)
	})
	return s
}

func resolveTarget(cfg config.R2Config) (*target, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: r2.endpoint must be an absolute URL", domain.ErrNotConfigured)
	}

	host := u.Host
	if !cfg.ForcePathStyle {
		host = cfg.Bucket + "." + host
	}

	return &target{
		scheme:          u.Scheme,
		host:            host,
		basePath:        strings.TrimSuffix(u.Path, "/"),
		bucket:          cfg.Bucket,
		pathStyle:       cfg.ForcePathStyle,
		accessKeyID:     cfg.AccessKeyID,
		secretAccessKey: cfg.SecretAccessKey,
	}, nil
}

// Ready reports whether the configuration is usable, returning the cached
// configuration error otherwise.
func (s *Signer) Ready() error {
	_, err := s.resolve()
	return err
}

// Bucket returns the configured bucket name, or "" when unconfigured.
func (s *Signer) Bucket() string {
	t, err := s.resolve()
	if err != nil {
		return ""
	}
	return t.bucket
}

// Sign signs req at the current time.
func (s *Signer) Sign(req SignRequest) (*SignedRequest, error) {
	return s.SignAt(req, s.now())
}

// SignAt signs req as of the given instant. Given the same instant and
// request it always produces the same signature.
func (s *Signer) SignAt(req SignRequest, at time.Time) (*SignedRequest, error) {
	t, err := s.resolve()
	if err != nil {
		return nil, err
	}
	at = at.UTC()

	method := strings.ToUpper(req.Method)
	canonicalURI := GetCanonicalURI(t.objectPath(req.Key))
	canonicalQuery := GetCanonicalQueryString(singleValued(req.Query))
	payloadHash := crypto.ComputeSHA256(req.Body)
	amzDate := at.Format(ISO8601BasicFormat)

	headers := mergeHeaders(req.Headers, map[string]string{
		HeaderHost:          t.host,
		HeaderContentSHA256: payloadHash,
		HeaderAmzDate:       amzDate,
	})

	canonicalHeaders, signedHeaders := GetCanonicalHeaders(headers)
	canonical := CanonicalRequest{
		Method:        method,
		URI:           canonicalURI,
		QueryString:   canonicalQuery,
		Headers:       canonicalHeaders,
		SignedHeaders: joinSignedHeaders(signedHeaders),
		PayloadHash:   payloadHash,
	}

	scope := CredentialScope{Date: at, Region: RegionAuto, Service: ServiceS3}
	stringToSign := GetStringToSign(canonical.String(), at, scope)
	signingKey := GetSigningKey(t.secretAccessKey, at, RegionAuto, ServiceS3)
	signature := GetSignature(signingKey, stringToSign)

	values := SignedValues{
		Credential:    CredentialHeader{AccessKey: t.accessKeyID, Scope: scope},
		SignedHeaders: signedHeaders,
		Signature:     signature,
	}
	headers[HeaderAuthorization] = values.AuthorizationHeader()

	requestURL := t.scheme + "://" + t.host + canonicalURI
	if canonicalQuery != "" {
		requestURL += "?" + canonicalQuery
	}

	return &SignedRequest{
		Method:        method,
		URL:           requestURL,
		Host:          t.host,
		Headers:       headers,
		Body:          req.Body,
		AmzDate:       amzDate,
		SignedHeaders: signedHeaders,
		Signature:     signature,
		Canonical:     canonical,
		StringToSign:  stringToSign,
	}, nil
}

// objectPath returns the decoded request path for key.
// Path-style: {base}/{bucket}/{key}; virtual-hosted: {base}/{key}.
func (t *target) objectPath(key string) string {
	key = strings.TrimPrefix(key, "/")
	path := t.basePath
	if t.pathStyle {
		path += "/" + t.bucket
		if key == "" {
			return path
		}
	}
	return path + "/" + key
}

// mergeHeaders lower-cases and canonicalizes caller headers, then applies the
// system headers on top. Caller names are visited in sorted order so that
// names differing only in case resolve deterministically.
func mergeHeaders(caller, system map[string]string) map[string]string {
	names := make([]string, 0, len(caller))
	for name := range caller {
		names = append(names, name)
	}
	sort.Strings(names)

	merged := make(map[string]string, len(caller)+len(system)+1)
	for _, name := range names {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" || lower == HeaderAuthorization || mandatoryHeaders[lower] {
			continue
		}
		merged[lower] = CanonicalHeaderValue(caller[name])
	}
	for name, value := range system {
		merged[name] = value
	}
	return merged
}
