package storage

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/sigil/internal/metrics"
	"github.com/prn-tf/sigil/internal/sigv4"
)

// DefaultRequestTimeout bounds a single storage call when the binaries build
// their HTTP client.
const DefaultRequestTimeout = 30 * time.Second

// Client talks to the configured bucket.
type Client struct {
	signer     *sigv4.Signer
	httpClient *http.Client
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client. Timeouts and cancellation are the
// transport's concern; the Client adds none.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client that signs with signer.
func NewClient(signer *sigv4.Signer, logger zerolog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		signer:     signer,
		httpClient: http.DefaultClient,
		logger:     logger.With().Str("component", "storage").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready returns the cached configuration error, if any.
func (c *Client) Ready() error {
	return c.signer.Ready()
}

// ListPrefix issues a ListObjectsV2 call scoped to prefix.
func (c *Client) ListPrefix(ctx context.Context, prefix string, maxKeys int) (*ListResult, error) {
	query := map[string]string{
		"list-type": "2",
		"prefix":    prefix,
	}
	if maxKeys > 0 {
		query["max-keys"] = strconv.Itoa(maxKeys)
	}

	body, err := c.do(ctx, OpList, sigv4.SignRequest{Method: http.MethodGet, Query: query})
	if err != nil {
		return nil, err
	}

	var parsed listBucketResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, &ParseError{Operation: OpList, Err: err}
	}
	return parsed.toListResult(), nil
}

// PutObject uploads body under key with an explicit Content-Length.
func (c *Client) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	headers := map[string]string{
		"content-length": strconv.Itoa(len(body)),
	}
	if contentType != "" {
		headers["content-type"] = contentType
	}

	_, err := c.do(ctx, OpPut, sigv4.SignRequest{
		Method:  http.MethodPut,
		Key:     key,
		Headers: headers,
		Body:    body,
	})
	return err
}

// GetObject downloads the object stored under key.
func (c *Client) GetObject(ctx context.Context, key string) (string, error) {
	body, err := c.do(ctx, OpGet, sigv4.SignRequest{Method: http.MethodGet, Key: key})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// DeleteObject deletes key.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.do(ctx, OpDelete, sigv4.SignRequest{Method: http.MethodDelete, Key: key})
	return err
}

// do signs and sends one request, returning the response body of a 2xx
// answer. Configuration errors are returned as is; everything after signing
// fails with a *TransportError.
func (c *Client) do(ctx context.Context, op string, req sigv4.SignRequest) ([]byte, error) {
	signed, err := c.signer.Sign(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := signed.HTTPRequest(ctx)
	if err != nil {
		return nil, &TransportError{Operation: op, Err: err}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordStorageRequest(op, 0, time.Since(start))
		c.logger.Warn().Err(err).Str("operation", op).Msg("r2 request failed")
		return nil, &TransportError{Operation: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	metrics.RecordStorageRequest(op, resp.StatusCode, duration)
	if err != nil {
		return nil, &TransportError{Operation: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Msg("r2 request rejected")
		return nil, newStatusError(op, resp.StatusCode, body)
	}

	c.logger.Debug().
		Str("operation", op).
		Str("key", req.Key).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("r2 request completed")

	return body, nil
}
