package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sigil/internal/config"
	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/sigv4"
	"github.com/prn-tf/sigil/internal/storage/storagetest"
)

func newTestClient(t *testing.T, pathStyle bool) (*Client, *storagetest.Server) {
	t.Helper()
	srv := storagetest.New("site-assets")
	t.Cleanup(srv.Close)

	client := NewClient(
		sigv4.NewSigner(srv.Config(pathStyle)),
		zerolog.Nop(),
		WithHTTPClient(srv.HTTPClient()),
	)
	return client, srv
}

func TestClientRoundTrip(t *testing.T) {
	for _, pathStyle := range []bool{true, false} {
		name := "virtual-hosted"
		if pathStyle {
			name = "path-style"
		}
		t.Run(name, func(t *testing.T) {
			client, srv := newTestClient(t, pathStyle)
			ctx := context.Background()

			require.NoError(t, client.Ready())

			err := client.PutObject(ctx, "diag/x.json", []byte(`{"ok":true}`), "application/json")
			require.NoError(t, err)

			body, err := client.GetObject(ctx, "diag/x.json")
			require.NoError(t, err)
			assert.Equal(t, `{"ok":true}`, body)

			list, err := client.ListPrefix(ctx, "diag/", 10)
			require.NoError(t, err)
			require.Len(t, list.Objects, 1)
			assert.Equal(t, "diag/x.json", list.Objects[0].Key)
			assert.Equal(t, int64(11), list.Objects[0].Size)

			require.NoError(t, client.DeleteObject(ctx, "diag/x.json"))

			list, err = client.ListPrefix(ctx, "diag/", 1)
			require.NoError(t, err)
			assert.Empty(t, list.Objects)
			assert.Empty(t, srv.Keys())
		})
	}
}

func TestClientRequestShape(t *testing.T) {
	client, srv := newTestClient(t, true)
	ctx := context.Background()

	require.NoError(t, client.PutObject(ctx, "reports/Q1 (final)*.csv", []byte("a,b\n"), "text/csv"))
	_, err := client.ListPrefix(ctx, "reports/", 1)
	require.NoError(t, err)

	requests := srv.Requests()
	require.Len(t, requests, 2)

	put := requests[0]
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, "/site-assets/reports/Q1%20%28final%29%2A.csv", put.Path)
	assert.Equal(t, "text/csv", put.Header.Get("Content-Type"))
	assert.Equal(t, "4", put.Header.Get("Content-Length"))
	assert.Contains(t, put.Header.Get("Authorization"), "SignedHeaders=content-length;content-type;host;x-amz-content-sha256;x-amz-date,")

	list := requests[1]
	assert.Equal(t, "/site-assets", list.Path)
	assert.Equal(t, "list-type=2&max-keys=1&prefix=reports%2F", list.Query)
	assert.Contains(t, list.Header.Get("Authorization"), "/auto/s3/aws4_request")
}

func TestClientVirtualHostedHost(t *testing.T) {
	client, srv := newTestClient(t, false)

	require.NoError(t, client.PutObject(context.Background(), "k", []byte("v"), ""))

	requests := srv.Requests()
	require.Len(t, requests, 1)
	assert.True(t, strings.HasPrefix(requests[0].Host, "site-assets.127.0.0.1:"), requests[0].Host)
	assert.Equal(t, "/k", requests[0].Path)
}

func TestClientEmptyBody(t *testing.T) {
	client, srv := newTestClient(t, true)
	ctx := context.Background()

	require.NoError(t, client.PutObject(ctx, "empty", nil, ""))

	stored, ok := srv.Object("empty")
	require.True(t, ok)
	assert.Empty(t, stored)

	body, err := client.GetObject(ctx, "empty")
	require.NoError(t, err)
	assert.Equal(t, "", body)
}

func TestClientDeleteMissingKey(t *testing.T) {
	client, _ := newTestClient(t, true)
	assert.NoError(t, client.DeleteObject(context.Background(), "never/written"))
}

func TestClientTransportErrors(t *testing.T) {
	client, srv := newTestClient(t, true)
	ctx := context.Background()

	_, err := client.GetObject(ctx, "missing")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpGet, te.Operation)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.Contains(t, te.Body, "NoSuchKey")

	srv.FailNext(http.MethodPut, http.StatusServiceUnavailable)
	err = client.PutObject(ctx, "k", []byte("v"), "")
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpPut, te.Operation)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)

	// No retry: the object was never written.
	_, ok := srv.Object("k")
	assert.False(t, ok)
}

func TestClientRejectedSignature(t *testing.T) {
	srv := storagetest.New("site-assets")
	defer srv.Close()

	cfg := srv.Config(true)
	cfg.SecretAccessKey = "wrong"
	client := NewClient(sigv4.NewSigner(cfg), zerolog.Nop())

	_, err := client.ListPrefix(context.Background(), "diag/", 1)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.StatusCode)
	assert.Contains(t, te.Body, "SignatureDoesNotMatch")
}

func TestClientNetworkError(t *testing.T) {
	srv := storagetest.New("site-assets")
	cfg := srv.Config(true)
	srv.Close()

	client := NewClient(sigv4.NewSigner(cfg), zerolog.Nop())
	err := client.DeleteObject(context.Background(), "k")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 0, te.StatusCode)
	assert.Error(t, te.Unwrap())
}

func TestClientTruncatesErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer ts.Close()

	client := NewClient(sigv4.NewSigner(plainConfig(ts.URL)), zerolog.Nop())
	_, err := client.GetObject(context.Background(), "k")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Len(t, te.Body, 512)
}

func TestClientListParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<not-xml"))
	}))
	defer ts.Close()

	client := NewClient(sigv4.NewSigner(plainConfig(ts.URL)), zerolog.Nop())
	_, err := client.ListPrefix(context.Background(), "diag/", 1)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpList, pe.Operation)
}

func TestClientNotConfigured(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	cfg := plainConfig(ts.URL)
	cfg.SecretAccessKey = ""
	client := NewClient(sigv4.NewSigner(cfg), zerolog.Nop())

	assert.ErrorIs(t, client.Ready(), domain.ErrNotConfigured)

	err := client.PutObject(context.Background(), "k", []byte("v"), "")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)

	var te *TransportError
	assert.False(t, errors.As(err, &te))
	assert.Zero(t, calls)
}

func plainConfig(endpoint string) config.R2Config {
	return config.R2Config{
		AccountID:       "acct",
		Bucket:          "site-assets",
		Endpoint:        endpoint,
		AccessKeyID:     "AKID",
		SecretAccessKey: "secret",
		ForcePathStyle:  true,
	}
}
