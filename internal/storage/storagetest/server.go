// Package storagetest provides an in-memory S3-compatible endpoint for tests.
// Every request must carry a valid SigV4 signature for the server's
// credentials; unsigned or mis-signed requests are rejected with 403.
package storagetest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prn-tf/sigil/internal/config"
	"github.com/prn-tf/sigil/internal/sigv4"
)

// Default credentials used by New.
const (
	AccountID       = "0123456789abcdef0123456789abcdef"
	AccessKeyID     = "AKIDSTORAGETEST"
	SecretAccessKey = "storagetest-secret-access-key"
)

type object struct {
	body         []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// Request records one request received by the server.
type Request struct {
	Method string
	Host   string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Server is an in-memory, single-bucket object store.
type Server struct {
	*httptest.Server

	bucket string

	mu       sync.Mutex
	objects  map[string]*object
	requests []Request
	failures map[string]int
}

// New starts a Server holding bucket.
func New(bucket string) *Server {
	s := &Server{
		bucket:   bucket,
		objects:  make(map[string]*object),
		failures: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// Config returns an R2 configuration pointing at the server.
func (s *Server) Config(pathStyle bool) config.R2Config {
	return config.R2Config{
		AccountID:        AccountID,
		Bucket:           s.bucket,
		Endpoint:         s.URL,
		AccessKeyID:      AccessKeyID,
		SecretAccessKey:  SecretAccessKey,
		ForcePathStyle:   pathStyle,
		DiagnosticPrefix: "diag/",
	}
}

// HTTPClient returns a client that connects every request to the server,
// whatever the host name. Virtual-hosted requests need it, since
// "<bucket>.127.0.0.1" does not resolve.
func (s *Server) HTTPClient() *http.Client {
	addr := s.Listener.Addr().String()
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
		},
		Timeout: 10 * time.Second,
	}
}

// FailNext makes the next request with method fail with status.
func (s *Server) FailNext(method string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = status
}

// Put stores an object directly, bypassing HTTP.
func (s *Server) Put(key string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(key, body, "application/octet-stream")
}

// Object returns the stored body of key.
func (s *Server) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.body...), true
}

// Keys returns the stored keys in order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) store(key string, body []byte, contentType string) {
	sum := md5.Sum(body)
	s.objects[key] = &object{
		body:         append([]byte(nil), body...),
		contentType:  contentType,
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		lastModified: time.Now().UTC(),
	}
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "IncompleteBody", err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Host:   r.Host,
		Path:   r.URL.EscapedPath(),
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	status, fail := s.failures[r.Method]
	delete(s.failures, r.Method)
	s.mu.Unlock()

	if fail {
		writeError(w, "InternalError", "injected failure", status)
		return
	}

	if _, err := sigv4.Verify(r, body, lookup, time.Now()); err != nil {
		code := "AccessDenied"
		if errors.Is(err, sigv4.ErrSignatureDoesNotMatch) {
			code = "SignatureDoesNotMatch"
		}
		writeError(w, code, err.Error(), http.StatusForbidden)
		return
	}

	bucket, key, ok := s.route(r)
	if !ok || bucket != s.bucket {
		writeError(w, "NoSuchBucket", "The specified bucket does not exist", http.StatusNotFound)
		return
	}

	if key == "" {
		if r.Method != http.MethodGet || r.URL.Query().Get("list-type") != "2" {
			writeError(w, "MethodNotAllowed", "The specified method is not allowed against this resource.", http.StatusMethodNotAllowed)
			return
		}
		s.handleList(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, key)
	case http.MethodPut:
		s.handlePut(w, r, key, body)
	case http.MethodDelete:
		s.handleDelete(w, key)
	default:
		writeError(w, "MethodNotAllowed", "The specified method is not allowed against this resource.", http.StatusMethodNotAllowed)
	}
}

// route extracts the bucket and key. Virtual-hosted requests carry the
// bucket as the first host label; path-style requests as the first segment.
func (s *Server) route(r *http.Request) (bucket, key string, ok bool) {
	path := strings.TrimPrefix(r.URL.Path, "/")

	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if strings.HasPrefix(host, s.bucket+".") {
		return s.bucket, path, true
	}

	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", false
	}
	if len(parts) == 1 {
		return parts[0], "", true
	}
	return parts[0], parts[1], true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	prefix := query.Get("prefix")
	maxKeys := 1000
	if mk := query.Get("max-keys"); mk != "" {
		parsed, err := strconv.Atoi(mk)
		if err != nil || parsed < 0 {
			writeError(w, "InvalidArgument", "max-keys must be a non-negative integer", http.StatusBadRequest)
			return
		}
		maxKeys = parsed
	}

	s.mu.Lock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	result := listBucketResult{
		Name:    s.bucket,
		Prefix:  prefix,
		MaxKeys: maxKeys,
	}
	if len(keys) > maxKeys {
		keys = keys[:maxKeys]
		result.IsTruncated = true
	}
	for _, key := range keys {
		obj := s.objects[key]
		result.Contents = append(result.Contents, contents{
			Key:          key,
			LastModified: obj.lastModified,
			ETag:         obj.etag,
			Size:         int64(len(obj.body)),
			StorageClass: "STANDARD",
		})
	}
	s.mu.Unlock()

	result.KeyCount = len(result.Contents)
	writeXML(w, result, http.StatusOK)
}

func (s *Server) handleGet(w http.ResponseWriter, key string) {
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		writeError(w, "NoSuchKey", "The specified key does not exist.", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", obj.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
	w.Header().Set("ETag", obj.etag)
	w.WriteHeader(http.StatusOK)
	w.Write(obj.body)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, key string, body []byte) {
	if r.ContentLength < 0 {
		writeError(w, "MissingContentLength", "You must provide the Content-Length HTTP header.", http.StatusLengthRequired)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	s.mu.Lock()
	s.store(key, body, contentType)
	etag := s.objects[key].etag
	s.mu.Unlock()

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, key string) {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func lookup(accessKeyID string) (string, bool) {
	if accessKeyID != AccessKeyID {
		return "", false
	}
	return SecretAccessKey, true
}

type listBucketResult struct {
	XMLName     xml.Name   `xml:"ListBucketResult"`
	Name        string     `xml:"Name"`
	Prefix      string     `xml:"Prefix"`
	MaxKeys     int        `xml:"MaxKeys"`
	KeyCount    int        `xml:"KeyCount"`
	IsTruncated bool       `xml:"IsTruncated"`
	Contents    []contents `xml:"Contents"`
}

type contents struct {
	Key          string    `xml:"Key"`
	LastModified time.Time `xml:"LastModified"`
	ETag         string    `xml:"ETag"`
	Size         int64     `xml:"Size"`
	StorageClass string    `xml:"StorageClass"`
}

type errorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

func writeXML(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return
	}
	_ = xml.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	writeXML(w, errorResponse{Code: code, Message: message}, status)
}
