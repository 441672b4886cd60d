package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/lock"
	"github.com/prn-tf/sigil/internal/sigv4"
	"github.com/prn-tf/sigil/internal/storage"
	"github.com/prn-tf/sigil/internal/storage/storagetest"
)

// fakeStore is an in-memory storage.ObjectStore with injectable failures.
type fakeStore struct {
	mu       sync.Mutex
	objects  map[string]string
	calls    []string
	readyErr error
	failOn   map[string]error
	tamper   func(string) string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string]string), failOn: make(map[string]error)}
}

func (f *fakeStore) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeStore) Ready() error { return f.readyErr }

func (f *fakeStore) ListPrefix(ctx context.Context, prefix string, maxKeys int) (*storage.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(storage.OpList); err != nil {
		return nil, err
	}
	return &storage.ListResult{Prefix: prefix}, nil
}

func (f *fakeStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(storage.OpPut); err != nil {
		return err
	}
	f.objects[key] = string(body)
	return nil
}

func (f *fakeStore) GetObject(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(storage.OpGet); err != nil {
		return "", err
	}
	body, ok := f.objects[key]
	if !ok {
		return "", &storage.TransportError{Operation: storage.OpGet, StatusCode: 404}
	}
	if f.tamper != nil {
		body = f.tamper(body)
	}
	return body, nil
}

func (f *fakeStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(storage.OpDelete); err != nil {
		return err
	}
	delete(f.objects, key)
	return nil
}

func newTestDiagnosticService(store storage.ObjectStore, locker lock.Locker) *DiagnosticService {
	return NewDiagnosticService(store, locker, "diag/", zerolog.Nop())
}

func TestDiagnosticService_Run(t *testing.T) {
	store := newFakeStore()
	svc := newTestDiagnosticService(store, lock.NewMemoryLocker())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "r2", report.Service)
	assert.True(t, report.OK)
	require.Len(t, report.Steps, 4)
	for i, name := range []domain.StepName{domain.StepList, domain.StepPut, domain.StepGet, domain.StepDelete} {
		assert.Equal(t, name, report.Steps[i].Name)
		assert.True(t, report.Steps[i].OK)
		assert.GreaterOrEqual(t, report.Steps[i].MS, int64(0))
	}
	assert.False(t, report.Timestamp.IsZero())
	assert.Equal(t, []string{"list", "put", "get", "delete"}, store.calls)
	assert.Empty(t, store.objects)
}

func TestDiagnosticService_ProbeObject(t *testing.T) {
	store := newFakeStore()
	var written string
	store.tamper = func(body string) string {
		written = body
		return body
	}
	svc := newTestDiagnosticService(store, lock.NewNoOpLocker())
	svc.now = func() time.Time { return time.Date(2024, 3, 9, 17, 4, 5, 0, time.UTC) }

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true,"ts":"2024-03-09T17:04:05Z"}`, written)
}

func TestDiagnosticService_StepFailures(t *testing.T) {
	transportErr := &storage.TransportError{Operation: "x", StatusCode: 500, Body: "boom"}

	tests := []struct {
		name        string
		failOn      string
		wantStep    domain.StepName
		wantCleanup bool
	}{
		{"list fails", storage.OpList, domain.StepList, false},
		{"put fails", storage.OpPut, domain.StepPut, false},
		{"get fails", storage.OpGet, domain.StepGet, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.failOn[tt.failOn] = transportErr
			svc := newTestDiagnosticService(store, lock.NewMemoryLocker())

			report, err := svc.Run(context.Background())
			assert.Nil(t, report)

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.wantStep, stepErr.Step)
			assert.ErrorIs(t, err, transportErr)

			if tt.wantCleanup {
				assert.Equal(t, storage.OpDelete, store.calls[len(store.calls)-1])
				assert.Empty(t, store.objects)
			} else {
				assert.NotContains(t, store.calls, storage.OpDelete)
			}

			failure := svc.NewDiagnosticFailure(err)
			assert.Equal(t, "r2", failure.Service)
			assert.False(t, failure.OK)
			assert.Equal(t, tt.wantStep, failure.FailedStep)
			assert.Equal(t, transportErr.Error(), failure.Error)
		})
	}
}

func TestDiagnosticService_CorruptedReadBack(t *testing.T) {
	store := newFakeStore()
	store.tamper = func(body string) string { return strings.Replace(body, "true", "false", 1) }
	svc := newTestDiagnosticService(store, lock.NewMemoryLocker())

	_, err := svc.Run(context.Background())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, domain.StepGet, stepErr.Step)

	var parseErr *storage.ParseError
	assert.ErrorAs(t, err, &parseErr)

	// Cleanup still removed the probe.
	assert.Empty(t, store.objects)
}

func TestDiagnosticService_DeleteFailsIsRetriedOnce(t *testing.T) {
	store := newFakeStore()
	store.failOn[storage.OpDelete] = errors.New("delete refused")
	svc := newTestDiagnosticService(store, lock.NewMemoryLocker())

	_, err := svc.Run(context.Background())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, domain.StepDelete, stepErr.Step)
	assert.Equal(t, []string{"list", "put", "get", "delete", "delete"}, store.calls)
}

func TestDiagnosticService_NotConfigured(t *testing.T) {
	store := newFakeStore()
	store.readyErr = domain.NewConfigError("r2", "r2.bucket")
	svc := newTestDiagnosticService(store, lock.NewMemoryLocker())

	_, err := svc.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Empty(t, store.calls)

	failure := svc.NewDiagnosticFailure(err)
	assert.Equal(t, domain.StepList, failure.FailedStep)
}

func TestDiagnosticService_Busy(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewMemoryLocker()
	_, ok, err := locker.Acquire(ctx, lock.Keys.Diagnostic("r2"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	old := DiagnosticLockRetry
	DiagnosticLockRetry = lock.Retry{Attempts: 1, Delay: time.Millisecond}
	defer func() { DiagnosticLockRetry = old }()

	store := newFakeStore()
	svc := newTestDiagnosticService(store, locker)

	_, err = svc.Run(ctx)
	assert.ErrorIs(t, err, ErrDiagnosticBusy)
	assert.Empty(t, store.calls)

	failure := svc.NewDiagnosticFailure(err)
	assert.Empty(t, failure.FailedStep)
	assert.Equal(t, ErrDiagnosticBusy.Error(), failure.Error)
}

func TestDiagnosticService_ReleasesLock(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewMemoryLocker()
	svc := newTestDiagnosticService(newFakeStore(), locker)

	_, err := svc.Run(ctx)
	require.NoError(t, err)

	held, err := locker.IsHeld(ctx, lock.Keys.Diagnostic("r2"))
	require.NoError(t, err)
	assert.False(t, held)
}

// stallingStore blocks on put until the run's context ends.
type stallingStore struct {
	*fakeStore
}

func (s stallingStore) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDiagnosticService_RunIsBoundedByLockTTL(t *testing.T) {
	assert.GreaterOrEqual(t, DiagnosticRunTimeout, 4*storage.DefaultRequestTimeout)
	assert.Greater(t, DiagnosticLockTTL, DiagnosticRunTimeout)

	locker := lock.NewMemoryLocker()
	svc := newTestDiagnosticService(stallingStore{newFakeStore()}, locker)
	svc.runTimeout = 20 * time.Millisecond

	_, err := svc.Run(context.Background())

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, domain.StepPut, stepErr.Step)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	held, err := locker.IsHeld(context.Background(), lock.Keys.Diagnostic("r2"))
	require.NoError(t, err)
	assert.False(t, held)
}

func TestDiagnosticService_AgainstSignedEndpoint(t *testing.T) {
	srv := storagetest.New("site-assets")
	defer srv.Close()

	client := storage.NewClient(sigv4.NewSigner(srv.Config(true)), zerolog.Nop())
	svc := newTestDiagnosticService(client, lock.NewMemoryLocker())

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Empty(t, srv.Keys())

	methods := make([]string, 0, 4)
	for _, r := range srv.Requests() {
		methods = append(methods, r.Method)
	}
	assert.Equal(t, []string{"GET", "PUT", "GET", "DELETE"}, methods)
}
