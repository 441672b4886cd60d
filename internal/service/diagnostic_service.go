package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/lock"
	"github.com/prn-tf/sigil/internal/metrics"
	"github.com/prn-tf/sigil/internal/storage"
)

// Diagnostic timing. A run makes four storage calls, so it is bounded by
// four request timeouts; the lock outlives it by one more, covering the
// cleanup delete issued after a failed run.
const (
	DiagnosticRunTimeout = 4 * storage.DefaultRequestTimeout
	DiagnosticLockTTL    = DiagnosticRunTimeout + storage.DefaultRequestTimeout
)

// DiagnosticLockRetry is how long a run waits for a concurrent run to finish.
var DiagnosticLockRetry = lock.Retry{Attempts: 3, Delay: 200 * time.Millisecond}

// StepError reports the health check step that failed.
type StepError struct {
	Step domain.StepName
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// DiagnosticService runs the object store health check: it lists, writes,
// reads back and deletes a probe object.
type DiagnosticService struct {
	store  storage.ObjectStore
	locker lock.Locker
	prefix string

	runTimeout time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewDiagnosticService creates a new DiagnosticService. Probe objects are
// written under prefix.
func NewDiagnosticService(
	store storage.ObjectStore,
	locker lock.Locker,
	prefix string,
	logger zerolog.Logger,
) *DiagnosticService {
	return &DiagnosticService{
		store:      store,
		locker:     locker,
		prefix:     prefix,
		runTimeout: DiagnosticRunTimeout,
		now:        time.Now,
		logger:     logger.With().Str("service", "diagnostic").Logger(),
	}
}

// probe is the body of the object written by the health check.
type probe struct {
	OK bool   `json:"ok"`
	TS string `json:"ts"`
}

// Run performs one health check. Failures are returned as *StepError; a
// concurrent run yields ErrDiagnosticBusy.
func (s *DiagnosticService) Run(ctx context.Context) (*domain.DiagnosticReport, error) {
	l := lock.NewLock(s.locker, lock.Keys.Diagnostic(domain.DiagnosticService))
	acquired, err := l.Acquire(ctx, DiagnosticLockTTL, DiagnosticLockRetry)
	if err != nil {
		metrics.RecordDiagnosticRun("error")
		return nil, fmt.Errorf("failed to acquire diagnostic lock: %w", err)
	}
	if !acquired {
		metrics.RecordDiagnosticRun("busy")
		return nil, ErrDiagnosticBusy
	}
	defer func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release diagnostic lock")
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	report, err := s.run(runCtx)
	if err != nil {
		metrics.RecordDiagnosticRun("failed")
		s.logger.Error().Err(err).Msg("r2 health check failed")
		return nil, err
	}

	metrics.RecordDiagnosticRun("ok")
	s.logger.Info().Int64("total_ms", report.TotalMS).Msg("r2 health check passed")
	return report, nil
}

func (s *DiagnosticService) run(ctx context.Context) (*domain.DiagnosticReport, error) {
	start := s.now()
	report := &domain.DiagnosticReport{Service: domain.DiagnosticService}

	if err := s.store.Ready(); err != nil {
		return nil, &StepError{Step: domain.StepList, Err: err}
	}

	key := s.prefix + uuid.NewString() + ".json"
	body, err := json.Marshal(probe{OK: true, TS: start.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal probe: %w", err)
	}

	written, deleted := false, false
	defer func() {
		if written && !deleted {
			s.cleanup(ctx, key)
		}
	}()

	steps := []struct {
		name domain.StepName
		fn   func() error
	}{
		{domain.StepList, func() error {
			_, err := s.store.ListPrefix(ctx, s.prefix, 1)
			return err
		}},
		{domain.StepPut, func() error {
			if err := s.store.PutObject(ctx, key, body, "application/json"); err != nil {
				return err
			}
			written = true
			return nil
		}},
		{domain.StepGet, func() error {
			got, err := s.store.GetObject(ctx, key)
			if err != nil {
				return err
			}
			return checkProbe(got, body)
		}},
		{domain.StepDelete, func() error {
			if err := s.store.DeleteObject(ctx, key); err != nil {
				return err
			}
			deleted = true
			return nil
		}},
	}

	for _, step := range steps {
		stepStart := s.now()
		err := step.fn()
		elapsed := s.now().Sub(stepStart).Milliseconds()
		if err != nil {
			return nil, &StepError{Step: step.name, Err: err}
		}
		report.Steps = append(report.Steps, domain.DiagnosticStep{Name: step.name, OK: true, MS: elapsed})
	}

	report.OK = true
	report.TotalMS = s.now().Sub(start).Milliseconds()
	report.Timestamp = s.now().UTC()
	return report, nil
}

// checkProbe verifies the object read back is byte-identical to what was
// written and still parses as a successful probe.
func checkProbe(got string, want []byte) error {
	if !bytes.Equal([]byte(got), want) {
		return &storage.ParseError{Operation: storage.OpGet, Err: errors.New("probe body does not match what was written")}
	}
	var p probe
	if err := json.Unmarshal([]byte(got), &p); err != nil {
		return &storage.ParseError{Operation: storage.OpGet, Err: err}
	}
	if !p.OK {
		return &storage.ParseError{Operation: storage.OpGet, Err: errors.New("probe is not ok")}
	}
	return nil
}

// cleanup deletes the probe after a failed run. Errors are only logged.
func (s *DiagnosticService) cleanup(ctx context.Context, key string) {
	if err := s.store.DeleteObject(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to clean up diagnostic object")
		return
	}
	s.logger.Debug().Str("key", key).Msg("cleaned up diagnostic object")
}

// NewDiagnosticFailure describes a failed run for the health endpoint.
func (s *DiagnosticService) NewDiagnosticFailure(err error) domain.DiagnosticFailure {
	failure := domain.DiagnosticFailure{
		Service:   domain.DiagnosticService,
		OK:        false,
		Error:     err.Error(),
		Timestamp: s.now().UTC(),
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		failure.FailedStep = stepErr.Step
		failure.Error = stepErr.Err.Error()
	}
	return failure
}
