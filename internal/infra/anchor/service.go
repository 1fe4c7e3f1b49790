package anchor

import (
	"context"
	"errors"
	"time"

	"seald/internal/domain"
	"seald/internal/logging"
)

type ServiceConfig struct {
	// CallTimeout bounds each wire-level provider call.
	CallTimeout time.Duration
	// MaxAttempts bounds retries of retryable failures per submission.
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration
}

// Service implements domain.AnchorClient over one Provider. It owns the
// retry and circuit-breaker policy and records every wire-level attempt
// so operators can see outages and permanent rejections.
type Service struct {
	provider Provider
	breaker  *Breaker
	attempts domain.AnchorAttemptRepository
	log      logging.Logger

	callTimeout time.Duration
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewService(provider Provider, attempts domain.AnchorAttemptRepository, log logging.Logger, cfg ServiceConfig) (*Service, error) {
	if provider == nil {
		return nil, errors.New("anchor provider is required")
	}
	if log == nil {
		log = logging.Nop{}
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 8 * time.Second
	}
	return &Service{
		provider:    provider,
		breaker:     NewBreaker(cfg.BreakerFailures, cfg.BreakerCooldown, nil),
		attempts:    attempts,
		log:         log,
		callTimeout: cfg.CallTimeout,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: cfg.BackoffBase,
		backoffCap:  cfg.BackoffCap,
		now:         time.Now,
		sleep:       sleepCtx,
	}, nil
}

// Submit anchors one fingerprint. Retryable failures are retried with
// exponential backoff until MaxAttempts; a permanent provider rejection
// returns ErrAnchorRejected without further retries. An open breaker
// fails fast with ErrAnchorUnavailable so large uploads are never blocked
// on the ledger's liveness.
func (s *Service) Submit(ctx context.Context, fingerprint string) (domain.AnchorRecord, error) {
	if !s.breaker.Allow() {
		s.persistAttempt(ctx, domain.AnchorAttempt{
			Fingerprint: fingerprint,
			Status:      domain.SubmissionFailedRetryable,
			ErrorCode:   domain.AnchorErrorBreakerOpen,
		})
		return domain.AnchorRecord{}, domain.ErrAnchorUnavailable
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		record, err := s.provider.Submit(callCtx, fingerprint)
		cancel()

		if err == nil {
			s.breaker.Success()
			s.persistAttempt(ctx, domain.AnchorAttempt{
				Fingerprint: fingerprint,
				Attempt:     attempt,
				Status:      domain.SubmissionSubmitted,
				AnchorRef:   record.Ref,
			})
			return record, nil
		}

		s.breaker.Failure()
		code, retryable := classify(err)
		status := domain.SubmissionFailedRetryable
		if !retryable {
			status = domain.SubmissionFailedPermanent
		}
		s.persistAttempt(ctx, domain.AnchorAttempt{
			Fingerprint: fingerprint,
			Attempt:     attempt,
			Status:      status,
			ErrorCode:   code,
		})

		if !retryable {
			s.log.Error(ctx, "anchor submission permanently rejected",
				"fingerprint", fingerprint, "error_code", code)
			return domain.AnchorRecord{}, domain.ErrAnchorRejected
		}
		s.log.Warn(ctx, "anchor submission failed",
			"fingerprint", fingerprint, "attempt", attempt, "error_code", code)

		if attempt == s.maxAttempts || !s.breaker.Allow() {
			break
		}
		if err := s.sleep(ctx, s.backoff(attempt)); err != nil {
			break
		}
	}
	return domain.AnchorRecord{}, domain.ErrAnchorUnavailable
}

// Fetch reads the ledger's record for an anchor ref. The returned
// fingerprint is the source of truth for what was originally sealed.
func (s *Service) Fetch(ctx context.Context, ref string) (domain.AnchorRecord, error) {
	if !s.breaker.Allow() {
		return domain.AnchorRecord{}, domain.ErrAnchorUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	record, err := s.provider.Fetch(callCtx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.breaker.Success()
			return domain.AnchorRecord{}, domain.ErrNotFound
		}
		s.breaker.Failure()
		return domain.AnchorRecord{}, domain.ErrAnchorUnavailable
	}
	s.breaker.Success()
	return record, nil
}

func (s *Service) Health(ctx context.Context) domain.AnchorHealth {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	health, err := s.provider.Health(callCtx)
	if err != nil {
		return domain.AnchorDown
	}
	return health
}

// BreakerState exposes the breaker for health reporting.
func (s *Service) BreakerState() BreakerState {
	return s.breaker.State()
}

func (s *Service) backoff(attempt int) time.Duration {
	d := s.backoffBase << (attempt - 1)
	if d > s.backoffCap || d <= 0 {
		return s.backoffCap
	}
	return d
}

func (s *Service) persistAttempt(ctx context.Context, attempt domain.AnchorAttempt) {
	if s.attempts == nil {
		return
	}
	attempt.CreatedAt = s.now().UTC()
	if err := s.attempts.Append(ctx, attempt); err != nil {
		s.log.Error(ctx, "persist anchor attempt", "error", err)
	}
}

func classify(err error) (code string, retryable bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Code, perr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.AnchorErrorTimeout, true
	}
	return domain.AnchorErrorProviderError, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
