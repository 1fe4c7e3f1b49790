package anchor

import (
	"context"
	"errors"
	"testing"
	"time"

	"seald/internal/domain"
)

type stubProvider struct {
	submits []error
	record  domain.AnchorRecord
	calls   int
	health  domain.AnchorHealth
}

func (s *stubProvider) ProviderName() string { return "stub" }

func (s *stubProvider) Submit(ctx context.Context, fingerprint string) (domain.AnchorRecord, error) {
	s.calls++
	if len(s.submits) > 0 {
		err := s.submits[0]
		s.submits = s.submits[1:]
		if err != nil {
			return domain.AnchorRecord{}, err
		}
	}
	record := s.record
	record.Fingerprint = fingerprint
	return record, nil
}

func (s *stubProvider) Fetch(ctx context.Context, ref string) (domain.AnchorRecord, error) {
	record := s.record
	record.Ref = ref
	return record, nil
}

func (s *stubProvider) Health(ctx context.Context) (domain.AnchorHealth, error) {
	if s.health == "" {
		return domain.AnchorHealthy, nil
	}
	return s.health, nil
}

type stubAttempts struct {
	attempts []domain.AnchorAttempt
}

func (s *stubAttempts) Append(ctx context.Context, attempt domain.AnchorAttempt) error {
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *stubAttempts) ListByFingerprint(ctx context.Context, fingerprint string) ([]domain.AnchorAttempt, error) {
	return s.attempts, nil
}

func newTestService(t *testing.T, provider Provider, attempts domain.AnchorAttemptRepository, cfg ServiceConfig) *Service {
	t.Helper()
	svc, err := NewService(provider, attempts, nil, cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return svc
}

func TestSubmitSuccess(t *testing.T) {
	provider := &stubProvider{record: domain.AnchorRecord{Ref: "anchor-1"}}
	attempts := &stubAttempts{}
	svc := newTestService(t, provider, attempts, ServiceConfig{})

	record, err := svc.Submit(context.Background(), "fp-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.Ref != "anchor-1" || record.Fingerprint != "fp-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if len(attempts.attempts) != 1 || attempts.attempts[0].Status != domain.SubmissionSubmitted {
		t.Fatalf("expected one submitted attempt, got %+v", attempts.attempts)
	}
}

func TestSubmitRetriesRetryableThenSucceeds(t *testing.T) {
	retryable := &ProviderError{Code: domain.AnchorErrorProvider5xx, Retryable: true}
	provider := &stubProvider{
		submits: []error{retryable, retryable, nil},
		record:  domain.AnchorRecord{Ref: "anchor-2"},
	}
	svc := newTestService(t, provider, &stubAttempts{}, ServiceConfig{MaxAttempts: 5})

	record, err := svc.Submit(context.Background(), "fp-2")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if record.Ref != "anchor-2" {
		t.Fatalf("unexpected ref %s", record.Ref)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", provider.calls)
	}
}

func TestSubmitExhaustsRetries(t *testing.T) {
	retryable := &ProviderError{Code: domain.AnchorErrorTimeout, Retryable: true}
	provider := &stubProvider{
		submits: []error{retryable, retryable, retryable},
	}
	attempts := &stubAttempts{}
	svc := newTestService(t, provider, attempts, ServiceConfig{MaxAttempts: 3, BreakerFailures: 10})

	_, err := svc.Submit(context.Background(), "fp-3")
	if !errors.Is(err, domain.ErrAnchorUnavailable) {
		t.Fatalf("expected ErrAnchorUnavailable, got %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 provider calls, got %d", provider.calls)
	}
	for _, a := range attempts.attempts {
		if a.Status != domain.SubmissionFailedRetryable {
			t.Fatalf("expected FAILED_RETRYABLE attempts, got %+v", a)
		}
	}
}

func TestSubmitPermanentRejection(t *testing.T) {
	permanent := &ProviderError{Code: domain.AnchorErrorProviderError, Retryable: false}
	provider := &stubProvider{submits: []error{permanent}}
	attempts := &stubAttempts{}
	svc := newTestService(t, provider, attempts, ServiceConfig{MaxAttempts: 5})

	_, err := svc.Submit(context.Background(), "fp-4")
	if !errors.Is(err, domain.ErrAnchorRejected) {
		t.Fatalf("expected ErrAnchorRejected, got %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("permanent rejection must not retry, got %d calls", provider.calls)
	}
	if attempts.attempts[0].Status != domain.SubmissionFailedPermanent {
		t.Fatalf("expected FAILED_PERMANENT attempt, got %+v", attempts.attempts[0])
	}
}

func TestSubmitFailsFastWhenBreakerOpen(t *testing.T) {
	retryable := &ProviderError{Code: domain.AnchorErrorNetwork, Retryable: true}
	provider := &stubProvider{
		submits: []error{retryable, retryable, retryable, retryable, retryable},
	}
	svc := newTestService(t, provider, &stubAttempts{}, ServiceConfig{MaxAttempts: 2, BreakerFailures: 2})

	if _, err := svc.Submit(context.Background(), "fp-5"); !errors.Is(err, domain.ErrAnchorUnavailable) {
		t.Fatalf("expected ErrAnchorUnavailable, got %v", err)
	}
	calls := provider.calls

	// Breaker opened during the first submission; the next one must not
	// reach the provider at all.
	if _, err := svc.Submit(context.Background(), "fp-5"); !errors.Is(err, domain.ErrAnchorUnavailable) {
		t.Fatalf("expected fail-fast ErrAnchorUnavailable, got %v", err)
	}
	if provider.calls != calls {
		t.Fatalf("open breaker must not call provider, calls went %d -> %d", calls, provider.calls)
	}
	if svc.BreakerState() != BreakerOpen {
		t.Fatalf("expected open breaker, got %s", svc.BreakerState())
	}
}

func TestFetchSuccessClosesBreaker(t *testing.T) {
	provider := &stubProvider{record: domain.AnchorRecord{Fingerprint: "fp-6", Status: "anchored"}}
	svc := newTestService(t, provider, nil, ServiceConfig{})

	record, err := svc.Fetch(context.Background(), "anchor-6")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if record.Ref != "anchor-6" || record.Fingerprint != "fp-6" {
		t.Fatalf("unexpected record: %+v", record)
	}
}
