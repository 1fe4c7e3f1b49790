package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"seald/internal/domain"
	"seald/internal/infra/dedup"
	"seald/internal/infra/fingerprint"
	"seald/internal/infra/storemem"
	"seald/internal/logging"
)

// memPayloads is a map-backed payload store for tests. Tests reach into
// data directly to simulate on-disk corruption.
type memPayloads struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemPayloads() *memPayloads {
	return &memPayloads{data: make(map[string][]byte)}
}

func (m *memPayloads) Put(_ context.Context, data []byte) (string, error) {
	sum, err := fingerprint.Sum(data)
	if err != nil {
		return "", err
	}
	ref := "mem:" + sum
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[ref]; !ok {
		m.data[ref] = append([]byte(nil), data...)
	}
	return ref, nil
}

func (m *memPayloads) Get(_ context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memPayloads) Exists(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[ref]
	return ok, nil
}

func (m *memPayloads) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[ref]; !ok {
		return domain.ErrNotFound
	}
	delete(m.data, ref)
	return nil
}

func (m *memPayloads) corrupt(ref string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ref] = append([]byte(nil), data...)
}

// stubAnchor is a scripted ledger. submitErr and fetchErr force
// failures; failAfterSubmits bounds how many submissions succeed before
// the ledger goes unavailable. records holds what Fetch returns and can
// be mutated by tests.
type stubAnchor struct {
	mu               sync.Mutex
	submitErr        error
	fetchErr         error
	health           domain.AnchorHealth
	failAfterSubmits int
	submits          []string
	records          map[string]domain.AnchorRecord
	nextRef          int
}

func (a *stubAnchor) Submit(_ context.Context, fp string) (domain.AnchorRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submits = append(a.submits, fp)
	if a.submitErr != nil {
		return domain.AnchorRecord{}, a.submitErr
	}
	if a.failAfterSubmits > 0 && a.nextRef >= a.failAfterSubmits {
		return domain.AnchorRecord{}, domain.ErrAnchorUnavailable
	}
	a.nextRef++
	record := domain.AnchorRecord{
		Ref:         fmt.Sprintf("ledger-%d", a.nextRef),
		Fingerprint: fp,
		Timestamp:   time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
		Status:      "anchored",
	}
	if a.records == nil {
		a.records = make(map[string]domain.AnchorRecord)
	}
	a.records[record.Ref] = record
	return record, nil
}

func (a *stubAnchor) Fetch(_ context.Context, ref string) (domain.AnchorRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fetchErr != nil {
		return domain.AnchorRecord{}, a.fetchErr
	}
	record, ok := a.records[ref]
	if !ok {
		return domain.AnchorRecord{}, domain.ErrNotFound
	}
	return record, nil
}

func (a *stubAnchor) Health(_ context.Context) domain.AnchorHealth {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.health == "" {
		return domain.AnchorHealthy
	}
	return a.health
}

func (a *stubAnchor) submitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.submits)
}

func (a *stubAnchor) rewriteRecord(ref, fp string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	record := a.records[ref]
	record.Fingerprint = fp
	a.records[ref] = record
}

type stubPolicy struct {
	allow  bool
	denial domain.Denial
}

func (p *stubPolicy) Evaluate(context.Context, domain.AdmissionInput) (domain.AdmissionResult, error) {
	if p.allow {
		return domain.AdmissionResult{Allow: true}, nil
	}
	return domain.AdmissionResult{Deny: []domain.Denial{p.denial}}, nil
}

// fixture wires the services over in-memory repositories. now is mutable
// so tests can move time forward.
type fixture struct {
	artifacts  *storemem.ArtifactRepository
	containers *storemem.ContainerRepository
	events     *storemem.ProvenanceRepository
	payloads   *memPayloads
	anchor     *stubAnchor

	seal     *SealService
	verifier *Verifier
	proofs   *ProofReader
	eraser   *Eraser
	sweeper  *AnchorSweeper

	mu  sync.Mutex
	now time.Time
}

func newFixture() *fixture {
	f := &fixture{
		artifacts: storemem.NewArtifactRepository(),
		events:    storemem.NewProvenanceRepository(),
		payloads:  newMemPayloads(),
		anchor:    &stubAnchor{},
		now:       time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.containers = storemem.NewContainerRepository(f.artifacts)
	clock := func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	}
	f.seal = &SealService{
		Artifacts:  f.artifacts,
		Containers: f.containers,
		Events:     f.events,
		Payloads:   f.payloads,
		Anchor:     f.anchor,
		Guard:      dedup.NewMemoryGuard(dedup.MemoryGuardConfig{}),
		Prints:     fingerprint.Engine{},
		Log:        logging.Nop{},
		Now:        clock,
	}
	f.verifier = &Verifier{
		Artifacts:  f.artifacts,
		Containers: f.containers,
		Events:     f.events,
		Payloads:   f.payloads,
		Anchor:     f.anchor,
		Prints:     fingerprint.Engine{},
		Log:        logging.Nop{},
		Now:        clock,
	}
	f.proofs = &ProofReader{Artifacts: f.artifacts, Events: f.events}
	f.eraser = &Eraser{
		Artifacts: f.artifacts,
		Events:    f.events,
		Payloads:  f.payloads,
		Log:       logging.Nop{},
		Now:       clock,
	}
	f.sweeper = &AnchorSweeper{
		Artifacts:  f.artifacts,
		Containers: f.containers,
		Events:     f.events,
		Anchor:     f.anchor,
		Log:        logging.Nop{},
		Now:        clock,
	}
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
