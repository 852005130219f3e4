package quota

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/db"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

// --- Mocks ---

type mockLedgerRepo struct {
	mu      sync.Mutex
	rec     *quota.Ledger
	loadErr error
	saveErr error
	saves   int
}

func (m *mockLedgerRepo) Load(_ context.Context) (quota.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return quota.Ledger{}, m.loadErr
	}
	if m.rec == nil {
		return quota.Ledger{}, db.ErrKeyNotFound
	}
	return *m.rec, nil
}

func (m *mockLedgerRepo) Save(_ context.Context, l quota.Ledger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	rec := l
	m.rec = &rec
	return nil
}

func (m *mockLedgerRepo) stored() quota.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return quota.Ledger{}
	}
	return *m.rec
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	date    string
	samples []int64
	found   bool
	loadErr error
	saves   int
}

func (m *mockHistoryRepo) Load(_ context.Context) (string, []int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return "", nil, m.loadErr
	}
	if !m.found {
		return "", nil, db.ErrKeyNotFound
	}
	return m.date, append([]int64(nil), m.samples...), nil
}

func (m *mockHistoryRepo) Save(_ context.Context, date string, samples []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.found = true
	m.date = date
	m.samples = append([]int64(nil), samples...)
	return nil
}

// fakeNow is a settable clock source.
type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeNow(t time.Time) *fakeNow { return &fakeNow{t: t} }

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = t
}

func testClock(f *fakeNow) quota.Clock {
	return quota.NewClock(time.UTC, f.Now)
}

var day1 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
