package upload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain/command"
	"github.com/kailas-cloud/gphotosync/internal/domain/media"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	"github.com/kailas-cloud/gphotosync/internal/domain/record"
	"github.com/kailas-cloud/gphotosync/internal/domain/summary"
	"github.com/kailas-cloud/gphotosync/internal/usecase/executor"
)

// --- Mocks ---

type fakeExecutor struct {
	mu      sync.Mutex
	listOut string
	listErr error
	upload  func(call executor.Call) error
	calls   []executor.Call
}

func (f *fakeExecutor) Execute(_ context.Context, call executor.Call) (command.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if call.Name == "list" {
		return command.Result{Stdout: f.listOut}, f.listErr
	}
	if f.upload != nil {
		if err := f.upload(call); err != nil {
			return command.Result{ExitCode: 1}, err
		}
	}
	return command.Result{}, nil
}

func (f *fakeExecutor) uploads() []executor.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []executor.Call
	for _, c := range f.calls {
		if c.Name == "upload" {
			out = append(out, c)
		}
	}
	return out
}

// fakeCommands lists "path:size" lines and copies as ["copy", rel, album].
type fakeCommands struct {
	classifier media.Classifier
}

func (fakeCommands) ListArgs() []string { return []string{"lsjson"} }

func (fakeCommands) CopyArgs(rel, album string) []string { return []string{"copy", rel, album} }

func (c fakeCommands) ParseListing(data []byte) ([]media.File, error) {
	if string(data) == "garbage" {
		return nil, errors.New("bad listing")
	}
	var files []media.File
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		path, size, _ := strings.Cut(line, ":")
		n := int64(len(size))
		files = append(files, media.File{Path: path, Size: n})
	}
	return files, nil
}

func (c fakeCommands) Kind(path string) media.Kind { return c.classifier.Kind(path) }

type mockLedger struct {
	mu  sync.Mutex
	rec quota.Ledger
}

func (m *mockLedger) Load(_ context.Context) quota.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

func (m *mockLedger) IncrementBytes(_ context.Context, n int64) (quota.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.AddBytes(n)
	return m.rec, nil
}

type stubGate struct {
	stop bool
}

func (g stubGate) CheckBytes(used, size int64) quota.Decision {
	if g.stop {
		return quota.Decision{Verdict: quota.Stop, Used: used, Projected: size}
	}
	return quota.Decision{Verdict: quota.Proceed, Used: used, Projected: size}
}

type mockEstimator struct {
	mu     sync.Mutex
	firsts []bool
}

func (m *mockEstimator) EstimateCost(_ context.Context, first bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.firsts = append(m.firsts, first)
	if first {
		return 40
	}
	return 38
}

type mockRecords struct {
	mu        sync.Mutex
	set       *record.Set
	loadErr   error
	doneSaves int
	failSaves int
}

func (m *mockRecords) Load(_ context.Context) (*record.Set, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.set == nil {
		m.set = record.NewSet(nil, nil)
	}
	return m.set, nil
}

func (m *mockRecords) SaveDone(_ context.Context, _ *record.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doneSaves++
	return nil
}

func (m *mockRecords) SaveFailed(_ context.Context, _ *record.Set) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSaves++
	return nil
}

type mockSummaries struct {
	mu    sync.Mutex
	saved []*summary.Summary
}

func (m *mockSummaries) Save(_ context.Context, s *summary.Summary) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return "summary_test", nil
}

// --- Fixture ---

type fixture struct {
	exec      *fakeExecutor
	ledger    *mockLedger
	estimator *mockEstimator
	records   *mockRecords
	summaries *mockSummaries
	gate      stubGate
}

func newFixture(listing string) *fixture {
	return &fixture{
		exec:      &fakeExecutor{listOut: listing},
		ledger:    &mockLedger{rec: quota.Fresh("2026-03-01", 0)},
		estimator: &mockEstimator{},
		records:   &mockRecords{},
		summaries: &mockSummaries{},
	}
}

func (f *fixture) service() *Service {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := quota.NewClock(time.UTC, func() time.Time { return now })
	cmds := fakeCommands{classifier: media.NewClassifier(
		[]string{".jpg", ".heic"}, []string{".mov", ".mp4"}, []string{".json"},
	)}
	return New(f.exec, cmds, f.ledger, f.gate, f.estimator, f.records, f.summaries, clock, zap.NewNop())
}

func (f *fixture) lastSummary(t *testing.T) *summary.Summary {
	t.Helper()
	f.summaries.mu.Lock()
	defer f.summaries.mu.Unlock()
	if len(f.summaries.saved) == 0 {
		t.Fatal("summary was not saved")
	}
	return f.summaries.saved[len(f.summaries.saved)-1]
}
