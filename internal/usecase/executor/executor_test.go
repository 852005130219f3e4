package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain"
	"github.com/kailas-cloud/gphotosync/internal/domain/command"
	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
	ucquota "github.com/kailas-cloud/gphotosync/internal/usecase/quota"
)

// --- Mocks ---

type scriptedRunner struct {
	mu    sync.Mutex
	steps []func() (command.Result, error)
	calls int
}

func (r *scriptedRunner) Run(_ context.Context, _ []string) (command.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.calls
	r.calls++
	if i >= len(r.steps) {
		i = len(r.steps) - 1
	}
	return r.steps[i]()
}

func ok() (command.Result, error) { return command.Result{ExitCode: 0, Stdout: "done"}, nil }

func fail(stderr string) func() (command.Result, error) {
	return func() (command.Result, error) { return command.Result{ExitCode: 1, Stderr: stderr}, nil }
}

type mockLedger struct {
	mu  sync.Mutex
	rec quota.Ledger
}

func (m *mockLedger) Load(_ context.Context) quota.Ledger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

func (m *mockLedger) IncrementRequests(_ context.Context, n int64) (quota.Ledger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.AddRequests(n)
	return m.rec, nil
}

func (m *mockLedger) set(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.RequestsUsed = n
}

func (m *mockLedger) used() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.RequestsUsed
}

type mockObserver struct {
	mu      sync.Mutex
	samples []int64
}

func (m *mockObserver) Observe(_ context.Context, cost int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, cost)
}

func (m *mockObserver) Mean(_ context.Context) float64 { return 38 }

type mockReconciler struct {
	mu    sync.Mutex
	calls int
}

func (m *mockReconciler) AfterOperation(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	err   error
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, d)
	return s.err
}

// --- Helpers ---

type fixture struct {
	runner *scriptedRunner
	ledger *mockLedger
	obs    *mockObserver
	rec    *mockReconciler
	sleep  *sleepRecorder
	exec   *Executor
}

func newFixture(used int64, steps ...func() (command.Result, error)) *fixture {
	f := &fixture{
		runner: &scriptedRunner{steps: steps},
		ledger: &mockLedger{rec: quota.Fresh("2026-03-01", 0)},
		obs:    &mockObserver{},
		rec:    &mockReconciler{},
		sleep:  &sleepRecorder{},
	}
	f.ledger.set(used)
	gate := ucquota.NewGate(ucquota.GateConfig{
		RequestLimit: 10000, ByteLimit: 1 << 30,
		Warning: 0.80, Critical: 0.90, Stop: 0.95, Reserve: 300,
	}, zap.NewNop())
	clock := quota.NewClock(time.UTC, func() time.Time {
		return time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	})
	f.exec = New(f.runner, f.ledger, gate, f.obs, clock, zap.NewNop()).
		WithReconciler(f.rec).
		WithSleep(f.sleep.Sleep)
	return f
}

func uploadCall(cost int64) Call {
	return Call{
		Name:          "upload",
		Args:          []string{"copy", "src", "dst"},
		QuotaRelevant: true,
		EstimatedCost: cost,
		Policy:        RetryPolicy{MaxAttempts: 5, Cooldown: 30 * time.Second},
	}
}

// --- Tests ---

func TestExecute_SuccessCommitsEstimate(t *testing.T) {
	f := newFixture(100, ok)

	res, err := f.exec.Execute(context.Background(), uploadCall(40))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stdout != "done" {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if f.ledger.used() != 140 {
		t.Errorf("requests_used = %d, want 140", f.ledger.used())
	}
	if len(f.obs.samples) != 1 || f.obs.samples[0] != 40 {
		t.Errorf("samples = %v, want [40]", f.obs.samples)
	}
	if f.rec.calls != 1 {
		t.Errorf("reconcile calls = %d, want 1", f.rec.calls)
	}
}

func TestExecute_NonQuotaCallNotCharged(t *testing.T) {
	f := newFixture(9800, ok)
	call := Call{Name: "list", Args: []string{"lsjson"}, Policy: RetryPolicy{MaxAttempts: 3, Cooldown: 5 * time.Second}}

	if _, err := f.exec.Execute(context.Background(), call); err != nil {
		t.Fatalf("non-quota call must ignore the gate: %v", err)
	}
	if f.ledger.used() != 9800 || len(f.obs.samples) != 0 || f.rec.calls != 0 {
		t.Error("non-quota call must not touch ledger, estimator or reconciler")
	}
}

func TestExecute_GateStopsBeforeAttempt(t *testing.T) {
	f := newFixture(9600, ok)

	_, err := f.exec.Execute(context.Background(), uploadCall(40))
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if qe.Kind != domain.QuotaRequests {
		t.Errorf("Kind = %q", qe.Kind)
	}
	if qe.SecondsUntilReset != 3600 {
		t.Errorf("SecondsUntilReset = %d, want 3600", qe.SecondsUntilReset)
	}
	if f.runner.calls != 0 {
		t.Errorf("runner called %d times, want 0", f.runner.calls)
	}
}

func TestExecute_DailyQuotaCommitsAndHalts(t *testing.T) {
	f := newFixture(1000, fail("Quota exceeded for quota metric 'All requests' and limit 'All requests per day'"))

	_, err := f.exec.Execute(context.Background(), uploadCall(38))
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) || qe.Kind != domain.QuotaRemote {
		t.Fatalf("expected remote QuotaExceededError, got %v", err)
	}
	if f.ledger.used() != 1038 {
		t.Errorf("requests_used = %d, want 1038", f.ledger.used())
	}
	if len(f.obs.samples) != 0 {
		t.Errorf("daily-quota failure must not feed the estimator, got %v", f.obs.samples)
	}
	if f.runner.calls != 1 || len(f.sleep.waits) != 0 {
		t.Errorf("calls = %d, waits = %v", f.runner.calls, f.sleep.waits)
	}
}

func TestExecute_PermanentMediaNoCharge(t *testing.T) {
	f := newFixture(500, fail("It may be damaged or use a file format that Preview doesn’t recognize."))

	_, err := f.exec.Execute(context.Background(), uploadCall(40))
	if !errors.Is(err, domain.ErrPermanentMedia) {
		t.Fatalf("expected ErrPermanentMedia, got %v", err)
	}
	if f.ledger.used() != 500 {
		t.Errorf("requests_used = %d, want unchanged 500", f.ledger.used())
	}
	if f.runner.calls != 1 {
		t.Errorf("permanent failure must not retry, calls = %d", f.runner.calls)
	}
}

func TestExecute_RateLimitBacksOffDouble(t *testing.T) {
	f := newFixture(0, fail("Error 429: Too Many Requests"), fail("rate limit exceeded"), ok)

	if _, err := f.exec.Execute(context.Background(), uploadCall(38)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{60 * time.Second, 120 * time.Second}
	if len(f.sleep.waits) != len(want) {
		t.Fatalf("waits = %v, want %v", f.sleep.waits, want)
	}
	for i := range want {
		if f.sleep.waits[i] != want[i] {
			t.Errorf("waits[%d] = %v, want %v", i, f.sleep.waits[i], want[i])
		}
	}
	if f.ledger.used() != 38 {
		t.Errorf("requests_used = %d, want 38", f.ledger.used())
	}
}

func TestExecute_GenericExhaustsWithoutCharge(t *testing.T) {
	f := newFixture(10, fail("connection reset by peer"))
	call := uploadCall(38)
	call.Policy = RetryPolicy{MaxAttempts: 3, Cooldown: 5 * time.Second}

	_, err := f.exec.Execute(context.Background(), call)
	var re *domain.RetriesExhaustedError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetriesExhaustedError, got %v", err)
	}
	if re.Attempts != 3 || re.LastOutput != "connection reset by peer" {
		t.Errorf("unexpected error %+v", re)
	}
	want := []time.Duration{5 * time.Second, 10 * time.Second}
	if len(f.sleep.waits) != 2 || f.sleep.waits[0] != want[0] || f.sleep.waits[1] != want[1] {
		t.Errorf("waits = %v, want %v (no sleep after final attempt)", f.sleep.waits, want)
	}
	if f.ledger.used() != 10 || len(f.obs.samples) != 0 {
		t.Error("exhausted retries must not commit cost")
	}
}

func TestExecute_QuotaRecheckedBetweenAttempts(t *testing.T) {
	f := newFixture(100)
	f.runner.steps = []func() (command.Result, error){
		func() (command.Result, error) {
			// Reconciliation elsewhere raised the counter past the stop line.
			f.ledger.set(9600)
			return command.Result{ExitCode: 1, Stderr: "timeout"}, nil
		},
		ok,
	}

	_, err := f.exec.Execute(context.Background(), uploadCall(38))
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if f.runner.calls != 1 {
		t.Errorf("calls = %d, want 1", f.runner.calls)
	}
}

func TestExecute_RunnerStartErrorIsRetried(t *testing.T) {
	f := newFixture(0, func() (command.Result, error) {
		return command.Result{ExitCode: -1}, errors.New(`exec: "rclone": executable file not found in $PATH`)
	})
	call := uploadCall(38)
	call.Policy.MaxAttempts = 2

	_, err := f.exec.Execute(context.Background(), call)
	if !errors.Is(err, domain.ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if f.runner.calls != 2 {
		t.Errorf("calls = %d, want 2", f.runner.calls)
	}
}

func TestExecute_SleepCancelled(t *testing.T) {
	f := newFixture(0, fail("boom"))
	f.sleep.err = context.Canceled

	_, err := f.exec.Execute(context.Background(), uploadCall(38))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.runner.calls != 1 {
		t.Errorf("calls = %d, want 1", f.runner.calls)
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Errorf("zero wait: %v", err)
	}
}
