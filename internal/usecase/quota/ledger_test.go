package quota

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/gphotosync/internal/domain/quota"
)

func TestLedger_LoadMissingCreatesFreshRecord(t *testing.T) {
	repo := &mockLedgerRepo{}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())

	rec := l.Load(context.Background())
	if rec.RequestsUsed != 0 || rec.BytesUploaded != 0 || rec.Date != "2026-03-01" {
		t.Errorf("unexpected record %+v", rec)
	}
	if repo.saves != 1 {
		t.Errorf("fresh record should be persisted, saves = %d", repo.saves)
	}
}

func TestLedger_LoadUnreadableFallsBackToZero(t *testing.T) {
	repo := &mockLedgerRepo{loadErr: errors.New("unexpected end of JSON input")}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())

	rec := l.Load(context.Background())
	if rec.RequestsUsed != 0 {
		t.Errorf("RequestsUsed = %d, want 0", rec.RequestsUsed)
	}
	if repo.saves != 1 {
		t.Errorf("saves = %d, want 1", repo.saves)
	}
}

func TestLedger_NewDayResetsCounters(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-02-28", RequestsUsed: 9000, BytesUploaded: 1 << 30}}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())

	rec := l.Load(context.Background())
	if rec.RequestsUsed != 0 || rec.BytesUploaded != 0 {
		t.Errorf("expected zero counters on new day, got %+v", rec)
	}
	if repo.stored().Date != "2026-03-01" {
		t.Errorf("stored date = %q", repo.stored().Date)
	}
}

func TestLedger_SameDayPreservesCounters(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-03-01", RequestsUsed: 120, BytesUploaded: 4096}}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())

	rec := l.Load(context.Background())
	if rec.RequestsUsed != 120 || rec.BytesUploaded != 4096 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestLedger_MutatorDetectsRolloverMidRun(t *testing.T) {
	now := newFakeNow(day1)
	repo := &mockLedgerRepo{}
	l := NewLedger(repo, testClock(now), 0, zap.NewNop())
	ctx := context.Background()

	if _, err := l.IncrementRequests(ctx, 500); err != nil {
		t.Fatalf("IncrementRequests: %v", err)
	}
	now.Set(day1.AddDate(0, 0, 1))

	rec, err := l.IncrementRequests(ctx, 40)
	if err != nil {
		t.Fatalf("IncrementRequests: %v", err)
	}
	if rec.RequestsUsed != 40 || rec.Date != "2026-03-02" {
		t.Errorf("expected rollover then increment, got %+v", rec)
	}
}

func TestLedger_RollbackClampedAtZero(t *testing.T) {
	repo := &mockLedgerRepo{}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())
	ctx := context.Background()

	steps := []struct {
		inc  int64
		back int64
	}{{10, 3}, {0, 50}, {5, 1}, {0, 100}}
	for _, s := range steps {
		if _, err := l.IncrementRequests(ctx, s.inc); err != nil {
			t.Fatal(err)
		}
		rec, err := l.RollbackRequests(ctx, s.back)
		if err != nil {
			t.Fatal(err)
		}
		if rec.RequestsUsed < 0 {
			t.Fatalf("requests went negative: %d", rec.RequestsUsed)
		}
	}
	if got := repo.stored().RequestsUsed; got != 0 {
		t.Errorf("RequestsUsed = %d, want 0", got)
	}
}

func TestLedger_IncrementBytesKeepsRequests(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-03-01", RequestsUsed: 77}}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())

	rec, err := l.IncrementBytes(context.Background(), 2048)
	if err != nil {
		t.Fatal(err)
	}
	if rec.RequestsUsed != 77 || rec.BytesUploaded != 2048 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestLedger_OverwriteRequestsPreservesBytes(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-03-01", RequestsUsed: 300, BytesUploaded: 999}}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())

	rec, err := l.OverwriteRequests(context.Background(), 4200, quota.SourceReconciled)
	if err != nil {
		t.Fatal(err)
	}
	if rec.RequestsUsed != 4200 || rec.BytesUploaded != 999 || rec.Source != quota.SourceReconciled {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestLedger_SeedAppliedOnceWhenHigher(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-03-01", RequestsUsed: 100}}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 2500, zap.NewNop())
	ctx := context.Background()

	rec := l.Load(ctx)
	if rec.RequestsUsed != 2500 || rec.Source != quota.SourceManualSeed {
		t.Fatalf("seed not applied: %+v", rec)
	}

	if _, err := l.OverwriteRequests(ctx, 10, quota.SourceReconciled); err != nil {
		t.Fatal(err)
	}
	if rec := l.Load(ctx); rec.RequestsUsed != 10 {
		t.Errorf("seed reapplied: %+v", rec)
	}
}

func TestLedger_SeedIgnoredWhenLower(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-03-01", RequestsUsed: 3000}}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 2500, zap.NewNop())

	if rec := l.Load(context.Background()); rec.RequestsUsed != 3000 {
		t.Errorf("RequestsUsed = %d, want 3000", rec.RequestsUsed)
	}
}

func TestLedger_SeedStartsNewDay(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-02-28", RequestsUsed: 9999}}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 1200, zap.NewNop())

	rec := l.Load(context.Background())
	if rec.RequestsUsed != 1200 || rec.Source != quota.SourceManualSeed {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestLedger_SaveErrorSurfacesFromMutator(t *testing.T) {
	repo := &mockLedgerRepo{rec: &quota.Ledger{Date: "2026-03-01"}, saveErr: errors.New("read-only")}
	l := NewLedger(repo, testClock(newFakeNow(day1)), 0, zap.NewNop())

	if _, err := l.IncrementRequests(context.Background(), 1); err == nil {
		t.Error("expected error")
	}
}
