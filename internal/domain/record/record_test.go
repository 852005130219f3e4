package record

import (
	"testing"
	"time"
)

func TestSkip_FailedWinsOverDone(t *testing.T) {
	s := NewSet([]string{"a.jpg", "b.jpg"}, map[string]Failure{"b.jpg": {Reason: "bad"}})

	skip, f := s.Skip("b.jpg")
	if !skip {
		t.Fatal("expected skip")
	}
	if f == nil || f.Reason != "bad" {
		t.Errorf("expected failure reason, got %+v", f)
	}

	skip, f = s.Skip("a.jpg")
	if !skip || f != nil {
		t.Errorf("a.jpg: skip=%v failure=%v", skip, f)
	}

	skip, _ = s.Skip("c.jpg")
	if skip {
		t.Error("c.jpg should not be skipped")
	}
}

func TestMarkFailed_AlsoMarksDone(t *testing.T) {
	s := NewSet(nil, nil)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	f := s.MarkFailed("x.heic", PermanentRejectionReason, at)
	if f.Timestamp == nil || !f.Timestamp.Equal(at) {
		t.Errorf("timestamp = %v", f.Timestamp)
	}
	if !s.IsDone("x.heic") || !s.IsFailed("x.heic") {
		t.Error("expected item in both done and failed")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestFromLegacyList(t *testing.T) {
	m := FromLegacyList([]string{"a.jpg", "b.mov"})
	if len(m) != 2 {
		t.Fatalf("len = %d", len(m))
	}
	for p, f := range m {
		if f.Reason != LegacyReason {
			t.Errorf("%s: reason = %q", p, f.Reason)
		}
		if f.Timestamp != nil {
			t.Errorf("%s: expected nil timestamp", p)
		}
	}
}

func TestDone_Sorted(t *testing.T) {
	s := NewSet([]string{"c", "a"}, nil)
	s.MarkDone("b")
	got := s.Done()
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Done() = %v, want %v", got, want)
		}
	}
}

func TestFailed_ReturnsCopy(t *testing.T) {
	s := NewSet(nil, map[string]Failure{"a": {Reason: "r"}})
	m := s.Failed()
	delete(m, "a")
	if !s.IsFailed("a") {
		t.Error("mutating the copy changed the set")
	}
}
