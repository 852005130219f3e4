package history

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/gphotosync/internal/db"
)

func TestSaveLoad(t *testing.T) {
	ms := newMockStore()
	r := New(ms)
	ctx := context.Background()

	if err := r.Save(ctx, "2026-03-01", []int64{38, 40, 41}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	date, samples, err := r.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if date != "2026-03-01" {
		t.Errorf("date = %q", date)
	}
	if len(samples) != 3 || samples[2] != 41 {
		t.Errorf("samples = %v", samples)
	}
}

func TestSave_NilWritesEmptyArray(t *testing.T) {
	ms := newMockStore()
	if err := New(ms).Save(context.Background(), "2026-03-01", nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.Contains(string(ms.data[Key]), `"history": []`) {
		t.Errorf("stored %s", ms.data[Key])
	}
}

func TestLoad_Errors(t *testing.T) {
	ms := newMockStore()
	r := New(ms)

	if _, _, err := r.Load(context.Background()); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	ms.data[Key] = []byte(`[1,2`)
	if _, _, err := r.Load(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}
