package record

import (
	"sort"
	"time"
)

// LegacyReason is assigned to entries migrated from the old bare-array failed list.
const LegacyReason = "previous failure (legacy list entry)"

// PermanentRejectionReason is recorded for items the photo service refused to create.
const PermanentRejectionReason = "Google Photos rejected the media item as damaged or unsupported. " +
	"Re-encode or inspect the original file before retrying."

// Failure describes why an item was permanently abandoned. Timestamp is nil for legacy entries.
type Failure struct {
	Reason    string
	Timestamp *time.Time
}

// Set is the UploadRecordSet: items already transferred and items permanently failed.
// The union only grows. Failed takes priority over Done.
type Set struct {
	done   map[string]struct{}
	failed map[string]Failure
}

// NewSet creates a Set from persisted state. Nil arguments are treated as empty.
func NewSet(done []string, failed map[string]Failure) *Set {
	s := &Set{
		done:   make(map[string]struct{}, len(done)),
		failed: make(map[string]Failure, len(failed)),
	}
	for _, p := range done {
		s.done[p] = struct{}{}
	}
	for p, f := range failed {
		s.failed[p] = f
	}
	return s
}

// FromLegacyList migrates a bare array of failed paths into the mapping form.
func FromLegacyList(paths []string) map[string]Failure {
	out := make(map[string]Failure, len(paths))
	for _, p := range paths {
		out[p] = Failure{Reason: LegacyReason}
	}
	return out
}

// Skip reports whether path must not be processed again, and the failure if that is why.
func (s *Set) Skip(path string) (bool, *Failure) {
	if f, ok := s.failed[path]; ok {
		return true, &f
	}
	_, ok := s.done[path]
	return ok, nil
}

// IsDone reports whether path was transferred.
func (s *Set) IsDone(path string) bool {
	_, ok := s.done[path]
	return ok
}

// IsFailed reports whether path was permanently abandoned.
func (s *Set) IsFailed(path string) bool {
	_, ok := s.failed[path]
	return ok
}

// MarkDone records a successful transfer.
func (s *Set) MarkDone(path string) {
	s.done[path] = struct{}{}
}

// MarkFailed records a permanent failure. The item is also marked done so it is never retried.
func (s *Set) MarkFailed(path, reason string, at time.Time) Failure {
	ts := at
	f := Failure{Reason: reason, Timestamp: &ts}
	s.failed[path] = f
	s.done[path] = struct{}{}
	return f
}

// Done returns the done paths, sorted.
func (s *Set) Done() []string {
	out := make([]string, 0, len(s.done))
	for p := range s.done {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Failed returns a copy of the failed mapping.
func (s *Set) Failed() map[string]Failure {
	out := make(map[string]Failure, len(s.failed))
	for p, f := range s.failed {
		out[p] = f
	}
	return out
}

// Len returns the number of distinct items in Done ∪ Failed.
func (s *Set) Len() int {
	n := len(s.done)
	for p := range s.failed {
		if _, ok := s.done[p]; !ok {
			n++
		}
	}
	return n
}
