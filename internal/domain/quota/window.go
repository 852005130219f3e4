package quota

// Window is a bounded, ordered sequence of observed per-operation request costs.
// When full, the oldest sample is evicted first.
type Window struct {
	capacity int
	samples  []int64
}

// NewWindow creates a Window holding at most capacity samples, keeping the newest of initial.
func NewWindow(capacity int, initial []int64) *Window {
	if capacity < 1 {
		capacity = 1
	}
	w := &Window{capacity: capacity, samples: make([]int64, 0, capacity)}
	if len(initial) > capacity {
		initial = initial[len(initial)-capacity:]
	}
	w.samples = append(w.samples, initial...)
	return w
}

// Add appends a sample, evicting the oldest when at capacity.
func (w *Window) Add(v int64) {
	if len(w.samples) == w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, v)
}

// Mean returns the arithmetic mean, or false when empty.
func (w *Window) Mean() (float64, bool) {
	if len(w.samples) == 0 {
		return 0, false
	}
	var sum int64
	for _, s := range w.samples {
		sum += s
	}
	return float64(sum) / float64(len(w.samples)), true
}

// Samples returns a copy of the samples, oldest first.
func (w *Window) Samples() []int64 {
	out := make([]int64, len(w.samples))
	copy(out, w.samples)
	return out
}

// Len returns the number of samples held.
func (w *Window) Len() int { return len(w.samples) }

// Reset drops every sample.
func (w *Window) Reset() { w.samples = w.samples[:0] }
