package indicators

import "fmt"

// Window is a fixed-size sliding window of samples. Pushing onto a full
// window drops the oldest sample.
type Window struct {
	size   int
	values []float64
}

// NewWindow returns a window of the given size pre-filled with seed, so
// every average up to size is defined from the first sample on.
func NewWindow(size int, seed float64) *Window {
	if size <= 0 {
		size = 1
	}
	w := &Window{size: size, values: make([]float64, size)}
	for i := range w.values {
		w.values[i] = seed
	}
	return w
}

// RestoreWindow rebuilds a window from saved samples, oldest first.
func RestoreWindow(size int, values []float64) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}
	if len(values) != size {
		return nil, fmt.Errorf("window needs %d values, got %d", size, len(values))
	}
	return &Window{size: size, values: append([]float64(nil), values...)}, nil
}

// Push appends v, dropping the oldest sample.
func (w *Window) Push(v float64) {
	copy(w.values, w.values[1:])
	w.values[w.size-1] = v
}

// Values returns a copy of the samples, oldest first.
func (w *Window) Values() []float64 {
	return append([]float64(nil), w.values...)
}

// Average is the mean of the newest period samples.
func (w *Window) Average(period int) (float64, error) {
	if period > w.size {
		return 0, fmt.Errorf("period %d exceeds window size %d", period, w.size)
	}
	return MA(w.values, period)
}
