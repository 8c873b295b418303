package silence_window

import (
	"fmt"
	"math"
	"time"

	"voice-home-assistant/ring_buffer"
)

// Window is a rolling history of loudness values. It reports noise while any
// value still inside it exceeds the threshold.
type Window struct {
	threshold float64
	values    *ring_buffer.Ring[float64]
}

func New(capacity int, threshold float64) (*Window, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be at least 1, got %d", capacity)
	}

	if threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative, got %f", threshold)
	}

	return &Window{
		threshold: threshold,
		values:    ring_buffer.New[float64](capacity),
	}, nil
}

// CapacityFor returns how many whole chunks cover span, rounded to the
// nearest chunk and never below 1.
func CapacityFor(span time.Duration, sampleRate, chunkSize int) int {
	if sampleRate <= 0 || chunkSize <= 0 || span <= 0 {
		return 1
	}

	chunks := int(math.Round(span.Seconds() * float64(sampleRate) / float64(chunkSize)))
	if chunks < 1 {
		return 1
	}

	return chunks
}

func (w *Window) Push(loudness float64) {
	w.values.Add(loudness)
}

func (w *Window) IsNoisy() bool {
	noisy := false

	w.values.Each(func(v float64) bool {
		if v > w.threshold {
			noisy = true
			return false
		}
		return true
	})

	return noisy
}

func (w *Window) Reset() {
	w.values.Clear()
}

func (w *Window) Len() int {
	return w.values.Len()
}

func (w *Window) Cap() int {
	return w.values.Cap()
}

func (w *Window) Threshold() float64 {
	return w.threshold
}
