package audio_source

import "context"

type Interface interface {
	// NextChunk blocks until one full chunk of samples has been read.
	NextChunk(ctx context.Context) ([]int16, error)
	Close() error
}

// Opener acquires a source; the caller owns the returned source and must Close it.
type Opener func() (Interface, error)

// Device describes one input device.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}
