package capture_loop

import "context"

type Interface interface {
	// Run captures and transcribes phrases until the phrase budget is spent,
	// ctx is cancelled, or the audio device fails.
	Run(ctx context.Context) error
}

// Handler receives each transcription, in phrase order.
type Handler interface {
	Handle(ctx context.Context, text string) error
}

type HandlerFunc func(ctx context.Context, text string) error

func (f HandlerFunc) Handle(ctx context.Context, text string) error {
	return f(ctx, text)
}
