package wit

import "context"

type API interface {
	// Speech sends a WAV recording and returns the recognized text.
	Speech(ctx context.Context, wav []byte) (string, error)
	// Message parses text into entities.
	Message(ctx context.Context, text string) (*MessageResponse, error)
}
