package intent

import "context"

type Interface interface {
	// Handle interprets one transcription and drives the actuators.
	Handle(ctx context.Context, text string) error
	// Mood is the mood set by the most recent phrase that carried one.
	Mood() string
	// Close stops any light loop or music started by the dispatcher.
	Close()
}
