package speech_to_text

import (
	"context"
	"errors"
)

var ErrTranscriptionFailure = errors.New("transcription failure")

type Interface interface {
	// Transcribe turns one WAV-encoded utterance into text. Errors wrap
	// ErrTranscriptionFailure; a recording with no recognized speech is an error.
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

func failure(reason string, err error) error {
	if err == nil {
		return errors.Join(ErrTranscriptionFailure, errors.New(reason))
	}

	return errors.Join(ErrTranscriptionFailure, errors.New(reason), err)
}
