package speech_to_text

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"voice-home-assistant/utterance_encoder"
)

type whisperImpl struct {
	model whisper.Model
}

type WhisperConfig struct {
	Model whisper.Model
}

// NewWhisper transcribes locally with a loaded whisper.cpp model.
func NewWhisper(cfg *WhisperConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Model == nil {
		return nil, fmt.Errorf("model is nil")
	}

	return &whisperImpl{
		model: cfg.Model,
	}, nil
}

func (stt *whisperImpl) Transcribe(ctx context.Context, wav []byte) (string, error) {
	samples, params, err := utterance_encoder.Decode(wav)
	if err != nil {
		return "", failure("could not decode recording", err)
	}

	if err := ctx.Err(); err != nil {
		return "", failure("cancelled", err)
	}

	wctx, err := stt.model.NewContext()
	if err != nil {
		return "", failure("could not create whisper context", err)
	}

	data := normalize(utterance_encoder.ToBuffer(samples, params).AsFloat32Buffer().Data)

	var cb whisper.SegmentCallback

	if err := wctx.Process(data, cb); err != nil {
		return "", failure("whisper processing failed", err)
	}

	texts, err := outputSegments(wctx)
	if err != nil {
		return "", failure("could not read segments", err)
	}

	text := strings.TrimSpace(strings.Join(texts, " "))
	if text == "" {
		return "", failure("no speech", nil)
	}

	return text, nil
}

// whisper expects samples in [-1, 1].
func normalize(data []float32) []float32 {
	for i := range data {
		data[i] /= 32768
	}

	return data
}

func outputSegments(wctx whisper.Context) ([]string, error) {
	var texts []string

	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			return filterSegments(texts), nil
		} else if err != nil {
			return nil, err
		}

		texts = append(texts, segment.Text)
	}
}

// filterSegments drops annotations such as "[music]" or "(wind)" and repeated lines.
func filterSegments(texts []string) []string {
	seenText := make(map[string]bool)

	out := make([]string, 0, len(texts))

	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if text[0] == '(' || text[0] == '[' || text[len(text)-1] == ')' || text[len(text)-1] == ']' {
			continue
		}

		if seenText[text] {
			continue
		}
		seenText[text] = true

		out = append(out, text)
	}

	return out
}
