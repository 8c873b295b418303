package speech_to_text

import (
	"context"
	"fmt"
	"strings"

	"voice-home-assistant/clients/wit"
)

type witImpl struct {
	client wit.API
}

type WitConfig struct {
	Client wit.API
}

// NewWit transcribes through the wit.ai speech endpoint.
func NewWit(cfg *WitConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("wit client is nil")
	}

	return &witImpl{client: cfg.Client}, nil
}

func (w *witImpl) Transcribe(ctx context.Context, wav []byte) (string, error) {
	text, err := w.client.Speech(ctx, wav)
	if err != nil {
		return "", failure("wit.ai speech request failed", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", failure("no speech", nil)
	}

	return text, nil
}
