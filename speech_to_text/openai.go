package speech_to_text

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type openaiImpl struct {
	client openai.Client
	model  openai.AudioModel
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// Model defaults to whisper-1.
	Model string
}

// NewOpenAI transcribes through the OpenAI audio transcription API.
func NewOpenAI(cfg *OpenAIConfig) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := openai.AudioModelWhisper1
	if cfg.Model != "" {
		model = openai.AudioModel(cfg.Model)
	}

	return &openaiImpl{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (o *openaiImpl) Transcribe(ctx context.Context, wav []byte) (string, error) {
	res, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: o.model,
	})
	if err != nil {
		return "", failure("openai transcription request failed", err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", failure("no speech", nil)
	}

	return text, nil
}
