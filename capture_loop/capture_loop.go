package capture_loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"voice-home-assistant/audio_source"
	"voice-home-assistant/logger"
	"voice-home-assistant/metrics"
	"voice-home-assistant/phrase_segmenter"
	"voice-home-assistant/speech_to_text"
	"voice-home-assistant/utterance_encoder"
)

const defaultQueueSize = 4

type loopImpl struct {
	cfg Config
	log *logger.Logger
}

type Config struct {
	// Phrases is the number of phrases to capture. Negative means unbounded;
	// zero returns without touching the audio device.
	Phrases     int
	Source      audio_source.Opener
	Segmenter   phrase_segmenter.Interface
	Encoder     utterance_encoder.Interface
	Params      utterance_encoder.Params
	Transcriber speech_to_text.Interface
	// Handler is optional; without one transcriptions are only logged.
	Handler   Handler
	QueueSize int
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Source == nil {
		return nil, fmt.Errorf("source is nil")
	}

	if cfg.Segmenter == nil {
		return nil, fmt.Errorf("segmenter is nil")
	}

	if cfg.Encoder == nil {
		return nil, fmt.Errorf("encoder is nil")
	}

	if cfg.Transcriber == nil {
		return nil, fmt.Errorf("transcriber is nil")
	}

	c := *cfg
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}

	if c.Params == (utterance_encoder.Params{}) {
		c.Params = utterance_encoder.DefaultParams()
	}

	return &loopImpl{
		cfg: c,
		log: logger.OrNop(c.Logger),
	}, nil
}

func (l *loopImpl) Run(ctx context.Context) error {
	if l.cfg.Phrases == 0 {
		return nil
	}

	queue := make(chan *phrase_segmenter.Utterance, l.cfg.QueueSize)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		return l.capture(gctx, queue)
	})

	g.Go(func() error {
		return l.transcribe(gctx, queue)
	})

	return g.Wait()
}

func (l *loopImpl) capture(ctx context.Context, queue chan<- *phrase_segmenter.Utterance) error {
	source, err := l.cfg.Source()
	if err != nil {
		return fmt.Errorf("could not open audio source: %w", err)
	}

	defer func() {
		if err := source.Close(); err != nil {
			l.log.Warnw("could not close audio source", "error", err)
		}
	}()

	l.cfg.Segmenter.Reset()

	l.log.Infow("listening", "phrases", l.cfg.Phrases)

	captured := 0

	for l.cfg.Phrases < 0 || captured < l.cfg.Phrases {
		if ctx.Err() != nil {
			l.cfg.Segmenter.Reset()
			return nil
		}

		chunk, err := source.NextChunk(ctx)
		if err != nil {
			l.cfg.Segmenter.Reset()

			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}

			l.log.Errorw("audio capture failed", "error", err)
			return fmt.Errorf("capture stopped: %w", err)
		}

		u, err := l.cfg.Segmenter.Push(chunk)
		if err != nil {
			l.cfg.Segmenter.Reset()
			return fmt.Errorf("segment audio: %w", err)
		}

		if u == nil {
			continue
		}

		captured++
		l.log.Infow("captured phrase", "index", u.Index, "chunks", u.Len(), "duration", u.Duration())

		select {
		case queue <- u:
			l.cfg.Metrics.SetQueueDepth(len(queue))
			continue
		default:
		}

		// the device keeps filling while we wait here and may overflow
		l.log.Warnw("transcription queue full, capture paused", "index", u.Index, "queue_size", cap(queue))

		select {
		case queue <- u:
			l.cfg.Metrics.SetQueueDepth(len(queue))
		case <-ctx.Done():
			return nil
		}
	}

	l.log.Infow("phrase budget reached", "phrases", captured)

	return nil
}

func (l *loopImpl) transcribe(ctx context.Context, queue <-chan *phrase_segmenter.Utterance) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-queue:
			if !ok {
				return nil
			}

			l.cfg.Metrics.SetQueueDepth(len(queue))

			if ctx.Err() != nil {
				return nil
			}

			l.process(ctx, u)
		}
	}
}

// process never fails the loop; a bad phrase is logged and skipped.
func (l *loopImpl) process(ctx context.Context, u *phrase_segmenter.Utterance) {
	data, err := l.cfg.Encoder.Encode(u, l.cfg.Params)
	if err != nil {
		l.log.Warnw("could not encode phrase", "index", u.Index, "error", err)
		return
	}

	start := time.Now()
	text, err := l.cfg.Transcriber.Transcribe(ctx, data)
	l.cfg.Metrics.RecordTranscription(time.Since(start).Seconds(), err != nil)

	if err != nil {
		if ctx.Err() != nil {
			return
		}

		l.log.Warnw("transcription failed", "index", u.Index, "error", err)
		return
	}

	l.log.Infow("transcribed phrase", "index", u.Index, "text", text)

	if l.cfg.Handler == nil {
		return
	}

	if err := l.cfg.Handler.Handle(ctx, text); err != nil {
		l.cfg.Metrics.RecordHandlerFailure()
		l.log.Warnw("could not handle phrase", "index", u.Index, "text", text, "error", err)
	}
}
