package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"voice-home-assistant/audio_source"
	"voice-home-assistant/capture_loop"
	"voice-home-assistant/clients/lighting"
	"voice-home-assistant/clients/player"
	"voice-home-assistant/clients/wit"
	"voice-home-assistant/config"
	"voice-home-assistant/intent"
	"voice-home-assistant/logger"
	"voice-home-assistant/metrics"
	"voice-home-assistant/phrase_segmenter"
	"voice-home-assistant/settings"
	"voice-home-assistant/speech_to_text"
	"voice-home-assistant/utterance_encoder"
)

func main() {
	configFlag := flag.String("config", "", "path to the YAML config file")
	listFlag := flag.Bool("list-devices", false, "list audio input devices and exit")
	phrasesFlag := flag.Int("phrases", -1, "number of phrases to capture; negative listens forever")
	debugFlag := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	if *listFlag {
		if err := listDevices(); err != nil {
			log.Fatalf("error listing devices: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configFlag)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "phrases":
			cfg.Capture.Phrases = *phrasesFlag
		case "debug":
			cfg.Debug = *debugFlag
		}
	})

	l := logger.New(cfg.Debug)
	defer l.Sync()

	if err := run(ctx, cfg, l); err != nil {
		l.Errorw("assistant stopped", "error", err)
		l.Sync()
		os.Exit(1)
	}
}

func listDevices() error {
	devices, err := audio_source.Devices()
	if err != nil {
		return err
	}

	for _, d := range devices {
		fmt.Printf("%3d  %-40s  channels=%d  rate=%.0f\n", d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}

	return nil
}

func run(ctx context.Context, cfg *config.Config, l *logger.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	osFs := afero.NewOsFs()

	store, err := settings.NewStore(&settings.StoreConfig{
		Defaults: cfg.SettingsDefaults(),
		Fs:       osFs,
		Path:     cfg.Server.SettingsFile,
		Validate: func(next map[string]any) error {
			c := *cfg
			return c.ApplySettings(next)
		},
		Logger: l,
	})
	if err != nil {
		return err
	}

	if err := cfg.ApplySettings(store.Get()); err != nil {
		return err
	}

	l.Infow("starting assistant", "config", cfg.String())

	var witClient wit.API
	if cfg.Secrets.WitToken != "" {
		witClient, err = wit.NewClient(&wit.Config{
			ApiHost: cfg.Wit.Host,
			Version: cfg.Wit.Version,
			Token:   cfg.Secrets.WitToken,
			Timeout: cfg.Wit.Timeout,
		})
		if err != nil {
			return err
		}
	}

	transcriber, closeTranscriber, err := newTranscriber(cfg, witClient)
	if err != nil {
		return err
	}
	defer closeTranscriber()

	handler, err := newHandler(cfg, witClient, l)
	if err != nil {
		return err
	}
	defer handler.Close()

	segmenter, err := phrase_segmenter.New(&phrase_segmenter.Config{
		Threshold:    cfg.Segmenter.Threshold,
		SilenceLimit: cfg.Segmenter.SilenceLimit,
		PreRoll:      cfg.Segmenter.PreRoll,
		SampleRate:   cfg.Audio.SampleRate,
		ChunkSize:    cfg.Audio.ChunkSize,
		MaxUtterance: cfg.Segmenter.MaxUtterance,
		Metrics:      m,
		Logger:       l,
	})
	if err != nil {
		return err
	}

	encoderCfg := &utterance_encoder.Config{Logger: l}
	if cfg.Audio.DumpDir != "" {
		encoderCfg.DumpFs = osFs
		encoderCfg.DumpDir = cfg.Audio.DumpDir
	}

	encoder, err := utterance_encoder.New(encoderCfg)
	if err != nil {
		return err
	}

	loop, err := capture_loop.New(&capture_loop.Config{
		Phrases: cfg.Capture.Phrases,
		Source: func() (audio_source.Interface, error) {
			return audio_source.Open(&audio_source.Config{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				ChunkSize:   cfg.Audio.ChunkSize,
				DeviceIndex: cfg.Audio.DeviceIndex,
				Metrics:     m,
				Logger:      l,
			})
		},
		Segmenter: segmenter,
		Encoder:   encoder,
		Params: utterance_encoder.Params{
			Channels:    cfg.Audio.Channels,
			SampleWidth: 2,
			SampleRate:  cfg.Audio.SampleRate,
		},
		Transcriber: transcriber,
		Handler:     handler,
		QueueSize:   cfg.Capture.QueueSize,
		Metrics:     m,
		Logger:      l,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// the settings server lives only as long as the capture loop
		defer cancel()
		return loop.Run(gctx)
	})

	if cfg.Server.Addr != "" {
		server, err := settings.NewServer(&settings.Config{
			Store:    store,
			Gatherer: reg,
			Metrics:  m,
			Logger:   l,
		})
		if err != nil {
			return err
		}

		g.Go(func() error {
			return server.Run(gctx, cfg.Server.Addr)
		})
	}

	return g.Wait()
}

func newTranscriber(cfg *config.Config, witClient wit.API) (speech_to_text.Interface, func(), error) {
	noop := func() {}

	switch cfg.Transcription.Backend {
	case "whisper":
		model, err := whisper.New(cfg.Transcription.WhisperModel)
		if err != nil {
			return nil, noop, fmt.Errorf("error loading model: %w", err)
		}

		stt, err := speech_to_text.NewWhisper(&speech_to_text.WhisperConfig{Model: model})
		if err != nil {
			model.Close()
			return nil, noop, err
		}

		return stt, func() { model.Close() }, nil
	case "openai":
		stt, err := speech_to_text.NewOpenAI(&speech_to_text.OpenAIConfig{
			APIKey:  cfg.Secrets.OpenAIAPIKey,
			BaseURL: cfg.Transcription.OpenAIBaseURL,
			Model:   cfg.Transcription.OpenAIModel,
		})
		return stt, noop, err
	default:
		stt, err := speech_to_text.NewWit(&speech_to_text.WitConfig{Client: witClient})
		return stt, noop, err
	}
}

type closingHandler interface {
	capture_loop.Handler
	Close()
}

type logHandler struct {
	log *logger.Logger
}

func (h logHandler) Handle(_ context.Context, text string) error {
	h.log.Infow("heard", "text", text)
	return nil
}

func (logHandler) Close() {}

// newHandler builds the intent dispatcher, or a logging handler when no wit.ai
// token is configured to parse intents with.
func newHandler(cfg *config.Config, witClient wit.API, l *logger.Logger) (closingHandler, error) {
	if witClient == nil {
		l.Warnw("no WIT_TOKEN set, transcriptions will only be logged")
		return logHandler{log: l}, nil
	}

	dispatcherCfg := &intent.Config{
		Wit:     witClient,
		Presets: intent.DefaultPresets(),
		Logger:  l,
	}

	for mood, tracks := range cfg.Player.Playlists {
		preset := dispatcherCfg.Presets[mood]
		preset.Playlist = tracks
		dispatcherCfg.Presets[mood] = preset
	}

	if cfg.Lighting.Enabled {
		lights, err := lighting.NewClient(&lighting.Config{
			BridgeURL: cfg.Lighting.BridgeURL,
			User:      cfg.Secrets.HueUser,
			LightID:   cfg.Lighting.LightID,
			Logger:    l,
		})
		if err != nil {
			return nil, err
		}
		dispatcherCfg.Lights = lights
	}

	if cfg.Player.Command != "" {
		p, err := player.New(&player.Config{
			Command: cfg.Player.Command,
			Args:    cfg.Player.Args,
			Logger:  l,
		})
		if err != nil {
			return nil, err
		}
		dispatcherCfg.Player = p
	}

	return intent.New(dispatcherCfg)
}
