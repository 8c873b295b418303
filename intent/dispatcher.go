package intent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"voice-home-assistant/clients/lighting"
	"voice-home-assistant/clients/player"
	"voice-home-assistant/clients/wit"
	"voice-home-assistant/logger"
)

const (
	intentStop   = "stop"
	intentLights = "lights"
)

type dispatcherImpl struct {
	wit     wit.API
	lights  lighting.API
	player  player.API
	presets map[string]Preset
	log     *logger.Logger

	mu    sync.Mutex
	mood  string
	party context.CancelFunc
	music context.CancelFunc
	wg    sync.WaitGroup
}

type Config struct {
	Wit wit.API
	// Lights and Player are optional; moods skip whatever is missing.
	Lights  lighting.API
	Player  player.API
	Presets map[string]Preset
	Logger  *logger.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Wit == nil {
		return nil, fmt.Errorf("wit client is nil")
	}

	presets := cfg.Presets
	if presets == nil {
		presets = DefaultPresets()
	}

	return &dispatcherImpl{
		wit:     cfg.Wit,
		lights:  cfg.Lights,
		player:  cfg.Player,
		presets: presets,
		log:     logger.OrNop(cfg.Logger),
	}, nil
}

func (d *dispatcherImpl) Handle(ctx context.Context, text string) error {
	resp, err := d.wit.Message(ctx, text)
	if err != nil {
		return fmt.Errorf("parse %q: %w", text, err)
	}

	mood := resp.FirstEntityValue("mood")
	intent := resp.FirstEntityValue("intent")

	d.log.Infow("understood phrase", "text", text, "intent", intent, "mood", mood)

	switch {
	case intent == intentStop:
		d.Close()
		return nil
	case intent == intentLights:
		return d.switchLights(ctx, resp.FirstEntityValue("on_off"))
	case rideIntents[intent]:
		d.log.Infow("ride requested", "intent", intent)
	}

	if m := MoodFromIntent(intent); m != "" {
		mood = m
	}

	if mood == "" {
		return nil
	}

	return d.setMood(ctx, mood)
}

func (d *dispatcherImpl) switchLights(ctx context.Context, value string) error {
	if d.lights == nil {
		return nil
	}

	d.stopLightLoop()

	return d.lights.SetState(ctx, value != "off")
}

func (d *dispatcherImpl) setMood(ctx context.Context, mood string) error {
	d.mu.Lock()
	d.mood = mood
	d.mu.Unlock()

	preset, ok := d.presets[mood]
	if !ok {
		d.log.Infow("no preset for mood", "mood", mood)
		return nil
	}

	d.stopLightLoop()

	var errs []error

	if d.lights != nil {
		switch preset.Lights {
		case LightsParty:
			loopCtx := d.replace(&d.party)
			d.spawn(func() {
				if err := d.lights.RandomLoop(loopCtx, preset.PartyInterval, preset.Saturation, preset.Brightness); err != nil {
					d.log.Warnw("light loop failed", "error", err)
				}
			})
		case LightsColor:
			if err := d.lights.SetColor(ctx, preset.Hue, preset.Saturation, preset.Brightness); err != nil {
				errs = append(errs, fmt.Errorf("set lights for %s: %w", mood, err))
			}
		}
	}

	if d.player != nil && len(preset.Playlist) > 0 {
		// the playlist outlives the phrase that started it
		playCtx := d.replace(&d.music)
		d.spawn(func() {
			if err := d.player.Play(playCtx, preset.Playlist); err != nil {
				d.log.Warnw("playlist failed", "mood", mood, "error", err)
			}
		})
	}

	return errors.Join(errs...)
}

// replace cancels the activity held in slot and installs a fresh one.
func (d *dispatcherImpl) replace(slot *context.CancelFunc) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	d.mu.Lock()
	old := *slot
	*slot = cancel
	d.mu.Unlock()

	if old != nil {
		old()
	}

	return ctx
}

func (d *dispatcherImpl) cancel(slot *context.CancelFunc) {
	d.mu.Lock()
	old := *slot
	*slot = nil
	d.mu.Unlock()

	if old != nil {
		old()
	}
}

func (d *dispatcherImpl) spawn(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

func (d *dispatcherImpl) stopLightLoop() {
	d.cancel(&d.party)
}

func (d *dispatcherImpl) Mood() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.mood
}

func (d *dispatcherImpl) Close() {
	d.stopLightLoop()
	d.cancel(&d.music)

	if d.player != nil {
		d.player.Stop()
	}

	d.wg.Wait()
}
