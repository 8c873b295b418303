package lighting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"voice-home-assistant/logger"
)

const (
	MaxHue        = 65535
	MaxSaturation = 254
	MaxBrightness = 254
)

// State is the body of a light state update; nil fields are left unchanged.
type State struct {
	On  *bool `json:"on,omitempty"`
	Hue *int  `json:"hue,omitempty"`
	Sat *int  `json:"sat,omitempty"`
	Bri *int  `json:"bri,omitempty"`
}

type clientImpl struct {
	stateURL   string
	httpClient *http.Client
	log        *logger.Logger
}

type Config struct {
	BridgeURL string
	User      string
	LightID   int
	Timeout   time.Duration
	Logger    *logger.Logger
}

func NewClient(cfg *Config) (API, error) {
	if cfg == nil {
		return nil, errors.New("missing parameter: cfg")
	}

	if cfg.BridgeURL == "" {
		return nil, errors.New("missing parameter: cfg.BridgeURL")
	}

	if cfg.User == "" {
		return nil, errors.New("missing parameter: cfg.User")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &clientImpl{
		stateURL:   cfg.BridgeURL + "/api/" + cfg.User + "/lights/" + strconv.Itoa(cfg.LightID) + "/state",
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.OrNop(cfg.Logger),
	}, nil
}

func clamp(v, hi int) int {
	return min(max(v, 0), hi)
}

func (client *clientImpl) SetState(ctx context.Context, on bool) error {
	return client.put(ctx, State{On: &on})
}

func (client *clientImpl) SetHue(ctx context.Context, hue int) error {
	hue = clamp(hue, MaxHue)
	return client.put(ctx, State{Hue: &hue})
}

func (client *clientImpl) SetBrightness(ctx context.Context, bri int) error {
	bri = clamp(bri, MaxBrightness)
	return client.put(ctx, State{Bri: &bri})
}

func (client *clientImpl) SetSaturation(ctx context.Context, sat int) error {
	sat = clamp(sat, MaxSaturation)
	return client.put(ctx, State{Sat: &sat})
}

func (client *clientImpl) SetColor(ctx context.Context, hue, sat, bri int) error {
	hue = clamp(hue, MaxHue)
	sat = clamp(sat, MaxSaturation)
	bri = clamp(bri, MaxBrightness)

	return client.put(ctx, State{Hue: &hue, Sat: &sat, Bri: &bri})
}

func (client *clientImpl) Random(ctx context.Context, sat, bri int) error {
	if sat < 0 {
		sat = rand.IntN(MaxSaturation + 1)
	}

	if bri < 0 {
		bri = rand.IntN(MaxBrightness + 1)
	}

	on := true
	hue := rand.IntN(MaxHue + 1)
	sat = clamp(sat, MaxSaturation)
	bri = clamp(bri, MaxBrightness)

	return client.put(ctx, State{On: &on, Hue: &hue, Sat: &sat, Bri: &bri})
}

func (client *clientImpl) RandomLoop(ctx context.Context, interval time.Duration, sat, bri int) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := client.Random(ctx, sat, bri); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			client.log.Warnw("could not update light", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (client *clientImpl) put(ctx context.Context, state State) error {
	body, err := json.Marshal(state)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, client.stateURL, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge returned status %d: %s", resp.StatusCode, string(msg))
	}

	client.log.Debugw("light state updated", "state", string(body))

	return nil
}
