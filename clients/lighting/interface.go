package lighting

import (
	"context"
	"time"
)

type API interface {
	SetState(ctx context.Context, on bool) error
	SetHue(ctx context.Context, hue int) error
	SetBrightness(ctx context.Context, bri int) error
	SetSaturation(ctx context.Context, sat int) error
	SetColor(ctx context.Context, hue, sat, bri int) error
	// Random turns the light on with a random hue. A negative sat or bri is
	// randomized as well.
	Random(ctx context.Context, sat, bri int) error
	// RandomLoop calls Random every interval until ctx is done.
	RandomLoop(ctx context.Context, interval time.Duration, sat, bri int) error
}
