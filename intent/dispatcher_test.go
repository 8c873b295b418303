package intent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-home-assistant/clients/wit"
)

type fakeWit struct {
	responses map[string]*wit.MessageResponse
	err       error
}

func (f *fakeWit) Speech(context.Context, []byte) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeWit) Message(_ context.Context, text string) (*wit.MessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}

	if resp, ok := f.responses[text]; ok {
		return resp, nil
	}

	return &wit.MessageResponse{Text: text}, nil
}

func entities(kv ...string) *wit.MessageResponse {
	resp := &wit.MessageResponse{Entities: map[string][]wit.Entity{}}
	for i := 0; i < len(kv); i += 2 {
		raw, _ := json.Marshal(kv[i+1])
		resp.Entities[kv[i]] = []wit.Entity{{Value: raw, Confidence: 0.9}}
	}
	return resp
}

type fakeLights struct {
	mu      sync.Mutex
	calls   []string
	looping bool
	err     error
}

func (f *fakeLights) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeLights) SetState(_ context.Context, on bool) error {
	if on {
		return f.record("on")
	}
	return f.record("off")
}

func (f *fakeLights) SetHue(context.Context, int) error        { return f.record("hue") }
func (f *fakeLights) SetBrightness(context.Context, int) error { return f.record("bri") }
func (f *fakeLights) SetSaturation(context.Context, int) error { return f.record("sat") }
func (f *fakeLights) SetColor(context.Context, int, int, int) error {
	return f.record("color")
}
func (f *fakeLights) Random(context.Context, int, int) error { return f.record("random") }

func (f *fakeLights) RandomLoop(ctx context.Context, _ time.Duration, _, _ int) error {
	f.mu.Lock()
	f.looping = true
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	f.looping = false
	f.mu.Unlock()
	return nil
}

func (f *fakeLights) Looping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.looping
}

func (f *fakeLights) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakePlayer struct {
	mu      sync.Mutex
	played  [][]string
	playing bool
	stops   int
}

func (f *fakePlayer) Play(ctx context.Context, tracks []string) error {
	f.mu.Lock()
	f.played = append(f.played, tracks)
	f.playing = true
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	f.playing = false
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakePlayer) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func newTestDispatcher(t *testing.T, responses map[string]*wit.MessageResponse) (Interface, *fakeLights, *fakePlayer) {
	t.Helper()

	lights := &fakeLights{}
	player := &fakePlayer{}

	presets := DefaultPresets()
	relaxing := presets[MoodRelaxing]
	relaxing.Playlist = []string{"108707936", "3135553"}
	presets[MoodRelaxing] = relaxing

	d, err := New(&Config{
		Wit:     &fakeWit{responses: responses},
		Lights:  lights,
		Player:  player,
		Presets: presets,
	})
	require.NoError(t, err)
	t.Cleanup(d.Close)

	return d, lights, player
}

func TestMoodFromIntent(t *testing.T) {
	tests := map[string]string{
		"dance":     MoodHappy,
		"cab":       MoodRelaxing,
		"car":       MoodRelaxing,
		"batmobile": MoodRelaxing,
		"chill":     MoodRelaxing,
		"weather":   "",
		"":          "",
	}

	for intent, want := range tests {
		assert.Equal(t, want, MoodFromIntent(intent), intent)
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{})
	assert.Error(t, err)
}

func TestHandle_Dance(t *testing.T) {
	d, lights, _ := newTestDispatcher(t, map[string]*wit.MessageResponse{
		"let's dance": entities("intent", "dance"),
	})

	require.NoError(t, d.Handle(context.Background(), "let's dance"))

	assert.Equal(t, MoodHappy, d.Mood())
	assert.Eventually(t, lights.Looping, time.Second, time.Millisecond)

	d.Close()
	assert.False(t, lights.Looping())
}

func TestHandle_Chill(t *testing.T) {
	d, lights, player := newTestDispatcher(t, map[string]*wit.MessageResponse{
		"time to chill": entities("intent", "chill"),
	})

	require.NoError(t, d.Handle(context.Background(), "time to chill"))

	assert.Equal(t, MoodRelaxing, d.Mood())
	assert.Equal(t, []string{"color"}, lights.Calls())
	assert.Eventually(t, player.Playing, time.Second, time.Millisecond)
	assert.Equal(t, [][]string{{"108707936", "3135553"}}, player.played)
}

func TestHandle_RideIntent(t *testing.T) {
	d, _, _ := newTestDispatcher(t, map[string]*wit.MessageResponse{
		"call me a cab": entities("intent", "cab"),
	})

	require.NoError(t, d.Handle(context.Background(), "call me a cab"))
	assert.Equal(t, MoodRelaxing, d.Mood())
}

func TestHandle_ExplicitMood(t *testing.T) {
	d, _, _ := newTestDispatcher(t, map[string]*wit.MessageResponse{
		"i feel sleepy": entities("mood", "sleepy"),
	})

	require.NoError(t, d.Handle(context.Background(), "i feel sleepy"))
	assert.Equal(t, "sleepy", d.Mood())
}

func TestHandle_IntentOverridesMood(t *testing.T) {
	d, _, _ := newTestDispatcher(t, map[string]*wit.MessageResponse{
		"sad but dance": entities("mood", "sad", "intent", "dance"),
	})

	require.NoError(t, d.Handle(context.Background(), "sad but dance"))
	assert.Equal(t, MoodHappy, d.Mood())
}

func TestHandle_Lights(t *testing.T) {
	d, lights, _ := newTestDispatcher(t, map[string]*wit.MessageResponse{
		"lights off": entities("intent", "lights", "on_off", "off"),
		"lights on":  entities("intent", "lights", "on_off", "on"),
	})

	require.NoError(t, d.Handle(context.Background(), "lights off"))
	require.NoError(t, d.Handle(context.Background(), "lights on"))

	assert.Equal(t, []string{"off", "on"}, lights.Calls())
	assert.Empty(t, d.Mood())
}

func TestHandle_Stop(t *testing.T) {
	d, lights, player := newTestDispatcher(t, map[string]*wit.MessageResponse{
		"dance": entities("intent", "dance"),
		"chill": entities("intent", "chill"),
		"stop":  entities("intent", "stop"),
	})

	require.NoError(t, d.Handle(context.Background(), "dance"))
	require.NoError(t, d.Handle(context.Background(), "chill"))
	assert.Eventually(t, player.Playing, time.Second, time.Millisecond)

	require.NoError(t, d.Handle(context.Background(), "stop"))

	assert.False(t, player.Playing())
	assert.False(t, lights.Looping())
	assert.GreaterOrEqual(t, player.stops, 1)
}

func TestHandle_Errors(t *testing.T) {
	boom := errors.New("offline")

	d, err := New(&Config{Wit: &fakeWit{err: boom}})
	require.NoError(t, err)
	assert.ErrorIs(t, d.Handle(context.Background(), "hello"), boom)

	lights := &fakeLights{err: errors.New("bridge down")}
	d, err = New(&Config{
		Wit:    &fakeWit{responses: map[string]*wit.MessageResponse{"chill": entities("intent", "chill")}},
		Lights: lights,
	})
	require.NoError(t, err)
	assert.ErrorContains(t, d.Handle(context.Background(), "chill"), "bridge down")
}

func TestHandle_NothingUnderstood(t *testing.T) {
	d, lights, player := newTestDispatcher(t, nil)

	require.NoError(t, d.Handle(context.Background(), "what's the weather"))

	assert.Empty(t, d.Mood())
	assert.Empty(t, lights.Calls())
	assert.Empty(t, player.played)
}
