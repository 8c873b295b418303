package lighting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bridge struct {
	mu     sync.Mutex
	bodies []map[string]any
	paths  []string
	status int
}

func (b *bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	b.bodies = append(b.bodies, body)
	b.paths = append(b.paths, r.Method+" "+r.URL.Path)

	if b.status != 0 {
		w.WriteHeader(b.status)
		return
	}

	w.Write([]byte(`[{"success": {}}]`))
}

func (b *bridge) last() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[len(b.bodies)-1]
}

func (b *bridge) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bodies)
}

func newTestClient(t *testing.T) (API, *bridge) {
	t.Helper()

	b := &bridge{}
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{BridgeURL: server.URL, User: "abc", LightID: 3})
	require.NoError(t, err)

	return client, b
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil)
	assert.Error(t, err)

	_, err = NewClient(&Config{User: "abc"})
	assert.Error(t, err)

	_, err = NewClient(&Config{BridgeURL: "http://bridge"})
	assert.Error(t, err)
}

func TestSetState(t *testing.T) {
	client, b := newTestClient(t)

	require.NoError(t, client.SetState(context.Background(), true))

	assert.Equal(t, []string{"PUT /api/abc/lights/3/state"}, b.paths)
	assert.Equal(t, map[string]any{"on": true}, b.last())
}

func TestClamping(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(API) error
		want map[string]any
	}{
		{"hue above range", func(c API) error { return c.SetHue(ctx, 70000) }, map[string]any{"hue": float64(65535)}},
		{"hue in range", func(c API) error { return c.SetHue(ctx, 1200) }, map[string]any{"hue": float64(1200)}},
		{"brightness above range", func(c API) error { return c.SetBrightness(ctx, 300) }, map[string]any{"bri": float64(254)}},
		{"saturation above range", func(c API) error { return c.SetSaturation(ctx, 255) }, map[string]any{"sat": float64(254)}},
		{"color", func(c API) error { return c.SetColor(ctx, 70000, 300, 100) }, map[string]any{"hue": float64(65535), "sat": float64(254), "bri": float64(100)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, b := newTestClient(t)
			require.NoError(t, tt.call(client))
			assert.Equal(t, tt.want, b.last())
		})
	}
}

func TestClampNegative(t *testing.T) {
	assert.Equal(t, 0, clamp(-5, MaxHue))
	assert.Equal(t, 254, clamp(1000, MaxBrightness))
	assert.Equal(t, 17, clamp(17, MaxSaturation))
}

func TestRandom(t *testing.T) {
	client, b := newTestClient(t)

	require.NoError(t, client.Random(context.Background(), 100, -1))

	body := b.last()
	assert.Equal(t, true, body["on"])
	assert.Equal(t, float64(100), body["sat"])
	assert.GreaterOrEqual(t, body["bri"], float64(0))
	assert.LessOrEqual(t, body["bri"], float64(MaxBrightness))
	assert.LessOrEqual(t, body["hue"], float64(MaxHue))
}

func TestRandomLoop(t *testing.T) {
	client, b := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- client.RandomLoop(ctx, 5*time.Millisecond, -1, -1)
	}()

	assert.Eventually(t, func() bool { return b.count() >= 3 }, time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	assert.Error(t, client.RandomLoop(context.Background(), 0, -1, -1))
}

func TestBridgeError(t *testing.T) {
	client, b := newTestClient(t)
	b.mu.Lock()
	b.status = http.StatusInternalServerError
	b.mu.Unlock()

	assert.ErrorContains(t, client.SetState(context.Background(), false), "500")
}
