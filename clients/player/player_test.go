package player

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{})
	assert.Error(t, err)
}

func TestPlay_InOrder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "played")

	p, err := New(&Config{
		Command: "sh",
		Args:    []string{"-c", `echo "$0" >> "` + out + `"`},
	})
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), []string{"108707936", "3135553"}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"108707936", "3135553"}, strings.Fields(string(data)))
	assert.False(t, p.Playing())
}

func TestPlay_FailingTrackContinues(t *testing.T) {
	out := filepath.Join(t.TempDir(), "played")

	p, err := New(&Config{
		Command: "sh",
		Args:    []string{"-c", `echo "$0" >> "` + out + `"; [ "$0" != bad ]`},
	})
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), []string{"bad", "good"}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad", "good"}, strings.Fields(string(data)))
}

func TestStop(t *testing.T) {
	p, err := New(&Config{Command: "sleep"})
	require.NoError(t, err)

	// stopping an idle player is a no-op
	p.Stop()

	done := make(chan error, 1)
	go func() {
		done <- p.Play(context.Background(), []string{"10", "10"})
	}()

	assert.Eventually(t, p.Playing, time.Second, time.Millisecond)

	start := time.Now()
	p.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("playlist did not stop")
	}

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, p.Playing())
}

func TestPlay_ContextCancel(t *testing.T) {
	p, err := New(&Config{Command: "sleep"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Play(ctx, []string{"10"}))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPlay_Empty(t *testing.T) {
	p, err := New(&Config{Command: "sleep"})
	require.NoError(t, err)

	require.NoError(t, p.Play(context.Background(), nil))
	assert.False(t, p.Playing())
}
