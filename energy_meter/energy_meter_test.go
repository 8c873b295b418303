package energy_meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoudness(t *testing.T) {
	t.Run("silence is exactly zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Loudness(make([]int16, 1024)))
	})

	t.Run("empty chunk is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Loudness(nil))
	})

	t.Run("word view of a constant pair", func(t *testing.T) {
		// 381<<16 | 30784 == 25,000,000
		chunk := make([]int16, 1024)
		for i := 0; i < len(chunk); i += 2 {
			chunk[i] = 30784
			chunk[i+1] = 381
		}

		assert.InDelta(t, 5000.0, Loudness(chunk), 1e-9)
	})

	t.Run("negative words count by magnitude", func(t *testing.T) {
		// 0xFFFF_FFFF is -1 as int32
		chunk := []int16{-1, -1, -1, -1}

		assert.InDelta(t, 1.0, Loudness(chunk), 1e-9)
	})

	t.Run("odd trailing sample uses a zero high half", func(t *testing.T) {
		chunk := []int16{0, 0, 100}

		// words: 0 and 100
		assert.InDelta(t, 7.0710678, Loudness(chunk), 1e-6)
	})

	t.Run("louder chunks measure louder", func(t *testing.T) {
		quiet := make([]int16, 512)
		loud := make([]int16, 512)
		for i := range quiet {
			quiet[i] = 10
			loud[i] = 1000
		}

		assert.Greater(t, Loudness(loud), Loudness(quiet))
	})
}
