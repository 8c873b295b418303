package ring_buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_Add(t *testing.T) {
	t.Run("fill ring buffer with digits until it loops, and test that it works", func(t *testing.T) {
		ringBuffer := New[int16](10)

		for i := 0; i < 20; i++ {
			ringBuffer.Add(int16(i))
		}

		expected := []int16{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}
		assert.Equal(t, expected, ringBuffer.Read())
		assert.Equal(t, 10, ringBuffer.Len())
	})

	t.Run("partially filled ring only returns what was added", func(t *testing.T) {
		ringBuffer := New[float64](5)
		ringBuffer.Add(1.5, 2.5)

		assert.Equal(t, []float64{1.5, 2.5}, ringBuffer.Read())
		assert.Equal(t, 2, ringBuffer.Len())
		assert.Equal(t, 5, ringBuffer.Cap())
	})

	t.Run("clear empties the ring", func(t *testing.T) {
		ringBuffer := New[int](3)
		ringBuffer.Add(1, 2, 3, 4)
		ringBuffer.Clear()

		assert.Empty(t, ringBuffer.Read())
		assert.Equal(t, 0, ringBuffer.Len())

		ringBuffer.Add(7)
		assert.Equal(t, []int{7}, ringBuffer.Read())
	})

	t.Run("zero capacity ring stays empty", func(t *testing.T) {
		ringBuffer := New[int](0)
		ringBuffer.Add(1, 2)

		assert.Empty(t, ringBuffer.Read())
		assert.Equal(t, 0, ringBuffer.Len())
	})

	t.Run("each stops early", func(t *testing.T) {
		ringBuffer := New[int](4)
		ringBuffer.Add(1, 2, 3, 4, 5)

		var seen []int
		ringBuffer.Each(func(v int) bool {
			seen = append(seen, v)
			return v < 3
		})

		assert.Equal(t, []int{2, 3}, seen)
	})
}

func chunkOf(size int, v int16) []int16 {
	chunk := make([]int16, size)
	for i := range chunk {
		chunk[i] = v
	}
	return chunk
}

func TestChunkRing(t *testing.T) {
	t.Run("keeps the most recent chunks in order", func(t *testing.T) {
		ring, err := NewChunkRing(3, 4)
		require.NoError(t, err)

		for i := 1; i <= 5; i++ {
			require.NoError(t, ring.Add(chunkOf(4, int16(i*-100))))
		}

		snapshot := ring.Snapshot()
		require.Len(t, snapshot, 3)
		assert.Equal(t, chunkOf(4, -300), snapshot[0])
		assert.Equal(t, chunkOf(4, -400), snapshot[1])
		assert.Equal(t, chunkOf(4, -500), snapshot[2])
		assert.Equal(t, 3, ring.Len())
	})

	t.Run("never exceeds capacity", func(t *testing.T) {
		ring, err := NewChunkRing(2, 8)
		require.NoError(t, err)

		for i := 0; i < 100; i++ {
			require.NoError(t, ring.Add(chunkOf(8, int16(i))))
			assert.LessOrEqual(t, ring.Len(), 2)
		}
	})

	t.Run("rejects chunks of the wrong size", func(t *testing.T) {
		ring, err := NewChunkRing(2, 8)
		require.NoError(t, err)

		assert.Error(t, ring.Add(chunkOf(7, 1)))
	})

	t.Run("zero capacity holds nothing", func(t *testing.T) {
		ring, err := NewChunkRing(0, 8)
		require.NoError(t, err)

		require.NoError(t, ring.Add(chunkOf(8, 1)))
		assert.Nil(t, ring.Snapshot())
		assert.Equal(t, 0, ring.Len())
	})

	t.Run("clear drops everything", func(t *testing.T) {
		ring, err := NewChunkRing(2, 2)
		require.NoError(t, err)

		require.NoError(t, ring.Add(chunkOf(2, 5)))
		ring.Clear()

		assert.Nil(t, ring.Snapshot())
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := NewChunkRing(-1, 8)
		assert.Error(t, err)

		_, err = NewChunkRing(1, 0)
		assert.Error(t, err)
	})
}
