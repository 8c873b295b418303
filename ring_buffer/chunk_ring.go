package ring_buffer

import (
	"encoding/binary"
	"fmt"

	"github.com/smallnest/ringbuffer"
)

// ChunkRing keeps the most recent fixed-size sample chunks in a byte ring.
// Each slot holds exactly chunkSize little-endian int16 samples.
type ChunkRing struct {
	chunkSize  int
	chunkBytes int
	capacity   int
	rb         *ringbuffer.RingBuffer
}

func NewChunkRing(capacity, chunkSize int) (*ChunkRing, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("capacity must not be negative, got %d", capacity)
	}

	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	c := &ChunkRing{
		chunkSize:  chunkSize,
		chunkBytes: chunkSize * 2,
		capacity:   capacity,
	}

	if capacity > 0 {
		c.rb = ringbuffer.New(capacity * c.chunkBytes).SetBlocking(false)
	}

	return c, nil
}

// Add appends a chunk, evicting the oldest one when the ring is full.
func (c *ChunkRing) Add(chunk []int16) error {
	if len(chunk) != c.chunkSize {
		return fmt.Errorf("expected chunk of %d samples, got %d", c.chunkSize, len(chunk))
	}

	if c.rb == nil {
		return nil
	}

	if c.rb.Free() < c.chunkBytes {
		if err := c.evictOldest(); err != nil {
			return err
		}
	}

	data := make([]byte, c.chunkBytes)
	for i, s := range chunk {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}

	_, err := c.rb.Write(data)

	return err
}

func (c *ChunkRing) evictOldest() error {
	discard := make([]byte, c.chunkBytes)

	n, err := c.rb.Read(discard)
	if err != nil {
		return fmt.Errorf("evict oldest chunk: %w", err)
	}

	if n != c.chunkBytes {
		// partial slot means the ring lost alignment; start over
		c.rb.Reset()
	}

	return nil
}

// Snapshot returns copies of the buffered chunks, oldest first.
func (c *ChunkRing) Snapshot() [][]int16 {
	if c.rb == nil || c.rb.IsEmpty() {
		return nil
	}

	raw := c.rb.Bytes(nil)
	chunks := make([][]int16, 0, len(raw)/c.chunkBytes)

	for off := 0; off+c.chunkBytes <= len(raw); off += c.chunkBytes {
		chunk := make([]int16, c.chunkSize)
		for i := range chunk {
			chunk[i] = int16(binary.LittleEndian.Uint16(raw[off+i*2:]))
		}
		chunks = append(chunks, chunk)
	}

	return chunks
}

func (c *ChunkRing) Clear() {
	if c.rb != nil {
		c.rb.Reset()
	}
}

// Len returns the number of buffered chunks.
func (c *ChunkRing) Len() int {
	if c.rb == nil {
		return 0
	}

	return c.rb.Length() / c.chunkBytes
}

func (c *ChunkRing) Cap() int {
	return c.capacity
}
