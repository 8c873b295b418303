package phrase_segmenter

import (
	"time"

	"github.com/go-audio/audio"
	"github.com/google/uuid"
)

// Utterance is one detected phrase: the pre-roll chunks followed by the
// speech chunks, in capture order. It is not modified after it is emitted.
// PreRoll counts the leading chunks taken from before the onset; Tail counts
// the trailing chunks captured after the last loud one while the silence
// window drained.
type Utterance struct {
	ID         uuid.UUID
	Index      int
	Chunks     [][]int16
	PreRoll    int
	Tail       int
	SampleRate int
	StartedAt  time.Time
	EndedAt    time.Time
}

// Len returns the number of chunks.
func (u *Utterance) Len() int {
	return len(u.Chunks)
}

func (u *Utterance) NumSamples() int {
	n := 0
	for _, c := range u.Chunks {
		n += len(c)
	}
	return n
}

// Samples returns all chunks concatenated.
func (u *Utterance) Samples() []int16 {
	samples := make([]int16, 0, u.NumSamples())
	for _, c := range u.Chunks {
		samples = append(samples, c...)
	}
	return samples
}

func (u *Utterance) Duration() time.Duration {
	if u.SampleRate <= 0 {
		return 0
	}

	return time.Duration(float64(u.NumSamples()) / float64(u.SampleRate) * float64(time.Second))
}

// Buffer returns the utterance as a mono 16-bit go-audio buffer.
func (u *Utterance) Buffer() *audio.IntBuffer {
	data := make([]int, 0, u.NumSamples())
	for _, c := range u.Chunks {
		for _, s := range c {
			data = append(data, int(s))
		}
	}

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  u.SampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
}
