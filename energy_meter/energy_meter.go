// Package energy_meter turns a chunk of 16-bit samples into one loudness value.
package energy_meter

import "math"

// Func computes the loudness of one chunk.
type Func func(chunk []int16) float64

// Loudness reads the chunk's little-endian sample bytes as 32-bit words,
// averages their absolute magnitude and returns the square root. The word
// view keeps loudness on the scale the default threshold of 2500 was tuned
// for. An odd trailing sample forms a word with a zero high half.
func Loudness(chunk []int16) float64 {
	if len(chunk) == 0 {
		return 0
	}

	var (
		sum   float64
		words int
	)

	for i := 0; i < len(chunk); i += 2 {
		lo := uint32(uint16(chunk[i]))

		var hi uint32
		if i+1 < len(chunk) {
			hi = uint32(uint16(chunk[i+1]))
		}

		word := int32(lo | hi<<16)
		sum += math.Abs(float64(word))
		words++
	}

	return math.Sqrt(sum / float64(words))
}
