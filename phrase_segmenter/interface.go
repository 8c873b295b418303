package phrase_segmenter

// State is the segmenter's phrase state.
type State string

const (
	StateIdle      State = "idle"
	StateCapturing State = "capturing"
)

type Interface interface {
	// Push feeds one chunk and returns a complete utterance when this chunk
	// ended a phrase, or nil otherwise.
	Push(chunk []int16) (*Utterance, error)
	State() State
	// Reset discards any in-flight phrase and all window history.
	Reset()
	PreRollLen() int
	WindowLen() int
}
