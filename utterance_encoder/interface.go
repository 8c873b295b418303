package utterance_encoder

import "voice-home-assistant/phrase_segmenter"

type Interface interface {
	Encode(u *phrase_segmenter.Utterance, p Params) ([]byte, error)
}
