package phrase_segmenter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"voice-home-assistant/energy_meter"
	"voice-home-assistant/logger"
	"voice-home-assistant/metrics"
	"voice-home-assistant/ring_buffer"
	"voice-home-assistant/silence_window"
)

const (
	eventSpeech  = "speech"
	eventSilence = "silence"
)

type segmenterImpl struct {
	cfg Config
	log *logger.Logger

	machine *fsm.FSM
	window  *silence_window.Window
	preRoll *ring_buffer.ChunkRing

	prefix    [][]int16
	speech    [][]int16
	tail      int
	startedAt time.Time
	maxChunks int
	emitted   int
}

type Config struct {
	Threshold    float64
	SilenceLimit time.Duration
	PreRoll      time.Duration
	SampleRate   int
	ChunkSize    int
	// MaxUtterance caps a phrase that never falls silent. Zero leaves it unbounded.
	MaxUtterance time.Duration
	Meter        energy_meter.Func
	Metrics      *metrics.Metrics
	Logger       *logger.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}

	if cfg.SilenceLimit <= 0 {
		return nil, fmt.Errorf("silence limit must be positive, got %s", cfg.SilenceLimit)
	}

	if cfg.PreRoll < 0 || cfg.MaxUtterance < 0 {
		return nil, fmt.Errorf("pre-roll and max utterance must not be negative")
	}

	c := *cfg
	if c.Meter == nil {
		c.Meter = energy_meter.Loudness
	}

	window, err := silence_window.New(silence_window.CapacityFor(c.SilenceLimit, c.SampleRate, c.ChunkSize), c.Threshold)
	if err != nil {
		return nil, err
	}

	preRollChunks := 0
	if c.PreRoll > 0 {
		preRollChunks = silence_window.CapacityFor(c.PreRoll, c.SampleRate, c.ChunkSize)
	}

	preRoll, err := ring_buffer.NewChunkRing(preRollChunks, c.ChunkSize)
	if err != nil {
		return nil, err
	}

	s := &segmenterImpl{
		cfg:     c,
		log:     logger.OrNop(c.Logger),
		window:  window,
		preRoll: preRoll,
	}

	if c.MaxUtterance > 0 {
		s.maxChunks = silence_window.CapacityFor(c.MaxUtterance, c.SampleRate, c.ChunkSize)
	}

	s.machine = fsm.NewFSM(
		string(StateIdle),
		fsm.Events{
			{Name: eventSpeech, Src: []string{string(StateIdle)}, Dst: string(StateCapturing)},
			{Name: eventSilence, Src: []string{string(StateCapturing)}, Dst: string(StateIdle)},
		},
		fsm.Callbacks{
			"enter_" + string(StateCapturing): func(_ context.Context, _ *fsm.Event) {
				s.cfg.Metrics.RecordPhraseStarted()
				s.log.Debugw("starting record of phrase", "pre_roll_chunks", len(s.prefix))
			},
		},
	)

	return s, nil
}

func (s *segmenterImpl) Push(chunk []int16) (*Utterance, error) {
	if len(chunk) != s.cfg.ChunkSize {
		return nil, fmt.Errorf("expected chunk of %d samples, got %d", s.cfg.ChunkSize, len(chunk))
	}

	loudness := s.cfg.Meter(chunk)
	s.window.Push(loudness)

	if s.window.IsNoisy() {
		if s.State() == StateIdle {
			s.prefix = s.preRoll.Snapshot()
			s.preRoll.Clear()
			s.startedAt = time.Now()

			if err := s.machine.Event(context.Background(), eventSpeech); err != nil {
				return nil, fmt.Errorf("start phrase: %w", err)
			}
		}

		s.speech = append(s.speech, chunk)
		if loudness > s.window.Threshold() {
			s.tail = 0
		} else {
			s.tail++
		}

		if s.maxChunks > 0 && len(s.speech) >= s.maxChunks {
			s.log.Infow("phrase reached maximum length", "chunks", len(s.speech))
			return s.finish()
		}

		return nil, nil
	}

	if s.State() == StateCapturing {
		return s.finish()
	}

	if err := s.preRoll.Add(chunk); err != nil {
		return nil, fmt.Errorf("buffer pre-roll: %w", err)
	}

	return nil, nil
}

// finish builds the utterance for the phrase in progress and returns to idle.
func (s *segmenterImpl) finish() (*Utterance, error) {
	chunks := make([][]int16, 0, len(s.prefix)+len(s.speech))
	chunks = append(chunks, s.prefix...)
	chunks = append(chunks, s.speech...)

	u := &Utterance{
		ID:         uuid.New(),
		Index:      s.emitted,
		Chunks:     chunks,
		PreRoll:    len(s.prefix),
		Tail:       s.tail,
		SampleRate: s.cfg.SampleRate,
		StartedAt:  s.startedAt,
		EndedAt:    time.Now(),
	}

	s.clear()
	s.emitted++

	if err := s.machine.Event(context.Background(), eventSilence); err != nil {
		return nil, fmt.Errorf("end phrase: %w", err)
	}

	s.cfg.Metrics.RecordPhraseEmitted(u.Duration().Seconds())
	s.log.Debugw("finished phrase", "index", u.Index, "chunks", u.Len(), "duration", u.Duration())

	return u, nil
}

func (s *segmenterImpl) clear() {
	s.window.Reset()
	s.preRoll.Clear()
	s.prefix = nil
	s.speech = nil
	s.tail = 0
	s.startedAt = time.Time{}
}

func (s *segmenterImpl) Reset() {
	if s.State() == StateCapturing {
		s.cfg.Metrics.RecordPhraseDiscarded()
		s.log.Debugw("discarding phrase in progress", "chunks", len(s.speech))
	}

	s.clear()
	s.machine.SetState(string(StateIdle))
}

func (s *segmenterImpl) State() State {
	return State(s.machine.Current())
}

func (s *segmenterImpl) PreRollLen() int {
	return s.preRoll.Len()
}

func (s *segmenterImpl) WindowLen() int {
	return s.window.Len()
}
