package audio_source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-home-assistant/logger"
	"voice-home-assistant/metrics"
)

// ErrDeviceFailure wraps every device error other than an input overflow.
var ErrDeviceFailure = errors.New("audio device failure")

type Config struct {
	SampleRate int
	Channels   int
	ChunkSize  int
	// DeviceIndex selects an input device; negative means the default input.
	DeviceIndex int
	Metrics     *metrics.Metrics
	Logger      *logger.Logger
}

// stream is the part of *portaudio.Stream the source drives.
type stream interface {
	Read() error
	Stop() error
	Close() error
}

type sourceImpl struct {
	stream    stream
	in        []int16
	metrics   *metrics.Metrics
	log       *logger.Logger
	terminate func() error
	closeOnce sync.Once
	closeErr  error
}

// Open initializes portaudio, resolves the input device and starts a
// blocking input stream. Device problems surface here, not mid-stream.
func Open(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.SampleRate <= 0 || cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("sample rate and chunk size must be positive")
	}

	if cfg.Channels != 1 {
		return nil, fmt.Errorf("only mono capture is supported, got %d channels", cfg.Channels)
	}

	log := logger.OrNop(cfg.Logger)

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrDeviceFailure, err)
	}

	device, err := resolveDevice(cfg.DeviceIndex)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	log.Infow("opening input device",
		"index", device.Index,
		"name", device.Name,
		"default_sample_rate", device.DefaultSampleRate,
	)

	in := make([]int16, cfg.ChunkSize*cfg.Channels)

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultHighInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: cfg.ChunkSize,
	}

	paStream, err := portaudio.OpenStream(params, in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream: %v", ErrDeviceFailure, err)
	}

	if err := paStream.Start(); err != nil {
		paStream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream: %v", ErrDeviceFailure, err)
	}

	return newSource(paStream, in, portaudio.Terminate, cfg.Metrics, log), nil
}

func newSource(s stream, in []int16, terminate func() error, m *metrics.Metrics, log *logger.Logger) *sourceImpl {
	return &sourceImpl{
		stream:    s,
		in:        in,
		metrics:   m,
		log:       logger.OrNop(log),
		terminate: terminate,
	}
}

func resolveDevice(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: default input device: %v", ErrDeviceFailure, err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", ErrDeviceFailure, err)
	}

	if index >= len(devices) {
		return nil, fmt.Errorf("%w: device index %d out of range (%d devices)", ErrDeviceFailure, index, len(devices))
	}

	device := devices[index]
	if device.MaxInputChannels < 1 {
		return nil, fmt.Errorf("%w: device %d (%s) has no input channels", ErrDeviceFailure, index, device.Name)
	}

	return device, nil
}

// Devices lists the input devices portaudio can see.
func Devices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: initialize: %v", ErrDeviceFailure, err)
	}
	defer portaudio.Terminate()

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", ErrDeviceFailure, err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		if info.MaxInputChannels < 1 {
			continue
		}

		devices = append(devices, Device{
			Index:             info.Index,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
		})
	}

	return devices, nil
}

func (s *sourceImpl) NextChunk(ctx context.Context) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunk := make([]int16, len(s.in))

	err := s.stream.Read()
	switch {
	case err == nil:
		copy(chunk, s.in)
		s.metrics.RecordChunk(false)
	case IsOverflow(err):
		// the device fell behind; hand out silence of the same size
		s.metrics.RecordChunk(true)
		s.log.Debugw("input overflowed, substituting silence", "samples", len(chunk))
	default:
		return nil, fmt.Errorf("%w: read: %v", ErrDeviceFailure, err)
	}

	return chunk, nil
}

// IsOverflow reports whether err is portaudio's input overflow condition.
func IsOverflow(err error) bool {
	return errors.Is(err, portaudio.InputOverflowed)
}

func (s *sourceImpl) Close() error {
	s.closeOnce.Do(func() {
		var errs []error

		if err := s.stream.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop stream: %w", err))
		}

		if err := s.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stream: %w", err))
		}

		if s.terminate != nil {
			if err := s.terminate(); err != nil {
				errs = append(errs, fmt.Errorf("terminate: %w", err))
			}
		}

		s.closeErr = errors.Join(errs...)
	})

	return s.closeErr
}
