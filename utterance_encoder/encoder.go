package utterance_encoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"

	"voice-home-assistant/logger"
	"voice-home-assistant/phrase_segmenter"
)

const pcmFormat = 1

var (
	ErrEmptyUtterance    = errors.New("utterance has no samples")
	ErrUnsupportedFormat = errors.New("unsupported PCM format")
)

// Params describes the PCM container.
type Params struct {
	Channels    int
	SampleWidth int // bytes per sample
	SampleRate  int
}

func DefaultParams() Params {
	return Params{
		Channels:    1,
		SampleWidth: 2,
		SampleRate:  16000,
	}
}

type encoderImpl struct {
	scratch afero.Fs
	dumpFs  afero.Fs
	dumpDir string
	log     *logger.Logger
}

type Config struct {
	// DumpFs, when set, receives a copy of every encoded utterance for debugging.
	DumpFs  afero.Fs
	DumpDir string
	Logger  *logger.Logger
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &encoderImpl{
		scratch: afero.NewMemMapFs(),
		dumpFs:  cfg.DumpFs,
		dumpDir: cfg.DumpDir,
		log:     logger.OrNop(cfg.Logger),
	}, nil
}

func (e *encoderImpl) Encode(u *phrase_segmenter.Utterance, p Params) ([]byte, error) {
	if u == nil || u.NumSamples() == 0 {
		return nil, ErrEmptyUtterance
	}

	if p.SampleWidth != 2 {
		return nil, fmt.Errorf("%w: sample width %d bytes", ErrUnsupportedFormat, p.SampleWidth)
	}

	if p.Channels < 1 || u.NumSamples()%p.Channels != 0 {
		return nil, fmt.Errorf("%w: %d samples across %d channels", ErrUnsupportedFormat, u.NumSamples(), p.Channels)
	}

	if p.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, p.SampleRate)
	}

	name := "/" + u.ID.String() + ".wav"

	f, err := e.scratch.Create(name)
	if err != nil {
		return nil, err
	}

	defer func() {
		f.Close()
		e.scratch.Remove(name)
	}()

	buf := u.Buffer()
	buf.Format.NumChannels = p.Channels
	buf.Format.SampleRate = p.SampleRate

	enc := wav.NewEncoder(f, p.SampleRate, p.SampleWidth*8, p.Channels, pcmFormat)

	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("failed to write samples: %w", err)
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish WAV header: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	e.dump(u, data)

	return data, nil
}

func (e *encoderImpl) dump(u *phrase_segmenter.Utterance, data []byte) {
	if e.dumpFs == nil {
		return
	}

	filename := path.Join(e.dumpDir, "output_"+strconv.FormatInt(time.Now().Unix(), 10)+"_"+strconv.Itoa(u.Index)+".wav")

	if err := afero.WriteFile(e.dumpFs, filename, data, 0o644); err != nil {
		e.log.Warnw("could not dump utterance", "file", filename, "error", err)
		return
	}

	e.log.Debugw("dumped utterance", "file", filename, "bytes", len(data))
}

// Decode reads a PCM WAV container back into its samples.
func Decode(data []byte) ([]int16, Params, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, Params{}, fmt.Errorf("invalid WAV data")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, Params{}, fmt.Errorf("failed to read PCM data: %w", err)
	}

	if d.BitDepth != 16 {
		return nil, Params{}, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, d.BitDepth)
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}

	return samples, Params{
		Channels:    int(d.NumChans),
		SampleWidth: int(d.BitDepth / 8),
		SampleRate:  int(d.SampleRate),
	}, nil
}

// ToBuffer converts decoded samples into a go-audio buffer.
func ToBuffer(samples []int16, p Params) *audio.IntBuffer {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: p.Channels, SampleRate: p.SampleRate},
		Data:           data,
		SourceBitDepth: p.SampleWidth * 8,
	}
}
