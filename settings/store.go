package settings

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"voice-home-assistant/logger"
)

var (
	ErrUnknownKey   = errors.New("key not in settings")
	ErrInvalidValue = errors.New("invalid setting value")
)

// Store holds the user-editable settings. The set of keys is fixed by the
// defaults it is created with; values are persisted after every change.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	fs     afero.Fs
	path   string
	check  func(map[string]any) error
	log    *logger.Logger
}

type StoreConfig struct {
	Defaults map[string]any
	// Fs and Path locate the persisted settings; a nil Fs keeps them in memory only.
	Fs   afero.Fs
	Path string
	// Validate, when set, vets the full settings a patch would produce.
	Validate func(map[string]any) error
	Logger   *logger.Logger
}

func NewStore(cfg *StoreConfig) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Fs != nil && cfg.Path == "" {
		return nil, fmt.Errorf("settings path is empty")
	}

	s := &Store{
		values: maps.Clone(cfg.Defaults),
		fs:     cfg.Fs,
		path:   cfg.Path,
		check:  cfg.Validate,
		log:    logger.OrNop(cfg.Logger),
	}

	if s.values == nil {
		s.values = map[string]any{}
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) load() error {
	if s.fs == nil {
		return nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	var saved map[string]any
	if err := yaml.Unmarshal(data, &saved); err != nil {
		return fmt.Errorf("parse settings %s: %w", s.path, err)
	}

	for key, value := range saved {
		if _, ok := s.values[key]; !ok {
			s.log.Warnw("ignoring unknown saved setting", "key", key)
			continue
		}
		s.values[key] = value
	}

	return nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.values)
}

// Value returns one setting.
func (s *Store) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok
}

// Patch merges patch into the settings and persists them. A patch naming an
// unknown key or failing validation is rejected as a whole and nothing changes.
func (s *Store) Patch(patch map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range slices.Sorted(maps.Keys(patch)) {
		if _, ok := s.values[key]; !ok {
			return nil, fmt.Errorf("%w: key %s not in settings", ErrUnknownKey, key)
		}
	}

	next := maps.Clone(s.values)
	maps.Copy(next, patch)

	if s.check != nil {
		if err := s.check(next); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	}

	if err := s.save(next); err != nil {
		return nil, err
	}

	s.values = next
	s.log.Infow("settings updated", "keys", slices.Sorted(maps.Keys(patch)))

	return maps.Clone(next), nil
}

func (s *Store) save(values map[string]any) error {
	if s.fs == nil {
		return nil
	}

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}

	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}
