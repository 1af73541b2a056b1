package gwconfig

import (
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"gatewayd/internal/common/fsutil"
)

// Store owns the persisted Config. Every replacement goes through Update,
// which validates nothing itself: callers hand it an already validated
// Config. Readers always receive deep copies.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config
	log  zerolog.Logger
}

// Source records where the initial configuration came from.
type Source string

const (
	SourceFile     Source = "file"
	SourceSeed     Source = "seed"
	SourceDefaults Source = "defaults"
)

// Open loads the stored configuration from path. When the file does not
// exist the seed document (JSON or JSONC) is used, else Default; either is
// persisted immediately so the gateway always has a file to read.
func Open(path, seed string, log zerolog.Logger) (*Store, Source, error) {
	s := &Store{path: path, log: log.With().Str("component", "config_store").Logger()}
	if fsutil.PathExists(path) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read stored config %s: %w", path, err)
		}
		cfg, err := Parse(b, FormatForPath(path), Options{AllowUnknown: true})
		if err != nil {
			return nil, "", fmt.Errorf("stored config %s: %w", path, err)
		}
		s.cfg = cfg
		s.log.Info().Str("path", path).Msg("loaded stored gateway config")
		return s, SourceFile, nil
	}
	src := SourceDefaults
	cfg := Default()
	if seed != "" {
		parsed, err := Parse([]byte(seed), FormatJSON, Options{AllowUnknown: true})
		if err != nil {
			return nil, "", fmt.Errorf("seed config: %w", err)
		}
		cfg, src = parsed, SourceSeed
	}
	if err := s.persist(cfg); err != nil {
		return nil, "", err
	}
	s.cfg = cfg
	s.log.Info().Str("path", path).Str("source", string(src)).Msg("initialized gateway config")
	return s, src, nil
}

// Path returns the file the configuration is persisted to.
func (s *Store) Path() string { return s.path }

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Update replaces the configuration with fn's result. fn receives a copy of
// the current value. Nothing changes if fn or persistence fails.
func (s *Store) Update(fn func(current Config) (Config, error)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.cfg.Clone())
	if err != nil {
		return Config{}, err
	}
	if err := s.persist(next); err != nil {
		return Config{}, err
	}
	s.cfg = next.Clone()
	s.log.Info().Int("providers", len(next.Providers)).Int("channels", len(next.Channels)).Msg("gateway config updated")
	return next, nil
}

// Materialize rewrites the config file from the current value and returns
// its path. It runs before every gateway spawn.
func (s *Store) Materialize() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.persist(s.cfg); err != nil {
		return "", err
	}
	return s.path, nil
}

func (s *Store) persist(cfg Config) error {
	b, err := Encode(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, b, 0o600); err != nil {
		return fmt.Errorf("persist config %s: %w", s.path, err)
	}
	return nil
}
