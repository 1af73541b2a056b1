package manager

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultGracePeriod    = 10 * time.Second
	defaultKillTimeout    = 5 * time.Second
	defaultStartupTimeout = 30 * time.Second
	defaultStartupGrace   = 2 * time.Second
	defaultProbeInterval  = 200 * time.Millisecond
	defaultMaxLineBytes   = 8 << 10
)

// ConfigSource materializes the stored gateway configuration into the file
// the child reads. It is called before every spawn.
type ConfigSource interface {
	Materialize() (path string, err error)
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Gateway executable and arguments, e.g. "nanobot" ["gateway"].
	Bin  string
	Args []string
	Dir  string
	// Environment variables whose name starts with PassthroughPrefix are
	// forwarded to the child. Environ defaults to os.Environ.
	PassthroughPrefix string
	ConfigEnvVar      string
	Environ           func() []string

	Source ConfigSource

	GracePeriod    time.Duration
	KillTimeout    time.Duration
	StartupTimeout time.Duration
	// StartupGrace is how long the child must stay alive before it is
	// considered running when ProbeAddr is empty.
	StartupGrace time.Duration
	ProbeAddr    string
	// ProbeResolver, when set, is consulted before every spawn and overrides
	// ProbeAddr. It lets the dial target follow the stored gateway port.
	ProbeResolver func() string
	ProbeInterval time.Duration

	LogCapacity  int
	MaxLineBytes int

	Logger    zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	if cfg.KillTimeout <= 0 {
		cfg.KillTimeout = defaultKillTimeout
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = defaultStartupTimeout
	}
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = defaultStartupGrace
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = defaultMaxLineBytes
	}
	if cfg.ConfigEnvVar == "" {
		cfg.ConfigEnvVar = "NANOBOT_CONFIG"
	}
	m := &Manager{
		cfg:       cfg,
		state:     StateStopped,
		logs:      NewLogBuffer(cfg.LogCapacity),
		log:       cfg.Logger.With().Str("component", "manager").Logger(),
		publisher: noopPublisher{},
	}
	if cfg.Publisher != nil {
		m.publisher = cfg.Publisher
	}
	setStateGauge(StateStopped)
	return m
}
