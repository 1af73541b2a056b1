// Package config loads gatewayd's own runtime settings. The gateway's config
// document lives in internal/gwconfig.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	toml "github.com/pelletier/go-toml/v2"

	"gatewayd/internal/common/fsutil"
)

// EnvPrefix is the prefix of gatewayd's own environment variables.
const EnvPrefix = "GATEWAYD_"

// Settings holds runtime parameters for the service.
type Settings struct {
	Addr          string `koanf:"addr" validate:"required"`
	DataDir       string `koanf:"data_dir" validate:"required"`
	GatewayConfig string `koanf:"gateway_config"`
	// SeedConfig is a JSON document used when no gateway config file exists.
	SeedConfig string `koanf:"seed_config"`

	Gateway GatewaySettings `koanf:"gateway"`
	Log     LogSettings     `koanf:"log"`
	HTTP    HTTPSettings    `koanf:"http"`
	Admin   AdminSettings   `koanf:"admin"`
}

type GatewaySettings struct {
	Bin            string        `koanf:"bin" validate:"required"`
	Args           []string      `koanf:"args"`
	EnvPrefix      string        `koanf:"env_prefix"`
	GracePeriod    time.Duration `koanf:"grace_period" validate:"gt=0"`
	KillTimeout    time.Duration `koanf:"kill_timeout" validate:"gt=0"`
	StartupTimeout time.Duration `koanf:"startup_timeout" validate:"gt=0"`
	StartupGrace   time.Duration `koanf:"startup_grace" validate:"gte=0"`
	// ProbeAddr overrides the readiness dial target. Empty derives it from
	// the stored gateway port; "off" disables dialing.
	ProbeAddr    string `koanf:"probe_addr"`
	Autostart    bool   `koanf:"autostart"`
	LogLines     int    `koanf:"log_lines" validate:"min=1,max=100000"`
	MaxLineBytes int    `koanf:"max_line_bytes" validate:"min=256"`
	// Lenient accepts unknown keys in gateway config documents.
	Lenient bool `koanf:"lenient"`
}

type LogSettings struct {
	Level    string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format   string `koanf:"format" validate:"oneof=json console"`
	Requests string `koanf:"requests" validate:"oneof=off error info debug"`
}

type HTTPSettings struct {
	MaxBodyBytes    int64         `koanf:"max_body_bytes" validate:"gt=0"`
	CORSEnabled     bool          `koanf:"cors_enabled"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	CORSMethods     []string      `koanf:"cors_methods"`
	CORSHeaders     []string      `koanf:"cors_headers"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	RateWindow      time.Duration `koanf:"rate_window" validate:"gt=0"`
	Swagger         bool          `koanf:"swagger"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type AdminSettings struct {
	Username string `koanf:"username" validate:"required"`
	// Password empty means one is generated at startup.
	Password   string `koanf:"password"`
	BcryptCost int    `koanf:"bcrypt_cost" validate:"min=4,max=31"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		Addr:    ":8080",
		DataDir: "~/.nanobot",
		Gateway: GatewaySettings{
			Bin:            "nanobot",
			Args:           []string{"gateway"},
			EnvPrefix:      "NANOBOT_",
			GracePeriod:    10 * time.Second,
			KillTimeout:    5 * time.Second,
			StartupTimeout: 30 * time.Second,
			StartupGrace:   2 * time.Second,
			Autostart:      true,
			LogLines:       500,
			MaxLineBytes:   8 << 10,
		},
		Log: LogSettings{
			Level:    "info",
			Format:   "json",
			Requests: "info",
		},
		HTTP: HTTPSettings{
			MaxBodyBytes:    1 << 20,
			CORSMethods:     []string{"GET", "PUT", "POST", "OPTIONS"},
			CORSHeaders:     []string{"Authorization", "Content-Type"},
			RateLimit:       120,
			RateWindow:      time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		Admin: AdminSettings{
			Username:   "admin",
			BcryptCost: 10,
		},
	}
}

// envKeys maps environment variables (prefix stripped, lowercased) to
// settings keys.
var envKeys = map[string]string{
	"addr":                    "addr",
	"data_dir":                "data_dir",
	"gateway_config":          "gateway_config",
	"seed_config":             "seed_config",
	"gateway_bin":             "gateway.bin",
	"gateway_args":            "gateway.args",
	"gateway_env_prefix":      "gateway.env_prefix",
	"gateway_grace_period":    "gateway.grace_period",
	"gateway_kill_timeout":    "gateway.kill_timeout",
	"gateway_startup_timeout": "gateway.startup_timeout",
	"gateway_startup_grace":   "gateway.startup_grace",
	"gateway_probe_addr":      "gateway.probe_addr",
	"gateway_autostart":       "gateway.autostart",
	"gateway_log_lines":       "gateway.log_lines",
	"gateway_max_line_bytes":  "gateway.max_line_bytes",
	"gateway_lenient":         "gateway.lenient",
	"log_level":               "log.level",
	"log_format":              "log.format",
	"log_requests":            "log.requests",
	"max_body_bytes":          "http.max_body_bytes",
	"cors_enabled":            "http.cors_enabled",
	"cors_origins":            "http.cors_origins",
	"cors_methods":            "http.cors_methods",
	"cors_headers":            "http.cors_headers",
	"rate_limit":              "http.rate_limit",
	"rate_window":             "http.rate_window",
	"swagger":                 "http.swagger",
	"shutdown_timeout":        "http.shutdown_timeout",
	"admin_username":          "admin.username",
	"admin_password":          "admin.password",
	"bcrypt_cost":             "admin.bcrypt_cost",
}

// sliceKeys are split on commas when they arrive as a single string.
var sliceKeys = []string{"gateway.args", "http.cors_origins", "http.cors_methods", "http.cors_headers"}

// Load layers defaults, the optional settings file at path, GATEWAYD_*
// environment variables (plus the PORT, ADMIN_USERNAME and ADMIN_PASSWORD
// aliases) and explicit flag overrides, then validates the result.
// Override keys use the koanf paths, e.g. "gateway.bin".
func Load(path string, overrides map[string]any) (Settings, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Settings{}, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		p, err := parserFor(path)
		if err != nil {
			return Settings{}, err
		}
		if err := k.Load(file.Provider(path), p); err != nil {
			return Settings{}, fmt.Errorf("load settings file %s: %w", path, err)
		}
	}
	if err := loadAliases(k); err != nil {
		return Settings{}, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return Settings{}, fmt.Errorf("load environment: %w", err)
	}
	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return Settings{}, fmt.Errorf("apply override %s: %w", key, err)
		}
	}
	splitSlices(k)

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.normalize(); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func envTransform(key string) string {
	k := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if mapped, ok := envKeys[k]; ok {
		return mapped
	}
	// Unknown GATEWAYD_* variables are ignored.
	return ""
}

// loadAliases applies the unprefixed variables used by hosting platforms.
// GATEWAYD_* values loaded afterwards take precedence.
func loadAliases(k *koanf.Koanf) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if err := k.Set("addr", net.JoinHostPort("", port)); err != nil {
			return err
		}
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		if err := k.Set("admin.username", v); err != nil {
			return err
		}
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		if err := k.Set("admin.password", v); err != nil {
			return err
		}
	}
	return nil
}

func splitSlices(k *koanf.Koanf) {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		_ = k.Set(key, splitCSV(raw))
	}
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Settings) normalize() error {
	dir, err := fsutil.ExpandHome(s.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	s.DataDir = dir
	if s.GatewayConfig == "" {
		s.GatewayConfig = filepath.Join(s.DataDir, "config.json")
		return nil
	}
	if s.GatewayConfig, err = fsutil.ExpandHome(s.GatewayConfig); err != nil {
		return fmt.Errorf("gateway_config: %w", err)
	}
	return nil
}

var settingsValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks ranges and required fields.
func (s Settings) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %s", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Gateway.ProbeAddr != "" && s.Gateway.ProbeAddr != ProbeOff {
		if _, _, err := net.SplitHostPort(s.Gateway.ProbeAddr); err != nil {
			return fmt.Errorf("invalid settings: gateway.probe_addr: %w", err)
		}
	}
	return nil
}

// ProbeOff disables the readiness dial; the startup grace window is used
// instead.
const ProbeOff = "off"

// ProbeAddress resolves the readiness dial target for a gateway listening on
// port.
func (s Settings) ProbeAddress(port int) string {
	switch s.Gateway.ProbeAddr {
	case ProbeOff:
		return ""
	case "":
		if port <= 0 {
			return ""
		}
		return net.JoinHostPort("127.0.0.1", fmt.Sprint(port))
	default:
		return s.Gateway.ProbeAddr
	}
}

// parserFor picks a koanf parser from the settings file extension.
// Supports: .yaml/.yml, .json, .toml
func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return jsonParser{}, nil
	case ".toml":
		return tomlParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported settings extension: %s", ext)
	}
}

type jsonParser struct{}

func (jsonParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (jsonParser) Marshal(o map[string]any) ([]byte, error) { return json.Marshal(o) }

type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(o map[string]any) ([]byte, error) { return toml.Marshal(o) }
