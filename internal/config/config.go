package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Storage StorageConfig
	Timer   TimerConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

// BackendConfig points at the planning backend.
type BackendConfig struct {
	BaseURL string
	Timeout string
}

type StorageConfig struct {
	DataDir string
}

type TimerConfig struct {
	BreakMinutes int
}

type LogConfig struct {
	Level string
}

const defaultBackendTimeout = 30 * time.Second

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:5000/api",
			Timeout: defaultBackendTimeout.String(),
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Timer: TimerConfig{
			BreakMinutes: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// TimeoutDuration parses Timeout, falling back to 30s.
func (b BackendConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(b.Timeout)
	if err != nil || d <= 0 {
		return defaultBackendTimeout
	}
	return d
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.studyd.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/studyd/config.json.
//
// Environment variables (STUDYD_*) override backend values on all platforms.
// The local API token is not part of Config; see GetAPIToken.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

// LoadEnvFile exports the variables of a dotenv file so STUDYD_* overrides
// can be kept in one place. Variables already in the environment are left
// alone, and a missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func loadWith(b SettingsStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid config: backend.base_url %q is not an absolute URL", c.Backend.BaseURL)
	}
	if c.Timer.BreakMinutes <= 0 {
		return fmt.Errorf("invalid config: timer.break_minutes must be positive, got %d", c.Timer.BreakMinutes)
	}
	return nil
}
