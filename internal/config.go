package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL        = "http://localhost:14243"
	DefaultTimeout       = 30 * time.Second
	DefaultHealthTimeout = 5 * time.Second
)

// Config is the resolved configuration consumed by the services.
type Config struct {
	APIURL        string
	AuthToken     string
	Timeout       time.Duration
	HealthTimeout time.Duration
	MaxMessages   int
	SessionSource SessionSource
	ProjectPath   string
}

// Overrides carries CLI flag values that take precedence over the
// environment and the config file.
type Overrides struct {
	ProjectPath   string
	SessionSource string
}

// fileConfig is the optional YAML config file at ~/.config/nm/config.yaml.
// Durations are in seconds.
type fileConfig struct {
	APIURL        string  `yaml:"api_url,omitempty"`
	AuthToken     string  `yaml:"auth_token,omitempty"`
	Timeout       float64 `yaml:"timeout,omitempty"`
	HealthTimeout float64 `yaml:"timeout_health,omitempty"`
	MaxMessages   int     `yaml:"max_messages,omitempty"`
	SessionSource string  `yaml:"session_source,omitempty"`
}

func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nm", "config.yaml")
}

// LoadConfig resolves configuration with the precedence
// flags > environment > .env file > config file > defaults.
func LoadConfig(o Overrides) (*Config, error) {
	// .env never overrides variables already present in the environment.
	_ = godotenv.Load()

	fc, err := loadConfigFile(ConfigFilePath())
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIURL:        firstNonEmpty(os.Getenv("NOWLEDGE_MEM_API_URL"), fc.APIURL, DefaultAPIURL),
		AuthToken:     firstNonEmpty(os.Getenv("NOWLEDGE_MEM_AUTH_TOKEN"), fc.AuthToken),
		Timeout:       DefaultTimeout,
		HealthTimeout: DefaultHealthTimeout,
	}

	if fc.Timeout > 0 {
		cfg.Timeout = time.Duration(fc.Timeout * float64(time.Second))
	}
	if fc.HealthTimeout > 0 {
		cfg.HealthTimeout = time.Duration(fc.HealthTimeout * float64(time.Second))
	}
	if fc.MaxMessages > 0 {
		cfg.MaxMessages = fc.MaxMessages
	}

	if err := applyEnvDurations(cfg); err != nil {
		return nil, err
	}

	if v := os.Getenv("NOWLEDGE_MEM_MAX_MESSAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%w: NOWLEDGE_MEM_MAX_MESSAGES=%q is not an integer", ErrConfig, v)
		}
		cfg.MaxMessages = n
	}
	if cfg.MaxMessages < 0 {
		cfg.MaxMessages = 0
	}

	source := firstNonEmpty(o.SessionSource, os.Getenv("NOWLEDGE_MEM_SESSION_SOURCE"), fc.SessionSource)
	if source == "" {
		cfg.SessionSource = SourceAuto
	} else {
		parsed, err := ParseSource(source)
		if err != nil {
			return nil, err
		}
		cfg.SessionSource = parsed
	}

	cfg.ProjectPath = firstNonEmpty(o.ProjectPath, os.Getenv("PROJECT_PATH"))
	if cfg.ProjectPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w: cannot determine working directory: %v", ErrConfig, err)
		}
		cfg.ProjectPath = cwd
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("%w: API URL is empty", ErrConfig)
	}
	if cfg.Timeout <= 0 || cfg.HealthTimeout <= 0 {
		return nil, fmt.Errorf("%w: timeouts must be positive", ErrConfig)
	}

	return cfg, nil
}

func loadConfigFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}

	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}
	return fc, nil
}

func applyEnvDurations(cfg *Config) error {
	for _, d := range []struct {
		env  string
		dest *time.Duration
	}{
		{"NOWLEDGE_MEM_TIMEOUT", &cfg.Timeout},
		{"NOWLEDGE_MEM_TIMEOUT_HEALTH", &cfg.HealthTimeout},
	} {
		v := os.Getenv(d.env)
		if v == "" {
			continue
		}
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			return fmt.Errorf("%w: %s=%q is not a positive number of seconds", ErrConfig, d.env, v)
		}
		*d.dest = time.Duration(secs * float64(time.Second))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// MaskToken renders a token for display without revealing it.
func MaskToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 4 {
		return "********"
	}
	return "********..." + token[len(token)-4:]
}
