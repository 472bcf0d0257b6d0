package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Intake   IntakeConfig   `koanf:"intake"`
	Engine   EngineConfig   `koanf:"engine"`
	Notifier NotifierConfig `koanf:"notifier"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	CORSOrigins     []string `koanf:"cors_origins"`
	ShutdownTimeout string   `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	UploadDir  string `koanf:"upload_dir"`
	ResultsDir string `koanf:"results_dir"`
}

type IntakeConfig struct {
	MaxUploadSize  int64  `koanf:"max_upload_size"`
	InputExtension string `koanf:"input_extension"`
}

type EngineConfig struct {
	Kind          string       `koanf:"kind"`
	MaxConcurrent int          `koanf:"max_concurrent"`
	Exec          ExecConfig   `koanf:"exec"`
	Docker        DockerConfig `koanf:"docker"`
}

type ExecConfig struct {
	Binary string   `koanf:"binary"`
	Args   []string `koanf:"args"`
}

type DockerConfig struct {
	Image       string `koanf:"image"`
	InputMount  string `koanf:"input_mount"`
	OutputMount string `koanf:"output_mount"`
}

type NotifierConfig struct {
	Interval        string `koanf:"interval"`
	CloseOnTerminal bool   `koanf:"close_on_terminal"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads config from a TOML file (if provided) then overlays env
// vars: IMP_SERVER_PORT -> server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Only overlay env vars that have non-empty values so they do not
	// clobber TOML settings.
	if err := k.Load(env.ProviderWithValue("IMP_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		mapped := strings.Replace(
			strings.ToLower(strings.TrimPrefix(key, "IMP_")),
			"_", ".", -1,
		)
		return mapped, value
	}), nil); err != nil {
		return nil, err
	}

	// Multi-word keys don't survive the underscore-to-dot mapping, so
	// they get explicit overrides.
	for envKey, confKey := range map[string]string{
		"IMP_SERVER_SHUTDOWN_TIMEOUT":    "server.shutdown_timeout",
		"IMP_STORAGE_UPLOAD_DIR":         "storage.upload_dir",
		"IMP_STORAGE_RESULTS_DIR":        "storage.results_dir",
		"IMP_INTAKE_MAX_UPLOAD_SIZE":     "intake.max_upload_size",
		"IMP_INTAKE_INPUT_EXTENSION":     "intake.input_extension",
		"IMP_ENGINE_MAX_CONCURRENT":      "engine.max_concurrent",
		"IMP_NOTIFIER_CLOSE_ON_TERMINAL": "notifier.close_on_terminal",
	} {
		if v := os.Getenv(envKey); v != "" {
			k.Set(confKey, v)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Engine.Kind {
	case "exec", "docker":
	default:
		return fmt.Errorf("engine.kind must be exec or docker, got %q", c.Engine.Kind)
	}
	if c.Intake.MaxUploadSize <= 0 {
		return fmt.Errorf("intake.max_upload_size must be positive")
	}
	if !strings.HasPrefix(c.Intake.InputExtension, ".") {
		return fmt.Errorf("intake.input_extension must start with a dot, got %q", c.Intake.InputExtension)
	}
	if _, err := time.ParseDuration(c.Notifier.Interval); err != nil {
		return fmt.Errorf("notifier.interval: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	return nil
}

// NotifierInterval returns the parsed cadence. Load validated it.
func (c *Config) NotifierInterval() time.Duration {
	d, _ := time.ParseDuration(c.Notifier.Interval)
	return d
}

// ShutdownTimeout returns the parsed graceful-shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Server.ShutdownTimeout)
	return d
}
