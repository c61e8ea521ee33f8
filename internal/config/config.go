// Package config reads host and controller settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Archive backends.
const (
	ArchiveFile   = "file"
	ArchiveRedis  = "redis"
	ArchiveSQLite = "sqlite"
	ArchiveMemory = "memory"
)

// ErrInvalid marks a setting that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// HostConfig configures vnhost.
type HostConfig struct {
	ControllerURL string `env:"LLMVN_CONTROLLER_URL" envDefault:"ws://localhost:8765/llm-vn-controller"`

	PrinterDevice string `env:"LLMVN_PRINTER" envDefault:"/dev/usb/lp0"`
	CharsPerLine  int    `env:"LLMVN_PRINTER_CHARS_PER_LINE" envDefault:"42"`

	LLMBaseURL string `env:"LLMVN_LLM_BASE_URL" envDefault:"http://localhost:11434/v1"`
	LLMAPIKey  string `env:"LLMVN_LLM_API_KEY"`

	CharacterFile string        `env:"LLMVN_CHARACTERS" envDefault:"characters.toml"`
	ReplyTimeout  time.Duration `env:"LLMVN_REPLY_TIMEOUT" envDefault:"60s"`

	Archive         string `env:"LLMVN_ARCHIVE" envDefault:"file"`
	ConversationDir string `env:"LLMVN_CONVERSATION_DIR" envDefault:"conversations"`
	RedisAddr       string `env:"LLMVN_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"LLMVN_REDIS_PASSWORD"`
	RedisDB         int    `env:"LLMVN_REDIS_DB" envDefault:"0"`
	SQLitePath      string `env:"LLMVN_SQLITE_PATH" envDefault:"conversations.db"`
	ArchiveRedact   bool   `env:"LLMVN_ARCHIVE_REDACT" envDefault:"true"`

	StatusAddr string `env:"LLMVN_STATUS_ADDR"`
	Debug      bool   `env:"LLMVN_DEBUG"`
}

// ControllerConfig configures vncontroller.
type ControllerConfig struct {
	ListenAddr   string        `env:"LLMVN_LISTEN_ADDR" envDefault:":8765"`
	SampleRate   time.Duration `env:"LLMVN_SAMPLE_INTERVAL" envDefault:"50ms"`
	KeyHold      time.Duration `env:"LLMVN_KEY_HOLD" envDefault:"150ms"`
	DisplayWidth int           `env:"LLMVN_DISPLAY_WIDTH" envDefault:"60"`
	LogFile      string        `env:"LLMVN_LOG_FILE" envDefault:"vncontroller.log"`
	Debug        bool          `env:"LLMVN_DEBUG"`
}

// LoadDotEnv reads .env files into the environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// LoadHost parses the host settings from the environment.
func LoadHost() (*HostConfig, error) {
	cfg := &HostConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadController parses the controller settings from the environment.
func LoadController() (*ControllerConfig, error) {
	cfg := &ControllerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that the environment parser cannot.
func (c *HostConfig) Validate() error {
	u, err := url.Parse(c.ControllerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("%w: controller url %q must be ws:// or wss://", ErrInvalid, c.ControllerURL)
	}
	if c.CharacterFile == "" {
		return fmt.Errorf("%w: character file is required", ErrInvalid)
	}
	if c.PrinterDevice == "" {
		return fmt.Errorf("%w: printer device is required", ErrInvalid)
	}
	if c.CharsPerLine < 16 {
		return fmt.Errorf("%w: printer needs at least 16 characters per line, got %d", ErrInvalid, c.CharsPerLine)
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("%w: reply timeout must be positive", ErrInvalid)
	}

	switch c.Archive {
	case ArchiveFile:
		if c.ConversationDir == "" {
			return fmt.Errorf("%w: conversation directory is required", ErrInvalid)
		}
	case ArchiveRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis address is required", ErrInvalid)
		}
	case ArchiveSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite path is required", ErrInvalid)
		}
	case ArchiveMemory:
	default:
		return fmt.Errorf("%w: unknown archive %q", ErrInvalid, c.Archive)
	}
	return nil
}

// Validate checks settings that the environment parser cannot.
func (c *ControllerConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalid)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample interval must be positive", ErrInvalid)
	}
	if c.KeyHold < c.SampleRate {
		return fmt.Errorf("%w: key hold %s is shorter than the sample interval %s", ErrInvalid, c.KeyHold, c.SampleRate)
	}
	return nil
}
