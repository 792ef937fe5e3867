package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables. Run-shaped inputs (year, month,
// day range, variable filter) come from CLI flags instead.
type Config struct {
	Archive   string `envconfig:"ARCHIVE" default:"rda"`
	OutputDir string `envconfig:"OUTPUT_DIR" default:"./era5_data"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"INFO"`

	MaxParallel   int           `envconfig:"MAX_PARALLEL" default:"1"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"300s"`
	FetchAttempts uint          `envconfig:"FETCH_ATTEMPTS" default:"3"`

	// CredentialsFile is the TOML file holding [rda] / [cds] sections; the
	// environment pairs RDA_EMAIL/RDA_KEY and CDS_UID/CDS_KEY take
	// precedence over it.
	CredentialsFile string `envconfig:"CREDENTIALS_FILE"`

	RDA struct {
		BaseURL string `split_words:"true"`
	}

	CDS struct {
		BaseURL      string        `split_words:"true"`
		PollInterval time.Duration `split_words:"true" default:"2s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if cfg.CredentialsFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot locate home directory for credentials file: %w", err)
		}

		cfg.CredentialsFile = filepath.Join(home, ".era5rc")
	}

	switch cfg.Archive {
	case "rda", "cds":
	default:
		return nil, fmt.Errorf("invalid archive %q: must be rda or cds", cfg.Archive)
	}

	if cfg.MaxParallel < 1 {
		return nil, fmt.Errorf("MAX_PARALLEL must be at least 1, got %d", cfg.MaxParallel)
	}

	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
