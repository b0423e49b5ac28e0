package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const appDir = "kaitenbill"

// MinSyncDelay is the smallest gap allowed between card archive updates
const MinSyncDelay = 200 * time.Millisecond

type Config struct {
	Kaiten    KaitenConfig    `yaml:"kaiten"`
	Database  DatabaseConfig  `yaml:"database"`
	Invoice   InvoiceConfig   `yaml:"invoice"`
	Sync      SyncConfig      `yaml:"sync"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Selection SelectionConfig `yaml:"selection"`
}

type KaitenConfig struct {
	APIURL   string        `yaml:"api_url"`             // e.g. https://example.kaiten.ru/api/latest
	APIToken string        `yaml:"api_token,omitempty"` // prefer the keyring; this wins when set
	Timeout  time.Duration `yaml:"timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // Path to SQLite database
}

type InvoiceConfig struct {
	HourlyRate float64 `yaml:"hourly_rate"` // display only, never stored on invoices
	Currency   string  `yaml:"currency"`
}

// Rate returns the hourly rate as a decimal
func (c InvoiceConfig) Rate() decimal.Decimal {
	return decimal.NewFromFloat(c.HourlyRate)
}

// SyncConfig paces card archive updates against the Kaiten rate limit
type SyncConfig struct {
	Delay            time.Duration `yaml:"delay"`              // between cards
	RateLimitBackoff time.Duration `yaml:"rate_limit_backoff"` // before the single retry after a 429
}

type CacheConfig struct {
	StaleTime time.Duration `yaml:"stale_time"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	ContainerID string `yaml:"container_id"` // DOM id host pages mount the dashboard into
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// SelectionConfig remembers the last picked space and board
type SelectionConfig struct {
	SpaceID int64 `yaml:"space_id"`
	BoardID int64 `yaml:"board_id"`
}

// Dir returns ~/.config/kaitenbill
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		return filepath.Join(".", ".config", appDir)
	}
	return filepath.Join(homeDir, ".config", appDir)
}

// DefaultConfigPath returns ~/.config/kaitenbill/config.yaml
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	dir := Dir()

	return &Config{
		Kaiten: KaitenConfig{
			Timeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "kaitenbill.db"),
		},
		Invoice: InvoiceConfig{
			HourlyRate: 850,
			Currency:   "RUB",
		},
		Sync: SyncConfig{
			Delay:            MinSyncDelay,
			RateLimitBackoff: time.Second,
		},
		Cache: CacheConfig{
			StaleTime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			ContainerID: "kaiten-invoice-root",
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dir, "kaitenbill.log"),
		},
	}
}

// Load loads config from the given path, or returns defaults if file doesn't exist
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	// may hold the API token
	return os.WriteFile(path, data, 0600)
}

// Validate checks the values the services depend on
func (c *Config) Validate() error {
	var errs []error
	if c.Invoice.HourlyRate < 0 {
		errs = append(errs, errors.New("invoice.hourly_rate cannot be negative"))
	}
	if c.Sync.Delay < MinSyncDelay {
		errs = append(errs, fmt.Errorf("sync.delay must be at least %s, got %s", MinSyncDelay, c.Sync.Delay))
	}
	if c.Sync.RateLimitBackoff < 0 {
		errs = append(errs, errors.New("sync.rate_limit_backoff cannot be negative"))
	}
	if c.Kaiten.APIURL != "" && !strings.HasPrefix(c.Kaiten.APIURL, "http://") && !strings.HasPrefix(c.Kaiten.APIURL, "https://") {
		errs = append(errs, fmt.Errorf("kaiten.api_url must be an http(s) URL, got %q", c.Kaiten.APIURL))
	}
	return errors.Join(errs...)
}

// SelectSpace records the picked space. Changing the space forgets the board.
func (c *Config) SelectSpace(spaceID int64) {
	if c.Selection.SpaceID != spaceID {
		c.Selection.BoardID = 0
	}
	c.Selection.SpaceID = spaceID
}

func (c *Config) SelectBoard(boardID int64) {
	c.Selection.BoardID = boardID
}

// EnsureDirectories creates the database and log directories
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(filepath.Dir(c.Database.Path), 0755); err != nil {
		return err
	}
	if c.Log.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.Log.Path), 0755); err != nil {
			return err
		}
	}
	return nil
}
