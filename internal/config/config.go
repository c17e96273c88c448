package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Environment variables that override file values. They may also come from a
// .env file in the working directory.
const (
	EnvDiscordToken = "HLTVSCAN_DISCORD_TOKEN"
	EnvDBPath       = "HLTVSCAN_DB_PATH"
)

type Config struct {
	Scraper    Scraper    `yaml:"scraper"`
	Classifier Classifier `yaml:"classifier"`
	Discord    Discord    `yaml:"discord"`
	Database   Database   `yaml:"database"`
	Logging    Logging    `yaml:"logging"`

	// Sections of the older two-section credentials file,
	// {"Discord": {"Token": ...}, "MySQL": {...}}.
	Credentials Credentials `yaml:",inline"`
}

// Credentials is the capitalised credentials file shape. Discord values fill
// empty discord settings; the MySQL section is accepted but unused since the
// store is SQLite.
type Credentials struct {
	Discord *LegacyDiscord    `yaml:"Discord"`
	MySQL   map[string]string `yaml:"MySQL"`
}

type LegacyDiscord struct {
	Token        string `yaml:"Token"`
	ClientID     string `yaml:"ClientID"`
	ClientSecret string `yaml:"ClientSecret"`
}

type Scraper struct {
	BaseURL            string  `yaml:"base_url"`
	UserAgent          string  `yaml:"user_agent"`
	TimeoutSeconds     int     `yaml:"timeout_seconds"`
	ThreadDelaySeconds float64 `yaml:"thread_delay_seconds"`
	ThreadJitterSecs   float64 `yaml:"thread_jitter_seconds"`
	MinRequestInterval float64 `yaml:"min_request_interval_seconds"`
	PollSeconds        int     `yaml:"poll_seconds"`
	RefreshMinutes     int     `yaml:"refresh_minutes"`
	Forums             []Forum `yaml:"forums"`
}

// Forum names a forum section by its natural key, e.g. "17/off-topic".
type Forum struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type Classifier struct {
	Provider    string `yaml:"provider"`
	SonarURL    string `yaml:"sonar_url"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
}

type Discord struct {
	Token        string    `yaml:"token"`
	ClientID     string    `yaml:"client_id"`
	ClientSecret string    `yaml:"client_secret"`
	Forum        Forum     `yaml:"forum"`
	Channels     []Channel `yaml:"channels"`
}

// Channel is an observed chat channel; it is stored as a thread keyed by ID.
type Channel struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type Database struct {
	Path string `yaml:"path"`
}

// Logging holds log settings. Level "debug" adds file:line to log lines,
// like --verbose.
type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for hltvscan.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "hltvscan")
}

// DataDir returns the XDG data directory for hltvscan.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "hltvscan")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/hltvscan/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'hltvscan init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config file, then applies environment overrides.
// JSON is valid YAML, so JSON config files load too. Unknown keys are errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	// A missing .env file is fine.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Scraper: Scraper{
			BaseURL:            "https://www.hltv.org",
			UserAgent:          "hltvscan/1.0 (forum research crawler)",
			TimeoutSeconds:     30,
			ThreadDelaySeconds: 2.0,
			ThreadJitterSecs:   1.0,
			MinRequestInterval: 1.0,
			PollSeconds:        5,
			RefreshMinutes:     15,
		},
		Classifier: Classifier{
			Provider:    "sonar",
			SonarURL:    "http://localhost:5000/ping",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
		},
		Discord: Discord{
			Forum: Forum{ID: "ECC-Discord", Name: "ECC-Discord"},
		},
		Logging: Logging{Level: "INFO"},
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyCredentials()

	return cfg, nil
}

func (c *Config) applyCredentials() {
	if d := c.Credentials.Discord; d != nil {
		if c.Discord.Token == "" {
			c.Discord.Token = d.Token
		}
		if c.Discord.ClientID == "" {
			c.Discord.ClientID = d.ClientID
		}
		if c.Discord.ClientSecret == "" {
			c.Discord.ClientSecret = d.ClientSecret
		}
	}
	if c.Credentials.MySQL != nil {
		log.Printf("Ignoring MySQL credentials: data is stored in SQLite at database.path")
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDiscordToken); v != "" {
		c.Discord.Token = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Database.Path = v
	}
}

func (c *Config) validate() error {
	for _, f := range c.Scraper.Forums {
		if f.ID == "" {
			return fmt.Errorf("invalid config: forum %q has no id", f.Name)
		}
	}
	for _, ch := range c.Discord.Channels {
		if ch.ID == "" {
			return fmt.Errorf("invalid config: discord channel %q has no id", ch.Name)
		}
	}
	if c.Scraper.PollSeconds <= 0 {
		return fmt.Errorf("invalid config: poll_seconds must be positive")
	}
	return nil
}

// Debug reports whether debug logging is configured.
func (l Logging) Debug() bool {
	return strings.EqualFold(l.Level, "debug")
}

// GetDataDir returns the directory holding the database file.
func (c *Config) GetDataDir() string {
	if c.Database.Path != "" {
		return filepath.Dir(c.Database.Path)
	}
	return DataDir()
}

// DBPath returns the effective database file path.
func (c *Config) DBPath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(DataDir(), "hltvscan.db")
}

// Timeout returns the HTTP timeout for page and classifier requests.
func (s Scraper) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// PollInterval returns how often the shutdown signal is checked between cycles.
func (s Scraper) PollInterval() time.Duration {
	return time.Duration(s.PollSeconds) * time.Second
}

// ThreadDelay returns the fixed part of the pause between threads.
func (s Scraper) ThreadDelay() time.Duration {
	return seconds(s.ThreadDelaySeconds)
}

// ThreadJitter returns the upper bound of the random part of the pause.
func (s Scraper) ThreadJitter() time.Duration {
	return seconds(s.ThreadJitterSecs)
}

// RequestInterval returns the minimum spacing between page requests.
func (s Scraper) RequestInterval() time.Duration {
	return seconds(s.MinRequestInterval)
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
