package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the bot looks for its configuration file.
const DefaultPath = ".config.yml"

// Config holds everything the bot needs to run. Keys mirror .config.yml.
type Config struct {
	// Telegram
	TelegramToken  string `yaml:"tg-token"`
	Admins         []int64 `yaml:"admins"`
	StartMessage   string `yaml:"start-message"`
	UnknownErr     string `yaml:"unknown-err"`
	SuccessSticker string `yaml:"success-sticker"`

	// TastyIgniter API
	APIURL       string  `yaml:"ti-url"`
	APIToken     string  `yaml:"ti-token"`
	LocationIDs  []int64 `yaml:"location-ids"`
	MaxAttempts  int     `yaml:"ti-api-max-attempts"`
	CacheEnabled bool    `yaml:"ti-api-cache"`
	CurrencyCode string  `yaml:"ti-currency-code"`

	// Ordering
	MaxQuantity           int     `yaml:"max-quantity"`
	DeliveryFee           float64 `yaml:"delivery-fee"`
	FreeDeliveryThreshold float64 `yaml:"free-delivery-threshold"`
	// CustomerEmail is the contact email stamped on every order, since
	// chat users have no email of their own.
	CustomerEmail string `yaml:"customer-email"`

	// Operational
	CacheDir  string `yaml:"cache-dir"`
	OpsListen string `yaml:"ops-listen"`
	OpsToken  string `yaml:"ops-token"`
}

// Load reads and validates the configuration file. Secrets can be
// overridden from the environment (TG_TOKEN, TI_TOKEN) so they can be
// kept out of the file on shared machines.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("TG_TOKEN"); v != "" {
		cfg.TelegramToken = v
	}
	if v := os.Getenv("TI_TOKEN"); v != "" {
		cfg.APIToken = v
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration back to disk.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, raw, 0o600)
}

func (c *Config) applyDefaults() {
	if c.MaxQuantity <= 0 {
		c.MaxQuantity = 5
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.CacheDir == "" {
		c.CacheDir = "cache"
	}
	if c.CurrencyCode == "" {
		c.CurrencyCode = "USD"
	}
	if c.StartMessage == "" {
		c.StartMessage = "Welcome! Hungry?"
	}
	if c.UnknownErr == "" {
		c.UnknownErr = "..."
	}
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("config: tg-token is required (or set TG_TOKEN)")
	}
	if c.APIURL == "" {
		return fmt.Errorf("config: ti-url is required")
	}
	if c.APIToken == "" {
		return fmt.Errorf("config: ti-token is required (or set TI_TOKEN)")
	}
	if len(c.LocationIDs) == 0 {
		return fmt.Errorf("config: location-ids must list at least one location")
	}
	return nil
}

// IsAdmin reports whether the Telegram user is listed in the admins key.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admins {
		if id == userID {
			return true
		}
	}
	return false
}
