package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	coreconfig "github.com/m3rciful/supperbot/core/config"
	coredatabase "github.com/m3rciful/supperbot/core/database"
	"github.com/m3rciful/supperbot/internal/jio"
	"github.com/m3rciful/supperbot/internal/money"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// StorageConfig selects where jios are kept.
type StorageConfig struct {
	// Driver is "postgres" or "memory". Empty picks postgres when a
	// database host is configured and memory otherwise.
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}

// JioConfig tunes the jio service.
type JioConfig struct {
	// Window is how long an Open record stays visible to its chat.
	Window        time.Duration `yaml:"window" envconfig:"JIO_WINDOW"`
	DeliveryCents int64         `yaml:"delivery_cents" envconfig:"JIO_DELIVERY_CENTS"`
	GSTRate       string        `yaml:"gst_rate" envconfig:"JIO_GST_RATE"`
	// MenuFiles are extra establishment catalogs offered after the
	// embedded default.
	MenuFiles []string `yaml:"menu_files" envconfig:"JIO_MENU_FILES"`

	gstRate decimal.Decimal
}

// Rate returns the parsed GST rate.
func (c JioConfig) Rate() decimal.Decimal {
	return c.gstRate
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Jio      JioConfig           `yaml:"jio"`
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads path and the environment, then validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	driver := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if driver == "" {
		driver = DriverMemory
		if strings.TrimSpace(c.Database.Host) != "" {
			driver = DriverPostgres
		}
	}
	switch driver {
	case DriverMemory:
	case DriverPostgres:
		if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when storage.driver is 'postgres'")
		}
		if c.Database.Port == "" {
			c.Database.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, memory", c.Storage.Driver)
	}
	c.Storage.Driver = driver

	if c.Jio.Window < 0 {
		return fmt.Errorf("jio.window must be >= 0")
	}
	if c.Jio.Window == 0 {
		c.Jio.Window = jio.DefaultWindow
	}
	if c.Jio.DeliveryCents < 0 {
		return fmt.Errorf("jio.delivery_cents must be >= 0")
	}
	if c.Jio.DeliveryCents == 0 {
		c.Jio.DeliveryCents = jio.DefaultDelivery
	}
	rate, err := money.ParseRate(c.Jio.GSTRate)
	if err != nil {
		return fmt.Errorf("jio.gst_rate: %w", err)
	}
	c.Jio.gstRate = rate
	return nil
}
