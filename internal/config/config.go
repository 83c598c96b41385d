package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Shiprocket ShiprocketConfig
	Batch      BatchConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DBConfig holds SQLite settings.
type DBConfig struct {
	Path string
}

// ShiprocketConfig holds everything needed to talk to the logistics
// platform. Page sizes and ceilings are configuration rather than literals
// because the bounded linear scan is only correct while the upstream catalog
// fits inside PageSize*PageLimit orders.
type ShiprocketConfig struct {
	BaseURL         string
	Email           string
	Password        string
	RequestTimeout  time.Duration
	TokenTTL        time.Duration
	OrderPageSize   int
	OrderPageLimit  int
	LedgerPageSize  int
	LedgerPageLimit int
}

// BatchConfig holds reconciliation batch settings.
type BatchConfig struct {
	// WindowSize bounds the number of orders processed concurrently. The
	// next window starts only after the previous one completes, capping
	// simultaneous outbound requests at this width.
	WindowSize int
	// MaxIndexOrders caps how many orders the per-run index will hold.
	MaxIndexOrders int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Load reads configuration from an optional config.yaml plus SHIPCOST_*
// environment variables, with sane defaults for everything but credentials.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/shipcost")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	v.SetEnvPrefix("SHIPCOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		DB: DBConfig{
			Path: v.GetString("db.path"),
		},
		Shiprocket: ShiprocketConfig{
			BaseURL:         v.GetString("shiprocket.base_url"),
			Email:           v.GetString("shiprocket.email"),
			Password:        v.GetString("shiprocket.password"),
			RequestTimeout:  v.GetDuration("shiprocket.request_timeout"),
			TokenTTL:        v.GetDuration("shiprocket.token_ttl"),
			OrderPageSize:   v.GetInt("shiprocket.order_page_size"),
			OrderPageLimit:  v.GetInt("shiprocket.order_page_limit"),
			LedgerPageSize:  v.GetInt("shiprocket.ledger_page_size"),
			LedgerPageLimit: v.GetInt("shiprocket.ledger_page_limit"),
		},
		Batch: BatchConfig{
			WindowSize:     v.GetInt("batch.window_size"),
			MaxIndexOrders: v.GetInt("batch.max_index_orders"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute) // bulk-fetch runs inline

	v.SetDefault("db.path", "shipcost.db")

	v.SetDefault("shiprocket.base_url", "https://apiv2.shiprocket.in/v1/external")
	v.SetDefault("shiprocket.request_timeout", 30*time.Second)
	// The platform documents a 10-day token lifetime.
	v.SetDefault("shiprocket.token_ttl", 240*time.Hour)
	v.SetDefault("shiprocket.order_page_size", 50)
	v.SetDefault("shiprocket.order_page_limit", 20)
	v.SetDefault("shiprocket.ledger_page_size", 100)
	v.SetDefault("shiprocket.ledger_page_limit", 10)

	v.SetDefault("batch.window_size", 5)
	v.SetDefault("batch.max_index_orders", 1000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func (c *Config) validate() error {
	if c.Shiprocket.Email == "" || c.Shiprocket.Password == "" {
		return fmt.Errorf("shiprocket.email and shiprocket.password are required")
	}
	if c.Batch.WindowSize < 1 {
		return fmt.Errorf("batch.window_size must be at least 1, got %d", c.Batch.WindowSize)
	}
	if c.Shiprocket.OrderPageSize < 1 || c.Shiprocket.OrderPageLimit < 1 {
		return fmt.Errorf("shiprocket order paging bounds must be positive")
	}
	return nil
}
