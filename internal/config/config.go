package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Albion       Albion       `mapstructure:"albion"`
	Market       Market       `mapstructure:"market"`
	Refresh      Refresh      `mapstructure:"refresh"`
	Catalog      Catalog      `mapstructure:"catalog"`
	Database     Database     `mapstructure:"database"`
	Notification Notification `mapstructure:"notification"`
	Logger       Logger       `mapstructure:"logger"`
	Server       Server       `mapstructure:"server"`
}

// Albion holds the configuration for the Albion Online Data price API.
type Albion struct {
	BaseURL          string        `mapstructure:"base_url" validate:"required,url"`
	Server           string        `mapstructure:"server" validate:"required"`
	RateLimit        float64       `mapstructure:"rate_limit" validate:"gt=0"`
	RateLimitBurst   int           `mapstructure:"rate_limit_burst" validate:"min=1"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Retries          int           `mapstructure:"retries" validate:"min=1"`
	BackoffBase      time.Duration `mapstructure:"backoff_base" validate:"gte=0"`
	MaxItemsPerBatch int           `mapstructure:"max_items_per_batch" validate:"min=1"`
}

// Market holds the arbitrage parameters.
type Market struct {
	SinkLocation      string   `mapstructure:"sink_location" validate:"required"`
	Locations         []string `mapstructure:"locations" validate:"min=2,dive,required"`
	Qualities         []int    `mapstructure:"qualities" validate:"min=1,dive,min=1,max=5"`
	Premium           bool     `mapstructure:"premium"`
	PremiumTaxRate    float64  `mapstructure:"premium_tax_rate" validate:"gte=0,lt=1"`
	NonPremiumTaxRate float64  `mapstructure:"non_premium_tax_rate" validate:"gte=0,lt=1"`
	TrashRate         float64  `mapstructure:"trash_rate" validate:"gte=0,lt=1"`
	MinROI            float64  `mapstructure:"min_roi"`
	MinSpread         float64  `mapstructure:"min_spread"`
	MountCapacityKg   float64  `mapstructure:"mount_capacity_kg" validate:"gt=0"`
	DefaultWeightKg   float64  `mapstructure:"default_weight_kg" validate:"gt=0"`
}

// TaxRate returns the sales tax for the configured account mode.
func (m Market) TaxRate() float64 {
	if m.Premium {
		return m.PremiumTaxRate
	}
	return m.NonPremiumTaxRate
}

// ValidateRoute checks that both ends of a route are configured locations.
func (m Market) ValidateRoute(buy, sell string) error {
	if buy == sell {
		return fmt.Errorf("route %q -> %q buys and sells in the same location", buy, sell)
	}
	for _, loc := range []string{buy, sell} {
		if !m.hasLocation(loc) {
			return fmt.Errorf("location %q is not in market.locations", loc)
		}
	}
	return nil
}

func (m Market) hasLocation(loc string) bool {
	for _, l := range m.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// Refresh holds the configuration for the refresh cycle.
type Refresh struct {
	BatchSize int      `mapstructure:"batch_size" validate:"min=1"`
	Workers   int      `mapstructure:"workers" validate:"min=1"`
	Schedule  string   `mapstructure:"schedule" validate:"required"`
	ItemLimit int      `mapstructure:"item_limit" validate:"gte=0"`
	Items     []string `mapstructure:"items"`
}

// Catalog holds the configuration for the item metadata dumps.
type Catalog struct {
	ItemsURL        string `mapstructure:"items_url" validate:"required,url"`
	WorldURL        string `mapstructure:"world_url" validate:"required,url"`
	Dir             string `mapstructure:"dir" validate:"required"`
	MaxAgeDays      int    `mapstructure:"max_age_days" validate:"min=1"`
	PreferredLocale string `mapstructure:"preferred_locale"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN           string `mapstructure:"dsn" validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" validate:"min=1"`
	PurgeSchedule string `mapstructure:"purge_schedule" validate:"required"`
}

// Notification holds the configuration for trade alerts.
type Notification struct {
	Enabled    bool          `mapstructure:"enabled"`
	MinROI     float64       `mapstructure:"min_roi"`
	Cooldown   time.Duration `mapstructure:"cooldown" validate:"gte=0"`
	WebhookURL string        `mapstructure:"webhook_url" validate:"omitempty,url"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level" validate:"required"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
	Dir    string `mapstructure:"dir"`
}

// Server holds the configuration for the web servers.
type Server struct {
	Port   int `mapstructure:"port" validate:"min=1,max=65535"`
	UIPort int `mapstructure:"ui_port" validate:"min=1,max=65535"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("albion.base_url", "https://europe.albion-online-data.com/api/v2/stats")
	v.SetDefault("albion.server", "europe")
	v.SetDefault("albion.rate_limit", 3) // requests per second
	v.SetDefault("albion.rate_limit_burst", 3)
	v.SetDefault("albion.timeout", "10s")
	v.SetDefault("albion.retries", 3)
	v.SetDefault("albion.backoff_base", "1s")
	v.SetDefault("albion.max_items_per_batch", 100)

	v.SetDefault("market.sink_location", "Black Market")
	v.SetDefault("market.locations", []string{
		"Thetford", "Lymhurst", "Bridgewatch", "Martlock", "Fort Sterling", "Caerleon", "Black Market",
	})
	v.SetDefault("market.qualities", []int{1, 2, 3})
	v.SetDefault("market.premium", true)
	v.SetDefault("market.premium_tax_rate", 0.04)
	v.SetDefault("market.non_premium_tax_rate", 0.08)
	v.SetDefault("market.trash_rate", 0.12)
	v.SetDefault("market.min_roi", 0.10)
	v.SetDefault("market.min_spread", 0.05)
	v.SetDefault("market.mount_capacity_kg", 120)
	v.SetDefault("market.default_weight_kg", 0.1)

	v.SetDefault("refresh.batch_size", 200)
	v.SetDefault("refresh.workers", 5)
	v.SetDefault("refresh.schedule", "@every 5m")
	v.SetDefault("refresh.item_limit", 0)

	v.SetDefault("catalog.items_url", "https://raw.githubusercontent.com/ao-data/ao-bin-dumps/master/formatted/items.json")
	v.SetDefault("catalog.world_url", "https://raw.githubusercontent.com/ao-data/ao-bin-dumps/master/formatted/world.json")
	v.SetDefault("catalog.dir", "./data")
	v.SetDefault("catalog.max_age_days", 7)
	v.SetDefault("catalog.preferred_locale", "EN-US")

	v.SetDefault("database.dsn", "albion_market.db")
	v.SetDefault("database.retention_days", 7)
	v.SetDefault("database.purge_schedule", "@every 6h")

	v.SetDefault("notification.enabled", true)
	v.SetDefault("notification.min_roi", 0.10)
	v.SetDefault("notification.cooldown", "30m")
	v.SetDefault("notification.webhook_url", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.dir", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ui_port", 8081)
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and environment apply.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	err = Validate(&config)
	return
}

// Validate checks the struct tags and the cross-field rules of cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		if validationErrs, ok := err.(validator.ValidationErrors); ok {
			var messages []string
			for _, e := range validationErrs {
				messages = append(messages, fmt.Sprintf("%s failed '%s' (value: '%v')", e.Namespace(), e.Tag(), e.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
		}
		return err
	}

	sinkListed := false
	for _, loc := range cfg.Market.Locations {
		if loc == cfg.Market.SinkLocation {
			sinkListed = true
			break
		}
	}
	if !sinkListed {
		return fmt.Errorf("invalid config: sink location %q is not in market.locations", cfg.Market.SinkLocation)
	}
	return nil
}
