package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	Secret         string        `mapstructure:"secret"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`

	Log     LogConfig     `mapstructure:"log"`
	Geo     GeoConfig     `mapstructure:"geo"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Rooms   RoomsConfig   `mapstructure:"rooms"`
	Cleanup CleanupConfig `mapstructure:"cleanup"`
	History HistoryConfig `mapstructure:"history"`
	Store   StoreConfig   `mapstructure:"store"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type GeoConfig struct {
	RadiusMeters float64 `mapstructure:"radius_meters"`
}

type LimitsConfig struct {
	MessagesPerWindow int           `mapstructure:"messages_per_window"`
	Window            time.Duration `mapstructure:"window"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
	MaxMessageLen     int           `mapstructure:"max_message_len"`
	MaxUsernameLen    int           `mapstructure:"max_username_len"`
}

type RoomsConfig struct {
	EmptyTTL   time.Duration `mapstructure:"empty_ttl"`
	BufferSize int           `mapstructure:"buffer_size"`
}

type CleanupConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type HistoryConfig struct {
	Window time.Duration `mapstructure:"window"`
	Limit  int           `mapstructure:"limit"`
}

type StoreConfig struct {
	Driver  string        `mapstructure:"driver"`
	DSN     string        `mapstructure:"dsn"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "nearby-dev-secret")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("geo.radius_meters", 500.0)

	v.SetDefault("limits.messages_per_window", 30)
	v.SetDefault("limits.window", "1m")
	v.SetDefault("limits.idle_ttl", "1h")
	v.SetDefault("limits.max_message_len", 500)
	v.SetDefault("limits.max_username_len", 20)

	v.SetDefault("rooms.empty_ttl", "1h")
	v.SetDefault("rooms.buffer_size", 100)

	v.SetDefault("cleanup.interval", "10m")

	v.SetDefault("history.window", "24h")
	v.SetDefault("history.limit", 7)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "nearby.db")
	v.SetDefault("store.timeout", "3s")
}

// Load resolves the configuration from, in rising priority: defaults, the
// yaml file for CONFIG_ENV, NEARBY_* environment variables and flags in args.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("nearby", pflag.ContinueOnError)
	fs.Int("port", 8080, "listen port")
	fs.String("mode", "release", "gin mode: debug or release")
	configFile := fs.String("config", "", "path to a yaml config file")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("NEARBY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"port", "mode"} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	fileName := *configFile
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("static", cfg.StaticPath).Str("store", cfg.Store.Driver).Msg("config resolved")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.driver must be sqlite or memory, got %q", c.Store.Driver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.Geo.RadiusMeters <= 0 {
		return fmt.Errorf("geo.radius_meters must be positive")
	}
	return nil
}
