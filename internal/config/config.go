package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for arb-finder-service
type Config struct {
	Server    ServerConfig
	OddsAPI   OddsAPIConfig
	Redis     RedisConfig
	Arbitrage ArbitrageConfig
	Warmup    WarmupConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Postgres  PostgresConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// OddsAPIConfig holds upstream data source configuration
type OddsAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig holds cache store configuration. One address selects a
// single-node client, several a cluster client.
type RedisConfig struct {
	Addrs    []string      `mapstructure:"addrs"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ArbitrageConfig holds computation defaults applied when a request omits
// the corresponding query parameters
type ArbitrageConfig struct {
	MarketKey              string  `mapstructure:"market_key"`              // market type to scan (h2h)
	DefaultBankroll        float64 `mapstructure:"default_bankroll"`        // e.g. 100
	DefaultRoundingUnit    float64 `mapstructure:"default_rounding_unit"`   // e.g. 1
	RequirePositiveRounded bool    `mapstructure:"require_positive_rounded"` // drop opportunities rounding erased
}

// WarmupConfig holds cache warm-up scheduler configuration
type WarmupConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Schedule       string        `mapstructure:"schedule"` // cron spec
	PrioritySports []string      `mapstructure:"priority_sports"`
	Regions        string        `mapstructure:"regions"`
	Markets        string        `mapstructure:"markets"`
	Delay          time.Duration `mapstructure:"delay"`
}

// KafkaConfig holds opportunity alert publishing configuration
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"` // Topic to publish to (arb_opportunities)
}

// AuthConfig holds identity verification configuration. An empty secret
// disables verification (dev mode).
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// PostgresConfig holds bet persistence configuration. An empty DSN disables
// the bets API.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RateLimitConfig holds the fixed-window request limiter configuration
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig loads configuration from file and environment variables. A
// .env file in the working directory is applied first, if present.
func LoadConfig(configPath string) (*Config, error) {
	// Operators inject secrets (API key, JWT secret, DSN) via .env locally.
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("oddsapi.base_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("oddsapi.api_key", "")
	v.SetDefault("oddsapi.timeout", 15*time.Second)

	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 15*time.Minute)

	v.SetDefault("arbitrage.market_key", "h2h")
	v.SetDefault("arbitrage.default_bankroll", 100.0)
	v.SetDefault("arbitrage.default_rounding_unit", 1.0)
	v.SetDefault("arbitrage.require_positive_rounded", true)

	v.SetDefault("warmup.enabled", true)
	v.SetDefault("warmup.schedule", "0 * * * *")
	v.SetDefault("warmup.priority_sports", []string{
		"basketball_nba",
		"americanfootball_nfl",
		"soccer_epl",
		"baseball_mlb",
		"icehockey_nhl",
	})
	v.SetDefault("warmup.regions", "us")
	v.SetDefault("warmup.markets", "h2h")
	v.SetDefault("warmup.delay", time.Second)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "arb_opportunities")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("postgres.dsn", "")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 500)
	v.SetDefault("ratelimit.window", 15*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:5173",
		"http://localhost:3000",
	})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	v.SetEnvPrefix("ARB_FINDER")
	v.AutomaticEnv()
	// Replace . with _ for environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Unmarshal to struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
