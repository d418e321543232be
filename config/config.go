package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// GameRules holds the static betting rules for a single game type
type GameRules struct {
	MinWager      int64
	MaxWager      int64
	Multipliers   map[string]float64 // outcome label -> payout multiplier
	RoundDuration time.Duration
}

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Messaging configuration
	NatsURL string

	// Redis configuration (rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Account configuration
	StartingBalance int64

	// Wager intake rate limiting
	WagerRateLimit  int           // max wagers per account per window
	WagerRateWindow time.Duration // rolling window size

	// Settlement worker
	SettleInterval time.Duration

	// Prometheus metrics listener
	MetricsAddr string

	// Per-game betting rules
	Games map[string]GameRules

	// Per-role commission rates, as a fraction of the wagered amount.
	// Roles absent from the table earn nothing.
	CommissionRates map[string]float64

	// Upper bound on the ownership chain walk
	MaxCommissionDepth int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Local development convenience; missing .env is not an error
	_ = godotenv.Load()

	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		NatsURL:     os.Getenv("NATS_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		// Defaults
		StartingBalance: 1000,
		WagerRateLimit:  10,
		WagerRateWindow: 60 * time.Second,
		SettleInterval:  15 * time.Second,
		MetricsAddr:     ":9090",

		Games:           defaultGameRules(),
		CommissionRates: defaultCommissionRates(),

		MaxCommissionDepth: 5,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		if parsed, err := strconv.Atoi(db); err == nil {
			config.RedisDB = parsed
		}
	}
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsed, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsed
		}
	}
	if limit := os.Getenv("WAGER_RATE_LIMIT"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			config.WagerRateLimit = parsed
		}
	}
	if window := os.Getenv("WAGER_RATE_WINDOW_SECONDS"); window != "" {
		if parsed, err := strconv.Atoi(window); err == nil {
			config.WagerRateWindow = time.Duration(parsed) * time.Second
		}
	}
	if interval := os.Getenv("SETTLE_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil {
			config.SettleInterval = time.Duration(parsed) * time.Second
		}
	}
	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		config.MetricsAddr = addr
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// defaultGameRules returns the built-in game table.
// Multipliers apply to the wagered amount; payout = floor(amount * multiplier).
func defaultGameRules() map[string]GameRules {
	return map[string]GameRules{
		"seven_up_down": {
			MinWager: 10,
			MaxWager: 10000,
			Multipliers: map[string]float64{
				"up":   2,
				"down": 2,
				"7":    4,
			},
			RoundDuration: 15 * time.Minute,
		},
		"coin_flip": {
			MinWager: 10,
			MaxWager: 5000,
			Multipliers: map[string]float64{
				"heads": 1.9,
				"tails": 1.9,
			},
			RoundDuration: 5 * time.Minute,
		},
		"lucky_numbers": {
			MinWager: 10,
			MaxWager: 2000,
			Multipliers: map[string]float64{
				"0": 3, "1": 3, "2": 3, "3": 3, "4": 3,
				"5": 3, "6": 3, "7": 3, "8": 3, "9": 3,
			},
			RoundDuration: 15 * time.Minute,
		},
	}
}

// defaultCommissionRates returns the per-role commission table.
// Plain users earn nothing and the super admin is excluded by the propagator.
func defaultCommissionRates() map[string]float64 {
	return map[string]float64{
		"associate_master": 0.03,
		"master":           0.015,
		"senior_master":    0.01,
		"super_master":     0.005,
	}
}
