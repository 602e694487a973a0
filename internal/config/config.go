package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	Universe    UniverseConfig `mapstructure:"universe"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AnalysisConfig holds the knobs of the correlation run itself.
type AnalysisConfig struct {
	// Anchors are the subject symbols analyzed by the batch runner.
	Anchors []string `mapstructure:"anchors"`
	// Windows lists the start years evaluated per run. Each window is
	// computed independently, one at a time.
	Windows []int `mapstructure:"windows"`
	// ObservationEnd is the date every series must reach to be usable,
	// as YYYY-MM-DD.
	ObservationEnd string `mapstructure:"observation_end"`
	// TopK bounds the positive and negative result lists per anchor per window.
	TopK int `mapstructure:"top_k"`
	// GapTolerance is the longest run of consecutive missing observations a
	// series may contain and still be accepted.
	GapTolerance int `mapstructure:"gap_tolerance"`
	// RunDivisor feeds the stale-run length formula
	// L = max(3, n/(run_divisor + ln(1+n))).
	RunDivisor float64 `mapstructure:"run_divisor"`
	// MaxWorkers caps the worker pool. Zero means size from host CPUs.
	MaxWorkers int `mapstructure:"max_workers"`
	// CacheTTL bounds how long a prepared series stays cached, e.g. "12h".
	CacheTTL string `mapstructure:"cache_ttl"`
}

type UniverseConfig struct {
	IncludeStocks  bool `mapstructure:"include_stocks"`
	IncludeETFs    bool `mapstructure:"include_etfs"`
	IncludeIndices bool `mapstructure:"include_indices"`
	// SymbolsFile is an optional newline-delimited allow list merged into
	// the universe.
	SymbolsFile string `mapstructure:"symbols_file"`
	// ExclusionsFile is an optional newline-delimited deny list; symbols
	// flagged as degenerate during a run are appended to it.
	ExclusionsFile string `mapstructure:"exclusions_file"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects configurations the run must not proceed with. These are
// the only fatal conditions in the system besides an unreachable series store.
func (c *Config) Validate() error {
	if len(c.Analysis.Windows) == 0 {
		return errors.New("at least one correlation window must be configured")
	}
	for _, year := range c.Analysis.Windows {
		if year < 1900 || year > 2200 {
			return fmt.Errorf("unknown correlation window %d", year)
		}
	}
	if _, err := time.Parse("2006-01-02", c.Analysis.ObservationEnd); err != nil {
		return fmt.Errorf("invalid observation_end date: %w", err)
	}
	if c.Analysis.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.Analysis.TopK)
	}
	if c.Analysis.GapTolerance < 2 {
		return fmt.Errorf("gap_tolerance must be at least 2, got %d", c.Analysis.GapTolerance)
	}
	if c.Analysis.RunDivisor <= 0 {
		return fmt.Errorf("run_divisor must be positive, got %v", c.Analysis.RunDivisor)
	}
	if c.Analysis.MaxWorkers < 0 {
		return fmt.Errorf("max_workers must not be negative, got %d", c.Analysis.MaxWorkers)
	}
	if c.Analysis.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Analysis.CacheTTL); err != nil {
			return fmt.Errorf("invalid cache_ttl duration: %w", err)
		}
	}
	return nil
}

// ObservationEndDate returns the parsed observation_end value. Validate has
// already confirmed it parses.
func (c *Config) ObservationEndDate() time.Time {
	t, _ := time.Parse("2006-01-02", c.Analysis.ObservationEnd)
	return t
}

// CacheTTLDuration returns the parsed cache_ttl value.
func (c *Config) CacheTTLDuration() time.Duration {
	if c.Analysis.CacheTTL == "" {
		return 12 * time.Hour
	}
	d, _ := time.ParseDuration(c.Analysis.CacheTTL)
	return d
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "corrseek")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("analysis.anchors", []string{})
	viper.SetDefault("analysis.windows", []int{2010, 2018, 2021, 2022, 2023})
	viper.SetDefault("analysis.observation_end", "2023-06-02")
	viper.SetDefault("analysis.top_k", 100)
	viper.SetDefault("analysis.gap_tolerance", 10)
	viper.SetDefault("analysis.run_divisor", 35.0)
	viper.SetDefault("analysis.max_workers", 0)
	viper.SetDefault("analysis.cache_ttl", "12h")

	viper.SetDefault("universe.include_stocks", true)
	viper.SetDefault("universe.include_etfs", false)
	viper.SetDefault("universe.include_indices", false)
	viper.SetDefault("universe.symbols_file", "")
	viper.SetDefault("universe.exclusions_file", "")
}
