// Package config loads pipeline settings from the environment (and an
// optional .env file) and the model override table from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sartorproj/salesforecast/timeseries"
)

// Config holds the settings of one pipeline run.
type Config struct {
	InputPath string
	Sheet     string
	OutputDir string

	WindowStart timeseries.Period
	WindowEnd   timeseries.Period

	SplitFraction float64
	Alpha         float64
	Workers       int
	FitTimeout    time.Duration
	TopExplore    int
	TopEvaluate   int
	Horizon       int
	ClusterK      int

	// UnifyDifferencing pins ARIMA's d to the stationarity analyzer's
	// decision instead of letting the search choose its own.
	UnifyDifferencing bool
	DayFirst          bool

	OverridesPath string

	LogLevel  string
	LogPretty bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		InputPath:         getEnv("SALES_INPUT", "data/supermarket.xlsx"),
		Sheet:             getEnv("SALES_SHEET", ""),
		OutputDir:         getEnv("OUTPUT_DIR", "out"),
		SplitFraction:     getEnvAsFloat("SPLIT_FRACTION", 0.7),
		Alpha:             getEnvAsFloat("KPSS_ALPHA", 0.05),
		Workers:           getEnvAsInt("WORKERS", 4),
		FitTimeout:        getEnvAsDuration("FIT_TIMEOUT", 2*time.Minute),
		TopExplore:        getEnvAsInt("TOP_EXPLORE", 10),
		TopEvaluate:       getEnvAsInt("TOP_EVALUATE", 3),
		Horizon:           getEnvAsInt("FORECAST_HORIZON", 12),
		ClusterK:          getEnvAsInt("CLUSTER_K", 0),
		UnifyDifferencing: getEnvAsBool("UNIFY_DIFFERENCING", false),
		DayFirst:          getEnvAsBool("DAY_FIRST", false),
		OverridesPath:     getEnv("MODEL_OVERRIDES", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getEnvAsBool("LOG_PRETTY", false),
	}

	var err error
	if cfg.WindowStart, err = getEnvAsPeriod("WINDOW_START", timeseries.CanonicalStart); err != nil {
		return nil, err
	}
	if cfg.WindowEnd, err = getEnvAsPeriod("WINDOW_END", timeseries.CanonicalEnd); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration Load yields with an empty environment.
func Default() *Config {
	return &Config{
		InputPath:     "data/supermarket.xlsx",
		OutputDir:     "out",
		WindowStart:   timeseries.CanonicalStart,
		WindowEnd:     timeseries.CanonicalEnd,
		SplitFraction: 0.7,
		Alpha:         0.05,
		Workers:       4,
		FitTimeout:    2 * time.Minute,
		TopExplore:    10,
		TopEvaluate:   3,
		Horizon:       12,
		LogLevel:      "info",
	}
}

// Validate checks ranges and required fields.
func (c *Config) Validate() error {
	var errs []error
	if c.InputPath == "" {
		errs = append(errs, errors.New("SALES_INPUT is required"))
	}
	if c.WindowEnd.Before(c.WindowStart) {
		errs = append(errs, fmt.Errorf("window %s..%s: %w", c.WindowStart, c.WindowEnd, timeseries.ErrEmptyRange))
	}
	if c.SplitFraction <= 0 || c.SplitFraction >= 1 {
		errs = append(errs, fmt.Errorf("SPLIT_FRACTION must be in (0, 1), got %g", c.SplitFraction))
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		errs = append(errs, fmt.Errorf("KPSS_ALPHA must be in (0, 1), got %g", c.Alpha))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("WORKERS must be positive, got %d", c.Workers))
	}
	if c.FitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FIT_TIMEOUT must be positive, got %s", c.FitTimeout))
	}
	if c.TopEvaluate < 1 {
		errs = append(errs, fmt.Errorf("TOP_EVALUATE must be positive, got %d", c.TopEvaluate))
	}
	if c.Horizon < 1 {
		errs = append(errs, fmt.Errorf("FORECAST_HORIZON must be positive, got %d", c.Horizon))
	}
	if c.ClusterK < 0 {
		errs = append(errs, fmt.Errorf("CLUSTER_K must not be negative, got %d", c.ClusterK))
	}
	return errors.Join(errs...)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsPeriod is strict: a malformed window is an error, not a default.
func getEnvAsPeriod(key string, defaultValue timeseries.Period) (timeseries.Period, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	p, err := timeseries.ParsePeriod(value)
	if err != nil {
		return timeseries.Period{}, fmt.Errorf("%s: %w", key, err)
	}
	return p, nil
}
