package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/sartorproj/salesforecast/forecast"
)

// Overrides is the TOML model override table:
//
//	default = "arima"
//
//	[series]
//	Paper = "holt-winters"
//
//	[clusters]
//	2 = "ets"
type Overrides struct {
	Default  string            `toml:"default"`
	Series   map[string]string `toml:"series"`
	Clusters map[string]string `toml:"clusters"`
}

// LoadOverrides reads the override table at path. An empty path yields the
// default policy.
func LoadOverrides(path string) (forecast.Policy, error) {
	if path == "" {
		return forecast.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return forecast.Policy{}, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes an override table and converts it to a policy.
func ParseOverrides(data []byte) (forecast.Policy, error) {
	var raw Overrides
	if err := toml.Unmarshal(data, &raw); err != nil {
		return forecast.Policy{}, fmt.Errorf("failed to parse TOML overrides: %w", err)
	}
	return raw.Policy()
}

// Policy converts the table, validating method names and cluster ids.
func (o Overrides) Policy() (forecast.Policy, error) {
	p := forecast.DefaultPolicy()
	if o.Default != "" {
		m, err := forecast.ParseMethod(o.Default)
		if err != nil {
			return forecast.Policy{}, fmt.Errorf("default: %w", err)
		}
		p.Default = m
	}

	if len(o.Series) > 0 {
		p.Overrides = make(map[string]forecast.Method, len(o.Series))
		for series, name := range o.Series {
			m, err := forecast.ParseMethod(name)
			if err != nil {
				return forecast.Policy{}, fmt.Errorf("series %q: %w", series, err)
			}
			p.Overrides[series] = m
		}
	}

	if len(o.Clusters) > 0 {
		p.ClusterOverrides = make(map[int]forecast.Method, len(o.Clusters))
		for key, name := range o.Clusters {
			id, err := strconv.Atoi(key)
			if err != nil || id < 1 {
				return forecast.Policy{}, fmt.Errorf("cluster id %q: must be a positive integer", key)
			}
			m, err := forecast.ParseMethod(name)
			if err != nil {
				return forecast.Policy{}, fmt.Errorf("cluster %d: %w", id, err)
			}
			p.ClusterOverrides[id] = m
		}
	}
	return p, nil
}
