package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var defaultCountries []byte

var ErrInvalidCountries = errors.New("invalid country configuration")

// CountryConfig describes one country's survey export and agent roster.
type CountryConfig struct {
	Code           string   `yaml:"code"`
	Source         string   `yaml:"source"`
	TimestampField string   `yaml:"timestamp_field"`
	AgentField     string   `yaml:"agent_field"`
	RatingField    string   `yaml:"rating_field"`
	IDField        string   `yaml:"id_field"`
	Roster         []string `yaml:"roster"`
	Separators     []string `yaml:"separators"`
}

type countriesFile struct {
	Countries []CountryConfig `yaml:"countries"`
}

// LoadCountries reads country configuration from path, or the built-in
// configuration when path is empty.
func LoadCountries(path string) ([]CountryConfig, error) {
	if path == "" {
		return ParseCountries(defaultCountries)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read countries file: %w", err)
	}
	return ParseCountries(data)
}

// ParseCountries decodes and validates a YAML country list.
func ParseCountries(data []byte) ([]CountryConfig, error) {
	var f countriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCountries, err)
	}
	for i := range f.Countries {
		if f.Countries[i].TimestampField == "" {
			f.Countries[i].TimestampField = "Timestamp"
		}
	}
	if err := validateCountries(f.Countries); err != nil {
		return nil, err
	}
	return f.Countries, nil
}

func validateCountries(countries []CountryConfig) error {
	if len(countries) == 0 {
		return fmt.Errorf("%w: no countries", ErrInvalidCountries)
	}

	seen := make(map[string]bool, len(countries))
	for _, c := range countries {
		if c.Code == "" {
			return fmt.Errorf("%w: country without code", ErrInvalidCountries)
		}
		if seen[c.Code] {
			return fmt.Errorf("%w: duplicate country %q", ErrInvalidCountries, c.Code)
		}
		seen[c.Code] = true

		required := map[string]string{
			"source":       c.Source,
			"agent_field":  c.AgentField,
			"rating_field": c.RatingField,
			"id_field":     c.IDField,
		}
		for name, v := range required {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%w: %s: %s is required", ErrInvalidCountries, c.Code, name)
			}
		}

		if len(c.Roster) == 0 {
			return fmt.Errorf("%w: %s: empty roster", ErrInvalidCountries, c.Code)
		}
		for _, name := range c.Roster {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("%w: %s: blank roster entry", ErrInvalidCountries, c.Code)
			}
		}
	}
	return nil
}
