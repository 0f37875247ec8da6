package kamerwatch

import (
	"os"
	"slices"

	"github.com/goccy/go-yaml"

	"github.com/kamerwatch/kamerwatch/pkg/errors"
)

// DossierConfig configures one tracked dossier.
type DossierConfig struct {
	// ID is the registry-assigned dossier number, e.g. "25124".
	ID string `yaml:"id"`

	// Terms are free-text search terms swept for publications that
	// declare the dossier without being indexed under it.
	Terms []string `yaml:"terms,omitempty"`
}

// Config is the tracked-dossier configuration. Dossiers present here are
// collected; dossiers removed from it keep their summary but lose their
// collection on the next run.
type Config struct {
	Dossiers []DossierConfig `yaml:"dossiers"`
}

// LoadConfig reads and validates a dossier configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError("dossiers", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapParse("yaml", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks dossier ids for presence and uniqueness.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Dossiers))
	for _, d := range c.Dossiers {
		if d.ID == "" {
			return errors.NewInvalidRecordError("", "dossier configured without id")
		}
		if _, dup := seen[d.ID]; dup {
			return errors.NewInvalidRecordError(d.ID, "dossier configured twice")
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// IDs returns the configured dossier ids in configuration order.
func (c *Config) IDs() []string {
	ids := make([]string, 0, len(c.Dossiers))
	for _, d := range c.Dossiers {
		ids = append(ids, d.ID)
	}
	return ids
}

// Has reports whether a dossier is configured.
func (c *Config) Has(dossierID string) bool {
	return slices.ContainsFunc(c.Dossiers, func(d DossierConfig) bool {
		return d.ID == dossierID
	})
}
