package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/consultbot/core/logger"
)

type catalogFile struct {
	Service []struct {
		Manufacturer string `yaml:"manufacturer"`
		Model        string `yaml:"model"`
		Repair       string `yaml:"repair"`
		Analysis     string `yaml:"analysis"`
	} `yaml:"service"`
	Installation struct {
		Regions []string `yaml:"regions"`
		Rows    []struct {
			Manufacturer string   `yaml:"manufacturer"`
			Model        string   `yaml:"model"`
			Costs        []string `yaml:"costs"`
		} `yaml:"rows"`
	} `yaml:"installation"`
}

// LoadFile reads the catalog from a YAML file. Installation rows must carry
// exactly one cost cell per declared region; the dash marker means the
// service is not offered.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pricing: read catalog file: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("pricing: parse catalog file: %w", err)
	}

	c := &Catalog{regions: append([]string(nil), f.Installation.Regions...)}
	for _, row := range f.Service {
		if row.Manufacturer == "" || row.Model == "" {
			return nil, fmt.Errorf("pricing: service row with empty manufacturer or model")
		}
		c.service = append(c.service, serviceRow{
			Manufacturer: row.Manufacturer,
			Model:        row.Model,
			Cost: ServiceCost{
				Repair:   costValue(row.Repair),
				Analysis: costValue(row.Analysis),
			},
		})
	}
	for _, row := range f.Installation.Rows {
		if len(row.Costs) != len(c.regions) {
			return nil, fmt.Errorf("pricing: model %q has %d cost cells, want %d", row.Model, len(row.Costs), len(c.regions))
		}
		costs := make(map[string]*string, len(c.regions))
		for i, region := range c.regions {
			costs[region] = costValue(row.Costs[i])
		}
		c.install = append(c.install, installRow{
			Manufacturer: row.Manufacturer,
			Model:        row.Model,
			Costs:        costs,
		})
	}

	logger.Info(context.Background(), "pricing", "pricing.load",
		slog.String("status", "ok"),
		slog.String("mode", "file"),
		slog.Int("count", len(c.service)+len(c.install)),
	)
	return c, nil
}
