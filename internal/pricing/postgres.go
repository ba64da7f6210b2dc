package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/consultbot/core/logger"
)

type serviceRecord struct {
	Manufacturer string  `db:"manufacturer"`
	Model        string  `db:"model"`
	RepairCost   *string `db:"repair_cost"`
	AnalysisCost *string `db:"analysis_cost"`
}

type installRecord struct {
	Manufacturer string  `db:"manufacturer"`
	Model        string  `db:"model"`
	Region       string  `db:"region"`
	Cost         *string `db:"cost"`
}

// LoadPostgres reads the catalog from the pricing tables once. Lookups stay
// in memory afterwards; the connection is not retained.
func LoadPostgres(ctx context.Context, db *sqlx.DB) (*Catalog, error) {
	start := time.Now()

	var regions []string
	if err := db.SelectContext(ctx, &regions,
		`SELECT name FROM pricing_regions ORDER BY position`); err != nil {
		return nil, fmt.Errorf("pricing: load regions: %w", err)
	}

	var services []serviceRecord
	if err := db.SelectContext(ctx, &services,
		`SELECT manufacturer, model, repair_cost, analysis_cost FROM pricing_service ORDER BY id`); err != nil {
		return nil, fmt.Errorf("pricing: load service table: %w", err)
	}

	var installs []installRecord
	if err := db.SelectContext(ctx, &installs,
		`SELECT manufacturer, model, region, cost FROM pricing_installation ORDER BY id`); err != nil {
		return nil, fmt.Errorf("pricing: load installation table: %w", err)
	}

	c := &Catalog{regions: regions}
	for _, r := range services {
		cost := ServiceCost{Repair: r.RepairCost, Analysis: r.AnalysisCost}
		if cost.Repair != nil && *cost.Repair == noneMarker {
			cost.Repair = nil
		}
		if cost.Analysis != nil && *cost.Analysis == noneMarker {
			cost.Analysis = nil
		}
		c.service = append(c.service, serviceRow{Manufacturer: r.Manufacturer, Model: r.Model, Cost: cost})
	}

	// One record per (model, region); fold them into one row per model,
	// preserving first-seen model order.
	byModel := make(map[string]*installRow)
	var order []string
	for _, r := range installs {
		row, ok := byModel[r.Model]
		if !ok {
			row = &installRow{
				Manufacturer: r.Manufacturer,
				Model:        r.Model,
				Costs:        make(map[string]*string, len(regions)),
			}
			byModel[r.Model] = row
			order = append(order, r.Model)
		}
		cost := r.Cost
		if cost != nil && *cost == noneMarker {
			cost = nil
		}
		row.Costs[r.Region] = cost
	}
	for _, model := range order {
		c.install = append(c.install, *byModel[model])
	}

	logger.Info(ctx, "pricing", "pricing.load",
		slog.String("status", "ok"),
		slog.String("mode", "postgres"),
		slog.Int("count", len(c.service)+len(c.install)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return c, nil
}
