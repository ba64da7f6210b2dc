// Package pricing provides the static price catalog behind the guided
// service/installation flow: two reference tables loaded once at startup and
// queried synchronously in memory afterwards.
package pricing

// ServiceKind selects which reference table a flow browses.
type ServiceKind string

const (
	// KindService is the one-off repair/diagnostics table.
	KindService ServiceKind = "service"
	// KindInstallation is the per-region installation table.
	KindInstallation ServiceKind = "installation"
)

// ServiceCost is the price row of a model in the service table. A nil field
// means the table carries the "not offered" marker for that service.
type ServiceCost struct {
	Repair   *string
	Analysis *string
}

// InstallStatus reports the outcome of an installation lookup.
type InstallStatus int

const (
	// InstallFound means the region cell holds a cost.
	InstallFound InstallStatus = iota
	// InstallUnavailable means the model exists but installation is not
	// offered in the requested region.
	InstallUnavailable
	// InstallNotFound means the model is absent from the table.
	InstallNotFound
)

type serviceRow struct {
	Manufacturer string
	Model        string
	Cost         ServiceCost
}

type installRow struct {
	Manufacturer string
	Model        string
	Costs        map[string]*string // region -> cost, nil = unavailable marker
}

// Catalog holds both reference tables. It is immutable after construction
// and safe for concurrent readers.
type Catalog struct {
	service []serviceRow
	install []installRow
	regions []string // region column order of the installation table
}

// Manufacturers returns the distinct manufacturers of the chosen table in
// first-seen order.
func (c *Catalog) Manufacturers(kind ServiceKind) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(m string) {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	if kind == KindInstallation {
		for _, r := range c.install {
			add(r.Manufacturer)
		}
		return out
	}
	for _, r := range c.service {
		add(r.Manufacturer)
	}
	return out
}

// Models returns the models of one manufacturer in table order.
func (c *Catalog) Models(kind ServiceKind, manufacturer string) []string {
	var out []string
	if kind == KindInstallation {
		for _, r := range c.install {
			if r.Manufacturer == manufacturer {
				out = append(out, r.Model)
			}
		}
		return out
	}
	for _, r := range c.service {
		if r.Manufacturer == manufacturer {
			out = append(out, r.Model)
		}
	}
	return out
}

// Regions returns the installation regions in table column order.
func (c *Catalog) Regions() []string {
	return append([]string(nil), c.regions...)
}

// ServiceCost looks up the service-table row of a model. The second return
// value is false when the model is absent.
func (c *Catalog) ServiceCost(model string) (ServiceCost, bool) {
	for _, r := range c.service {
		if r.Model == model {
			return r.Cost, true
		}
	}
	return ServiceCost{}, false
}

// InstallationCost looks up the installation cost of a model in a region.
// The cost is meaningful only when the status is InstallFound. A region
// unknown to the table reports InstallUnavailable for a present model.
func (c *Catalog) InstallationCost(model, region string) (string, InstallStatus) {
	for _, r := range c.install {
		if r.Model != model {
			continue
		}
		if cost, ok := r.Costs[region]; ok && cost != nil {
			return *cost, InstallFound
		}
		return "", InstallUnavailable
	}
	return "", InstallNotFound
}

// Empty reports whether both tables are empty.
func (c *Catalog) Empty() bool {
	return len(c.service) == 0 && len(c.install) == 0
}

// noneMarker is the "not offered" cell value used by the source tables.
const noneMarker = "-"

// costValue normalizes a raw table cell: the dash marker and blank cells
// become nil.
func costValue(raw string) *string {
	if raw == "" || raw == noneMarker {
		return nil
	}
	return &raw
}
