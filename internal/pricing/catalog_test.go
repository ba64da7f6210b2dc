package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalogYAML = `
service:
  - manufacturer: Epson
    model: SC-P8000
    repair: "12000"
    analysis: "3500"
  - manufacturer: Epson
    model: SC-T5400
    repair: "-"
    analysis: "3000"
  - manufacturer: Canon
    model: TX-3000
    repair: "14000"
    analysis: "-"
  - manufacturer: Canon
    model: TM-300
    repair: "-"
    analysis: "-"

installation:
  regions:
    - Москва
    - Регионы
  rows:
    - manufacturer: Epson
      model: SC-P8000
      costs: ["8000", "-"]
`

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o644))
	c, err := LoadFile(path)
	require.NoError(t, err)
	return c
}

func TestManufacturersDeduplicatedInOrder(t *testing.T) {
	c := loadTestCatalog(t)
	assert.Equal(t, []string{"Epson", "Canon"}, c.Manufacturers(KindService))
	assert.Equal(t, []string{"Epson"}, c.Manufacturers(KindInstallation))
}

func TestModelsFilteredByManufacturer(t *testing.T) {
	c := loadTestCatalog(t)
	assert.Equal(t, []string{"SC-P8000", "SC-T5400"}, c.Models(KindService, "Epson"))
	assert.Empty(t, c.Models(KindService, "HP"))
}

func TestServiceCostVariants(t *testing.T) {
	c := loadTestCatalog(t)

	full, ok := c.ServiceCost("SC-P8000")
	require.True(t, ok)
	require.NotNil(t, full.Repair)
	require.NotNil(t, full.Analysis)
	assert.Equal(t, "12000", *full.Repair)
	assert.Equal(t, "3500", *full.Analysis)

	noRepair, ok := c.ServiceCost("SC-T5400")
	require.True(t, ok)
	assert.Nil(t, noRepair.Repair, "dash marker means not offered")
	require.NotNil(t, noRepair.Analysis)

	noAnalysis, ok := c.ServiceCost("TX-3000")
	require.True(t, ok)
	require.NotNil(t, noAnalysis.Repair)
	assert.Nil(t, noAnalysis.Analysis)

	empty, ok := c.ServiceCost("TM-300")
	require.True(t, ok)
	assert.Nil(t, empty.Repair)
	assert.Nil(t, empty.Analysis)

	_, ok = c.ServiceCost("unknown")
	assert.False(t, ok)
}

func TestInstallationCost(t *testing.T) {
	c := loadTestCatalog(t)

	cost, status := c.InstallationCost("SC-P8000", "Москва")
	assert.Equal(t, InstallFound, status)
	assert.Equal(t, "8000", cost)

	_, status = c.InstallationCost("SC-P8000", "Регионы")
	assert.Equal(t, InstallUnavailable, status)

	_, status = c.InstallationCost("SC-P8000", "Сибирь")
	assert.Equal(t, InstallUnavailable, status, "unknown region for a present model")

	_, status = c.InstallationCost("unknown", "Москва")
	assert.Equal(t, InstallNotFound, status)
}

func TestLoadFileRejectsRaggedCostRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
installation:
  regions: [A, B]
  rows:
    - manufacturer: Epson
      model: X
      costs: ["1"]
`), 0o644))
	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestEmptyCatalog(t *testing.T) {
	c := &Catalog{}
	assert.True(t, c.Empty())
	assert.False(t, loadTestCatalog(t).Empty())
}
