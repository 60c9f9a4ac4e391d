package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/realty-pipeline/internal/config"
	"github.com/rawblock/realty-pipeline/pkg/models"
)

func testCSVConfig(t *testing.T, dataDir string) *config.Config {
	t.Helper()
	csvPath := filepath.Join(dataDir, "properties.csv")
	body := "street,city,state,zip,price,price_num,beds,baths,sqft,price_per_sqft,full_address\n" +
		"1 Main St,Austin,TX,78701,450000,450000,4,2.5,2400,187.5,\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(body), 0o644))

	return &config.Config{
		Strict:     false,
		KillSwitch: config.KillSwitchConfig{UnknownHOAFailsHard: true},
		Extraction: config.ExtractionConfig{PropertyConcurrency: 2, MaxImageDimension: 1024, HammingThreshold: 8},
		Cost: config.CostConfig{
			DownPaymentPct: 0.2, AnnualInterestPct: 0.065, LoanTermYears: 30,
			InsuranceRatePct: 0.0035, DefaultTaxRatePct: 0.02, MonthlyUtilities: 200,
		},
		Circuit: config.CircuitConfig{FailureThreshold: 3},
		Store: config.StoreConfig{
			DataDir: dataDir, ImagesDir: filepath.Join(dataDir, "images"),
			ReportsDir: filepath.Join(dataDir, "reports"),
		},
		InputCSV:  csvPath,
		OutputCSV: filepath.Join(dataDir, "ranked.csv"),
	}
}

func TestRunProcessesSingleAddressAgainstFakes(t *testing.T) {
	dir := t.TempDir()
	cfg := testCSVConfig(t, dir)

	summary, err := Run(context.Background(), Options{
		Config:    cfg,
		Addresses: []string{"1 Main St, Austin, TX 78701"},
		Fakes:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)
}

func TestRunAllProcessesEveryCSVRowAgainstFakes(t *testing.T) {
	dir := t.TempDir()
	cfg := testCSVConfig(t, dir)

	summary, err := Run(context.Background(), Options{
		Config: cfg,
		All:    true,
		Fakes:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)

	b, err := os.ReadFile(cfg.OutputCSV)
	require.NoError(t, err)
	assert.Contains(t, string(b), "full_address")
}

func TestRunProducesAReportFileForReachedSynthesis(t *testing.T) {
	dir := t.TempDir()
	cfg := testCSVConfig(t, dir)

	_, err := Run(context.Background(), Options{
		Config: cfg,
		All:    true,
		Fakes:  true,
	})
	require.NoError(t, err)

	hash := models.AddressHash(models.NormalizeAddress("1 Main St, Austin, TX 78701"))
	_, statErr := os.Stat(filepath.Join(cfg.Store.ReportsDir, hash+".txt"))
	assert.NoError(t, statErr)
}
