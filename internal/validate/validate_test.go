package validate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/realty-pipeline/pkg/models"
)

func TestPreSpawnGateRejectsMissingFolder(t *testing.T) {
	p := &models.Property{YearBuilt: 1999, LotSqft: 9000}
	err := PreSpawnGate(filepath.Join(t.TempDir(), "missing"), 3, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLOCKED:")
}

func TestPreSpawnGateRejectsZeroImages(t *testing.T) {
	dir := t.TempDir()
	p := &models.Property{YearBuilt: 1999, LotSqft: 9000}
	err := PreSpawnGate(dir, 0, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image count is zero")
}

func TestPreSpawnGateRejectsMissingContextFields(t *testing.T) {
	dir := t.TempDir()
	p := &models.Property{}
	err := PreSpawnGate(dir, 5, p)
	require.Error(t, err)
}

func TestPreSpawnGatePasses(t *testing.T) {
	dir := t.TempDir()
	p := &models.Property{YearBuilt: 1999, LotSqft: 9000}
	require.NoError(t, PreSpawnGate(dir, 5, p))
}

func TestTypeContractsRejectsInvalidEnum(t *testing.T) {
	p := &models.Property{SewerType: "lagoon"}
	err := TypeContracts(p)
	assert.Error(t, err)
}

func TestTypeContractsAcceptsValidEnum(t *testing.T) {
	p := &models.Property{SewerType: models.SewerCity}
	assert.NoError(t, TypeContracts(p))
}

func TestSchemaCoverageFlagsTrueOrphans(t *testing.T) {
	p := &models.Property{Extras: map[string]any{"unexpected_field": 1}}
	assert.Contains(t, SchemaCoverage(p), "unexpected_field")
}

func TestSchemaCoverageIgnoresAssessorInputs(t *testing.T) {
	p := &models.Property{Extras: map[string]any{"assessed_value": 100000.0}}
	assert.Empty(t, SchemaCoverage(p))
}

func TestProvenancePopulatedFlagsMissingSourceID(t *testing.T) {
	p := &models.Property{Provenance: map[string]models.FieldProvenance{
		"price": {SourceID: "", FetchedAt: time.Now()},
	}}
	assert.Contains(t, ProvenancePopulated(p), "price")
}

func TestRoundTripSucceedsForIdenticalRecord(t *testing.T) {
	p := &models.Property{
		FullAddress: "1 MAIN ST",
		Price:       500000,
		Provenance: map[string]models.FieldProvenance{
			"price": {SourceID: "listing_a", FetchedAt: time.Now()},
		},
	}
	require.NoError(t, RoundTrip(p))
}
