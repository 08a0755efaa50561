package ilirecon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "log dist. [ft]", normalizeHeader("  Log Dist.   [FT]\n"))
	assert.Equal(t, "wt [in]", normalizeHeader("WT [in]"))
}

func TestDefaultConfigWeightsSumToOne(t *testing.T) {
	cfg := DefaultConfig()
	sum := cfg.CostWeights.Distance + cfg.CostWeights.Clock + cfg.CostWeights.Feature
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestNewConfigAppliesOptions(t *testing.T) {
	cfg := NewConfig(
		WithDMax(25),
		WithCostThreshold(0.5),
		WithWindow(250, 200),
		WithClusterBins(100, 3),
		WithRiskGrid(50, 250, 0.7),
	)
	assert.Equal(t, 25.0, cfg.DMaxFt)
	assert.Equal(t, 0.5, cfg.CostThreshold)
	assert.Equal(t, 250.0, cfg.WindowSizeFt)
	assert.Equal(t, 200.0, cfg.WindowStepFt)
	assert.Equal(t, 100.0, cfg.ClusterBinWidthFt)
	assert.Equal(t, 3.0, cfg.ClusterThresholdFactor)
	assert.Equal(t, 50.0, cfg.RiskGridStepFt)
	assert.Equal(t, 250.0, cfg.RiskWindowFt)
	assert.Equal(t, 0.7, cfg.RiskThreshold)
}

func TestWithHeaderMapOverride(t *testing.T) {
	custom := map[string]map[RunYear][]string{
		"odometer_ft": {0: {"custom dist"}},
	}
	cfg := NewConfig(WithHeaderMap(custom))
	assert.Equal(t, custom, cfg.HeaderMap)
}
