package ilirecon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func matchedEntry(pos, depth, rate float64) LineageEntry {
	d := depth
	return LineageEntry{
		Status: StatusMatched,
		PerRun: map[RunYear]*CanonicalRecord{
			2: {RunYear: 2, RowIndex: 0, DepthPct: &d, OdometerFt: &pos, CorrectedOdometerFt: &pos},
		},
		Growth: map[PairKey]*GrowthMetrics{
			PairY1Y2: {AnnualGrowthRatePct: rate},
		},
	}
}

func newEntry(status Status, pos float64) LineageEntry {
	p := pos
	return LineageEntry{
		Status: status,
		PerRun: map[RunYear]*CanonicalRecord{
			2: {RunYear: 2, RowIndex: 0, OdometerFt: &p, CorrectedOdometerFt: &p},
		},
	}
}

func TestForecastRiskEmptyEntries(t *testing.T) {
	curve, _ := ForecastRisk(nil, [3]RunYear{0, 1, 2}, DefaultConfig())
	assert.Empty(t, curve.PositionsFt)
}

func TestForecastRiskIdentityRunsHaveZeroComposite(t *testing.T) {
	// Identity scenario (spec.md §8 scenario 1): zero growth everywhere,
	// no emergent entries, so composite risk is 0 at every grid point.
	entries := []LineageEntry{
		matchedEntry(0, 20, 0),
		matchedEntry(1000, 20, 0),
	}
	curve, _ := ForecastRisk(entries, [3]RunYear{0, 1, 2}, DefaultConfig())
	for _, r := range curve.Composite {
		assert.InDelta(t, 0, r, 1e-9)
	}
	assert.Empty(t, curve.Zones)
}

func TestForecastRiskCriticalCountProjection(t *testing.T) {
	// depth 70, rate 1/yr: at horizon 20, projection = 90 >= 80.
	entries := []LineageEntry{matchedEntry(500, 70, 1)}
	curve, _ := ForecastRisk(entries, [3]RunYear{0, 1, 2}, DefaultConfig())
	assert.NotEmpty(t, curve.Critical20y)
	assert.InDelta(t, 1.0, curve.Critical20y[len(curve.Critical20y)/2], 1e-6)
}

func TestForecastRiskDegeneratePositionsWarns(t *testing.T) {
	entries := []LineageEntry{
		matchedEntry(500, 20, 0),
		matchedEntry(500, 25, 1),
	}
	curve, warnings := ForecastRisk(entries, [3]RunYear{0, 1, 2}, DefaultConfig())
	assert.Empty(t, curve.PositionsFt)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, WarningNumericDegeneracy, warnings[0].Kind)
	}
}

func TestForecastRiskCompositeClippedToUnitRange(t *testing.T) {
	entries := []LineageEntry{
		newEntry(StatusNewY1, 100),
		newEntry(StatusNewY2, 110),
		newEntry(StatusNewY1, 120),
		matchedEntry(100, 70, 5),
	}
	curve, _ := ForecastRisk(entries, [3]RunYear{0, 1, 2}, DefaultConfig())
	for _, r := range curve.Composite {
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	}
}
