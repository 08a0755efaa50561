package ilirecon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func weld(year RunYear, idx RowIndex, ft float64) *CanonicalRecord {
	v := ft
	return &CanonicalRecord{
		RunYear:            year,
		RowIndex:           idx,
		FeatureKind:        FeatureGirthWeld,
		FeatureDescription: "Girth Weld",
		OdometerFt:         &v,
	}
}

func TestCorrectDriftSkippedBelowTwoAnchors(t *testing.T) {
	base := []*CanonicalRecord{weld(0, 0, 1000)}
	target := []*CanonicalRecord{weld(1, 0, 1005)}
	result := CorrectDrift(base, target, target, DefaultConfig())
	assert.True(t, result.Skipped)
}

func TestCorrectDriftIdentityIsNoOp(t *testing.T) {
	// Correcting a run against itself (T = B) yields f = identity and
	// zero shifts everywhere (spec.md §8 round-trip property).
	base := []*CanonicalRecord{weld(0, 0, 1000), weld(0, 1, 2000), weld(0, 2, 3000)}
	target := []*CanonicalRecord{weld(0, 0, 1000), weld(0, 1, 2000), weld(0, 2, 3000)}
	result := CorrectDrift(base, target, target, DefaultConfig())
	assert.False(t, result.Skipped)
	for _, c := range result.Corrections {
		assert.InDelta(t, 0, c.ShiftFt, 1e-9)
	}
	for _, rec := range target {
		assert.InDelta(t, *rec.OdometerFt, *rec.CorrectedOdometerFt, 1e-9)
	}
}

func TestCorrectDriftUniformShift(t *testing.T) {
	// Pure drift scenario (spec.md §8 scenario 2): Y1 = Y0 + 5ft
	// uniformly, with two girth welds as anchors.
	base := []*CanonicalRecord{weld(0, 0, 1000), weld(0, 1, 2000)}
	target := []*CanonicalRecord{weld(1, 0, 1005), weld(1, 1, 2005)}

	anomY1 := weld(1, 2, 1505)
	anomY1.FeatureKind = FeatureAnomaly

	applyTo := append(append([]*CanonicalRecord{}, target...), anomY1)
	result := CorrectDrift(base, target, applyTo, DefaultConfig())
	assert.False(t, result.Skipped)

	assert.InDelta(t, 1000, *target[0].CorrectedOdometerFt, 1e-9)
	assert.InDelta(t, 2000, *target[1].CorrectedOdometerFt, 1e-9)
	assert.InDelta(t, 1500, *anomY1.CorrectedOdometerFt, 1e-9)
}

func TestCorrectDriftMonotonicity(t *testing.T) {
	base := []*CanonicalRecord{weld(0, 0, 0), weld(0, 1, 1000), weld(0, 2, 2000)}
	target := []*CanonicalRecord{weld(1, 0, 10), weld(1, 1, 980), weld(1, 2, 2100)}

	a := weld(1, 3, 100)
	b := weld(1, 4, 900)
	a.FeatureKind, b.FeatureKind = FeatureAnomaly, FeatureAnomaly

	applyTo := append(append([]*CanonicalRecord{}, target...), a, b)
	CorrectDrift(base, target, applyTo, DefaultConfig())

	assert.LessOrEqual(t, *a.CorrectedOdometerFt, *b.CorrectedOdometerFt)
}
