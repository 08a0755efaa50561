package ilirecon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalRecordPositionPrefersCorrected(t *testing.T) {
	raw, corrected := 100.0, 105.0
	r := &CanonicalRecord{OdometerFt: &raw, CorrectedOdometerFt: &corrected}
	pos, ok := r.Position()
	assert.True(t, ok)
	assert.Equal(t, 105.0, pos)
}

func TestCanonicalRecordPositionFallsBackToRaw(t *testing.T) {
	raw := 100.0
	r := &CanonicalRecord{OdometerFt: &raw}
	pos, ok := r.Position()
	assert.True(t, ok)
	assert.Equal(t, 100.0, pos)
}

func TestCanonicalRecordPositionMissing(t *testing.T) {
	r := &CanonicalRecord{}
	_, ok := r.Position()
	assert.False(t, ok)
}

func TestLineageEntryLatestRecordPrefersY2(t *testing.T) {
	years := [3]RunYear{0, 1, 2}
	e := &LineageEntry{PerRun: map[RunYear]*CanonicalRecord{
		0: {RunYear: 0},
		1: {RunYear: 1},
		2: {RunYear: 2},
	}}
	got := e.LatestRecord(years)
	assert.Equal(t, RunYear(2), got.RunYear)
}

func TestLineageEntryLatestRecordSkipsAbsentYears(t *testing.T) {
	years := [3]RunYear{0, 1, 2}
	e := &LineageEntry{PerRun: map[RunYear]*CanonicalRecord{0: {RunYear: 0}}}
	got := e.LatestRecord(years)
	assert.Equal(t, RunYear(0), got.RunYear)
}

func TestLineageEntryLatestRecordEmpty(t *testing.T) {
	e := &LineageEntry{}
	assert.Nil(t, e.LatestRecord([3]RunYear{0, 1, 2}))
}

func TestFeatureKindString(t *testing.T) {
	assert.Equal(t, "girth_weld", FeatureGirthWeld.String())
	assert.Equal(t, "anomaly", FeatureAnomaly.String())
	assert.Equal(t, "other", FeatureOther.String())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "matched", StatusMatched.String())
	assert.Equal(t, "new_Y1", StatusNewY1.String())
	assert.Equal(t, "new_Y2", StatusNewY2.String())
	assert.Equal(t, "missing", StatusMissing.String())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "moderate", SeverityModerate.String())
	assert.Equal(t, "low", SeverityLow.String())
	assert.Equal(t, "unknown", SeverityUnknown.String())
}

func TestPairKeyString(t *testing.T) {
	assert.Equal(t, "Y0-Y1", PairY0Y1.String())
	assert.Equal(t, "Y1-Y2", PairY1Y2.String())
	assert.Equal(t, "Y0-Y2", PairY0Y2.String())
}
