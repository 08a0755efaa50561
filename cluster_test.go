package ilirecon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clusterEntry(pos float64, sev Severity) LineageEntry {
	p := pos
	d := 10.0
	return LineageEntry{
		Status:   StatusMatched,
		Severity: sev,
		PerRun: map[RunYear]*CanonicalRecord{
			2: {RunYear: 2, RowIndex: 0, OdometerFt: &p, CorrectedOdometerFt: &p, DepthPct: &d},
		},
	}
}

func TestDetectClustersNoEntries(t *testing.T) {
	clusters, _ := DetectClusters(nil, [3]RunYear{0, 1, 2}, DefaultConfig())
	assert.Empty(t, clusters)
}

func TestDetectClustersFindsDensePacket(t *testing.T) {
	// Scenario 6 (spec.md §8): uniform background plus a packed region
	// exceeding 2*mean bin count.
	cfg := NewConfig(WithClusterBins(200, 2.0))
	var entries []LineageEntry

	for i := 0; i < 50; i++ {
		entries = append(entries, clusterEntry(float64(i)*200, SeverityLow))
	}
	for i := 0; i < 20; i++ {
		entries = append(entries, clusterEntry(5000+float64(i)*20, SeverityModerate))
	}

	clusters, _ := DetectClusters(entries, [3]RunYear{0, 1, 2}, cfg)
	assert.NotEmpty(t, clusters)

	found := false
	for _, c := range clusters {
		if c.StartFt <= 5000 && c.EndFt >= 5400 {
			found = true
		}
	}
	assert.True(t, found, "expected a cluster spanning the packed region")
}

func TestDetectClustersSingleBinGapDoesNotMerge(t *testing.T) {
	// spec.md §4.E: "a single-bin gap does not merge clusters." Two hot
	// packets separated by exactly one cold bin must stay two clusters.
	cfg := NewConfig(WithClusterBins(200, 2.0))
	var entries []LineageEntry

	for i := 0; i < 50; i++ {
		entries = append(entries, clusterEntry(float64(i)*200, SeverityLow))
	}
	for i := 0; i < 20; i++ {
		entries = append(entries, clusterEntry(5000+float64(i)*20, SeverityModerate))
	}
	for i := 0; i < 20; i++ {
		// One bin width (200ft) beyond the first packet's bins, leaving
		// bin [5400,5600) cold (only the background point at 5400)
		// between the two packed regions.
		entries = append(entries, clusterEntry(5600+float64(i)*20, SeverityModerate))
	}

	clusters, _ := DetectClusters(entries, [3]RunYear{0, 1, 2}, cfg)

	packets := 0
	for _, c := range clusters {
		if c.StartFt >= 5000 && c.EndFt <= 6000 {
			packets++
		}
	}
	assert.Equal(t, 2, packets, "the two packed regions separated by one cold bin must remain distinct clusters")
}

func TestDetectClustersDegeneratePositionsWarns(t *testing.T) {
	entries := []LineageEntry{
		clusterEntry(500, SeverityLow),
		clusterEntry(500, SeverityLow),
		clusterEntry(500, SeverityModerate),
	}
	clusters, warnings := DetectClusters(entries, [3]RunYear{0, 1, 2}, DefaultConfig())
	assert.Empty(t, clusters)
	if assert.Len(t, warnings, 1) {
		assert.Equal(t, WarningNumericDegeneracy, warnings[0].Kind)
	}
}

func TestModeSeverityTieBreak(t *testing.T) {
	counts := map[Severity]int{SeverityLow: 2, SeverityCritical: 2}
	assert.Equal(t, SeverityCritical, modeSeverity(counts))

	counts2 := map[Severity]int{SeverityModerate: 1}
	assert.Equal(t, SeverityModerate, modeSeverity(counts2))
}
