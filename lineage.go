package ilirecon

import (
	"fmt"

	"github.com/katalvlaran/lvlath/bfs"
	"github.com/katalvlaran/lvlath/core"
)

// AssembleLineage fuses the three pairwise accepted-match sets into
// per-defect chains (spec.md §4.D). years must be ordered [Y0, Y1, Y2].
// anomalies holds each run's anomaly records (girth welds never
// participate in lineage). It returns an InternalInvariantFailure if
// the result ever violates spec.md §8's lineage-coverage property —
// every input anomaly row appearing in exactly one entry — which would
// indicate a bug in the chain-construction rules above rather than a
// recoverable data condition.
func AssembleLineage(years [3]RunYear, anomalies map[RunYear][]*CanonicalRecord, m01, m12, m02 []Match) ([]LineageEntry, error) {
	idx01 := indexByA(m01)
	idx12 := indexByA(m12)
	idx02 := indexByA(m02)

	recByID := map[string]*CanonicalRecord{}
	for _, recs := range anomalies {
		for _, r := range recs {
			recByID[vertexID(r.RunYear, r.RowIndex)] = r
		}
	}

	g := core.NewGraph(core.WithDirected(true))

	claimedY1 := map[RowIndex]bool{}
	claimedY2 := map[RowIndex]bool{}

	var roots []string

	// Rule 1: every Y0 row starts a chain.
	for _, a := range anomalies[years[0]] {
		aID := vertexID(years[0], a.RowIndex)
		_ = g.AddVertex(aID)
		roots = append(roots, aID)

		m1, hasM01 := idx01[a.RowIndex]
		if !hasM01 {
			if m2, ok := idx02[a.RowIndex]; ok {
				addChainEdge(g, aID, vertexID(years[2], m2.BRowIndex))
				claimedY2[m2.BRowIndex] = true
			}
			continue
		}

		bID := vertexID(years[1], m1.BRowIndex)
		addChainEdge(g, aID, bID)
		claimedY1[m1.BRowIndex] = true

		if m2, ok := idx12[m1.BRowIndex]; ok {
			addChainEdge(g, bID, vertexID(years[2], m2.BRowIndex))
			claimedY2[m2.BRowIndex] = true
		} else if m2, ok := idx02[a.RowIndex]; ok {
			// Chain stalled at Y1; fall back to the direct Y0-Y2 match.
			addChainEdge(g, aID, vertexID(years[2], m2.BRowIndex))
			claimedY2[m2.BRowIndex] = true
		}
	}

	// Rule 2: unclaimed Y1 rows root their own chain.
	for _, b := range anomalies[years[1]] {
		if claimedY1[b.RowIndex] {
			continue
		}
		bID := vertexID(years[1], b.RowIndex)
		_ = g.AddVertex(bID)
		roots = append(roots, bID)

		if m2, ok := idx12[b.RowIndex]; ok {
			addChainEdge(g, bID, vertexID(years[2], m2.BRowIndex))
			claimedY2[m2.BRowIndex] = true
		}
	}

	// Rule 3: unclaimed Y2 rows are single-entry chains.
	for _, c := range anomalies[years[2]] {
		if claimedY2[c.RowIndex] {
			continue
		}
		cID := vertexID(years[2], c.RowIndex)
		_ = g.AddVertex(cID)
		roots = append(roots, cID)
	}

	entries := make([]LineageEntry, 0, len(roots))
	for _, rootID := range roots {
		perRun := walkChain(g, rootID, recByID, years)
		entry := LineageEntry{
			PerRun:     perRun,
			PairScores: pairScores(perRun, years, idx01, idx12, idx02),
		}
		entry.Growth = pairGrowth(perRun, years)
		entry.Status = classifyStatus(rootID, years, perRun)
		entry.Severity = classifySeverity(entry.Growth)
		entries = append(entries, entry)
	}

	if err := checkLineageCoverage(anomalies, entries); err != nil {
		return nil, err
	}

	return entries, nil
}

// checkLineageCoverage verifies spec.md §8's lineage-coverage property:
// every anomaly row handed to AssembleLineage must appear in the
// PerRun map of exactly one LineageEntry. A row appearing zero or more
// than once means the chain-construction rules above let a row slip
// through unclaimed or claimed it twice — an InternalInvariantFailure,
// not a data problem the caller can recover from.
func checkLineageCoverage(anomalies map[RunYear][]*CanonicalRecord, entries []LineageEntry) error {
	seen := map[string]int{}
	for _, e := range entries {
		for y, r := range e.PerRun {
			seen[vertexID(y, r.RowIndex)]++
		}
	}
	for _, recs := range anomalies {
		for _, r := range recs {
			id := vertexID(r.RunYear, r.RowIndex)
			if n := seen[id]; n != 1 {
				return &InternalInvariantFailure{
					Where:  "AssembleLineage",
					Detail: fmt.Sprintf("anomaly row %s appears in %d lineage entries, want exactly 1", id, n),
				}
			}
		}
	}
	return nil
}

func vertexID(year RunYear, idx RowIndex) string {
	return fmt.Sprintf("%d:%d", year, idx)
}

func addChainEdge(g *core.Graph, from, to string) {
	_, _ = g.AddEdge(from, to, 0)
}

func indexByA(matches []Match) map[RowIndex]Match {
	out := make(map[RowIndex]Match, len(matches))
	for _, m := range matches {
		if m.Accepted {
			out[m.ARowIndex] = m
		}
	}
	return out
}

// walkChain follows the graph forward from root up to two hops
// (Y0->Y1->Y2, or Y1->Y2, or an isolated root) and maps each visited
// vertex back to its run and record.
func walkChain(g *core.Graph, rootID string, recByID map[string]*CanonicalRecord, years [3]RunYear) map[RunYear]*CanonicalRecord {
	perRun := map[RunYear]*CanonicalRecord{}
	if r, ok := recByID[rootID]; ok {
		perRun[r.RunYear] = r
	}

	result, err := bfs.BFS(g, rootID, bfs.WithMaxDepth(2))
	if err != nil {
		return perRun
	}
	for _, id := range result.Order {
		if r, ok := recByID[id]; ok {
			perRun[r.RunYear] = r
		}
	}
	return perRun
}

// pairScores reports, for each of the three ordered run pairs, the
// score/components of the accepted match between exactly the two
// records present in perRun — independent of whether that particular
// match was the one chosen to extend the chain (spec.md §4.D).
func pairScores(perRun map[RunYear]*CanonicalRecord, years [3]RunYear, idx01, idx12, idx02 map[RowIndex]Match) map[PairKey]*PairMetric {
	out := map[PairKey]*PairMetric{}

	if a, ok := perRun[years[0]]; ok {
		if b, ok := perRun[years[1]]; ok {
			if m, ok := idx01[a.RowIndex]; ok && m.BRowIndex == b.RowIndex {
				out[PairY0Y1] = &PairMetric{Score: m.Score, Components: m.Components}
			}
		}
		if c, ok := perRun[years[2]]; ok {
			if m, ok := idx02[a.RowIndex]; ok && m.BRowIndex == c.RowIndex {
				out[PairY0Y2] = &PairMetric{Score: m.Score, Components: m.Components}
			}
		}
	}
	if b, ok := perRun[years[1]]; ok {
		if c, ok := perRun[years[2]]; ok {
			if m, ok := idx12[b.RowIndex]; ok && m.BRowIndex == c.RowIndex {
				out[PairY1Y2] = &PairMetric{Score: m.Score, Components: m.Components}
			}
		}
	}
	return out
}

// pairGrowth computes GrowthMetrics for every pair present in perRun
// (spec.md §4.D).
func pairGrowth(perRun map[RunYear]*CanonicalRecord, years [3]RunYear) map[PairKey]*GrowthMetrics {
	out := map[PairKey]*GrowthMetrics{}
	if a, ok := perRun[years[0]]; ok {
		if b, ok := perRun[years[1]]; ok {
			out[PairY0Y1] = growthBetween(a, b)
		}
		if c, ok := perRun[years[2]]; ok {
			out[PairY0Y2] = growthBetween(a, c)
		}
	}
	if b, ok := perRun[years[1]]; ok {
		if c, ok := perRun[years[2]]; ok {
			out[PairY1Y2] = growthBetween(b, c)
		}
	}
	return out
}

// growthBetween computes the growth metrics of spec.md §4.D between
// an earlier (A) and later (B) observation of the same defect. Returns
// nil if either depth reading is missing or the runs are not ordered.
func growthBetween(a, b *CanonicalRecord) *GrowthMetrics {
	if a.DepthPct == nil || b.DepthPct == nil {
		return nil
	}
	deltaYears := float64(b.RunYear - a.RunYear)
	if deltaYears <= 0 {
		return nil
	}

	depthGrowthPct := *b.DepthPct - *a.DepthPct
	annualRate := depthGrowthPct / deltaYears

	g := &GrowthMetrics{
		DeltaYears:          deltaYears,
		DepthGrowthPct:      depthGrowthPct,
		AnnualGrowthRatePct: annualRate,
	}

	var wt *float64
	if b.WallThicknessIn != nil {
		wt = b.WallThicknessIn
	} else {
		wt = a.WallThicknessIn
	}
	if wt != nil {
		depthGrowthIn := depthGrowthPct * (*wt) / 100
		annualDepthGrowthIn := depthGrowthIn / deltaYears
		g.DepthGrowthIn = &depthGrowthIn
		g.AnnualDepthGrowthIn = &annualDepthGrowthIn
	}

	if a.LengthIn != nil && b.LengthIn != nil {
		lg := *b.LengthIn - *a.LengthIn
		alg := lg / deltaYears
		g.LengthGrowthIn = &lg
		g.AnnualLengthGrowthIn = &alg
	}
	if a.WidthIn != nil && b.WidthIn != nil {
		wg := *b.WidthIn - *a.WidthIn
		awg := wg / deltaYears
		g.WidthGrowthIn = &wg
		g.AnnualWidthGrowthIn = &awg
	}

	if annualRate > 0 && *b.DepthPct < 80 {
		ttc := (80 - *b.DepthPct) / annualRate
		g.TimeToCriticalYears = &ttc
	}

	return g
}

// classifyStatus applies spec.md §4.D's status rules, resolving the
// "missing" Open Question narrowly: a chain that started at Y0 and
// never reaches Y2 is a historical row absent from the latest run
// (missing); a chain that started at Y1 keeps new_Y1 regardless of
// whether it reaches Y2; a chain that started at Y2 is new_Y2.
func classifyStatus(rootID string, years [3]RunYear, perRun map[RunYear]*CanonicalRecord) Status {
	rootYear := rootRunYear(rootID)
	switch rootYear {
	case years[0]:
		if _, ok := perRun[years[2]]; ok {
			return StatusMatched
		}
		return StatusMissing
	case years[1]:
		return StatusNewY1
	default:
		return StatusNewY2
	}
}

// rootRunYear recovers the run year encoded in a "year:idx" vertex id.
func rootRunYear(id string) RunYear {
	var year int
	_, _ = fmt.Sscanf(id, "%d:", &year)
	return RunYear(year)
}

// classifySeverity buckets the most recent available growth rate:
// Y1-Y2 (most recent interval) takes priority, then the Y0-Y2
// cross-check, then Y0-Y1.
func classifySeverity(growth map[PairKey]*GrowthMetrics) Severity {
	for _, key := range []PairKey{PairY1Y2, PairY0Y2, PairY0Y1} {
		g, ok := growth[key]
		if !ok || g == nil {
			continue
		}
		switch {
		case g.AnnualGrowthRatePct > 10:
			return SeverityCritical
		case g.AnnualGrowthRatePct >= 5:
			return SeverityModerate
		default:
			return SeverityLow
		}
	}
	return SeverityUnknown
}
