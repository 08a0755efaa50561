package ilirecon

import (
	"github.com/samber/lo"
)

// clusterPoint is one latest-observation anomaly placed on the
// odometer line for density binning.
type clusterPoint struct {
	pos      float64
	depth    float64
	severity Severity
}

// DetectClusters bins the pipeline's latest-available anomaly records
// by position and merges contiguous hot bins into DensityClusters
// (spec.md §4.E). years must be ordered [Y0, Y1, Y2]. When every
// candidate position coincides, the histogram would collapse into a
// single degenerate bin, so the call returns no clusters plus a
// NumericDegeneracyWarning instead (spec.md §7).
func DetectClusters(entries []LineageEntry, years [3]RunYear, cfg Config) ([]DensityCluster, []Warning) {
	var points []clusterPoint
	for i := range entries {
		rec := entries[i].LatestRecord(years)
		if rec == nil {
			continue
		}
		pos, ok := rec.Position()
		if !ok {
			continue
		}
		depth := 0.0
		if rec.DepthPct != nil {
			depth = *rec.DepthPct
		}
		points = append(points, clusterPoint{pos: pos, depth: depth, severity: entries[i].Severity})
	}
	if len(points) == 0 {
		return nil, nil
	}

	width := cfg.ClusterBinWidthFt
	minPos, maxPos := points[0].pos, points[0].pos
	for _, p := range points[1:] {
		if p.pos < minPos {
			minPos = p.pos
		}
		if p.pos > maxPos {
			maxPos = p.pos
		}
	}
	if maxPos == minPos && len(points) > 1 {
		return nil, []Warning{{
			Kind:    WarningNumericDegeneracy,
			Message: "all anomaly positions coincide; cluster detection returned empty",
		}}
	}
	nBins := int((maxPos-minPos)/width) + 1

	byBin := lo.GroupBy(points, func(p clusterPoint) int {
		return int((p.pos - minPos) / width)
	})

	counts := make([]int, nBins)
	for bin, pts := range byBin {
		counts[bin] = len(pts)
	}

	meanCount := lo.Mean(lo.Map(counts, func(c int, _ int) float64 { return float64(c) }))
	threshold := meanCount * cfg.ClusterThresholdFactor

	hot := make([]bool, nBins)
	for bin, c := range counts {
		hot[bin] = float64(c) >= threshold
	}

	var clusters []DensityCluster
	bin := 0
	for bin < nBins {
		if !hot[bin] {
			bin++
			continue
		}
		start := bin
		end := bin
		for end+1 < nBins && hot[end+1] {
			end++
		}
		clusters = append(clusters, buildCluster(byBin, start, end, minPos, width))
		bin = end + 1
	}

	return clusters, nil
}

func buildCluster(byBin map[int][]clusterPoint, start, end int, minPos, width float64) DensityCluster {
	var all []clusterPoint
	for b := start; b <= end; b++ {
		all = append(all, byBin[b]...)
	}

	depths := lo.Map(all, func(p clusterPoint, _ int) float64 { return p.depth })

	severityCounts := map[Severity]int{}
	for _, p := range all {
		severityCounts[p.severity]++
	}

	return DensityCluster{
		StartFt:      minPos + float64(start)*width,
		EndFt:        minPos + float64(end+1)*width,
		AnomalyCount: len(all),
		MeanDepthPct: lo.Mean(depths),
		ModeSeverity: modeSeverity(severityCounts),
	}
}

// modeSeverity picks the most frequent severity, breaking ties by
// criticality (critical > moderate > low > unknown), spec.md §4.E.
func modeSeverity(counts map[Severity]int) Severity {
	priority := []Severity{SeverityCritical, SeverityModerate, SeverityLow, SeverityUnknown}
	best := SeverityUnknown
	bestCount := -1
	bestRank := len(priority)
	for sev, n := range counts {
		rank := indexOf(priority, sev)
		if n > bestCount || (n == bestCount && rank < bestRank) {
			best = sev
			bestCount = n
			bestRank = rank
		}
	}
	return best
}

func indexOf(xs []Severity, x Severity) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return len(xs)
}
