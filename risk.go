package ilirecon

import "math"

// riskPoint is one matched entry's position, latest depth and most
// recent growth rate, as used by the local-growth and critical-count
// projections (spec.md §4.F).
type riskPoint struct {
	pos   float64
	depth float64
	rate  float64
}

// ForecastRisk evaluates emergence density, local growth, and the
// 20-year critical-count projection on a regular position grid (no
// other projection horizon is computed),
// then combines them into a composite risk curve and flags contiguous
// high-risk zones (spec.md §4.F). years must be ordered [Y0, Y1, Y2].
// When every observed position coincides, the grid would collapse to a
// single point and density/growth estimation degenerates, so the call
// returns an empty RiskCurve plus a NumericDegeneracyWarning instead
// (spec.md §7).
func ForecastRisk(entries []LineageEntry, years [3]RunYear, cfg Config) (RiskCurve, []Warning) {
	var matched []riskPoint
	var emergencePositions []float64
	var allPositions []float64

	for i := range entries {
		rec := entries[i].LatestRecord(years)
		if rec == nil {
			continue
		}
		pos, ok := rec.Position()
		if !ok {
			continue
		}
		allPositions = append(allPositions, pos)

		switch entries[i].Status {
		case StatusNewY1, StatusNewY2:
			emergencePositions = append(emergencePositions, pos)
		case StatusMatched:
			if rec.DepthPct == nil {
				continue
			}
			g := latestGrowth(entries[i].Growth)
			if g == nil {
				continue
			}
			matched = append(matched, riskPoint{pos: pos, depth: *rec.DepthPct, rate: g.AnnualGrowthRatePct})
		}
	}

	if len(allPositions) == 0 {
		return RiskCurve{}, nil
	}

	minPos, maxPos := allPositions[0], allPositions[0]
	for _, p := range allPositions[1:] {
		if p < minPos {
			minPos = p
		}
		if p > maxPos {
			maxPos = p
		}
	}

	if maxPos == minPos && len(allPositions) > 1 {
		return RiskCurve{}, []Warning{{
			Kind:    WarningNumericDegeneracy,
			Message: "all observed positions coincide; risk forecast returned empty",
		}}
	}

	step := cfg.RiskGridStepFt
	nGrid := int((maxPos-minPos)/step) + 1
	grid := make([]float64, nGrid)
	for i := range grid {
		grid[i] = minPos + float64(i)*step
	}

	emergence := emergenceDensity(grid, emergencePositions)
	growth := localGrowth(grid, matched, cfg.RiskWindowFt)
	critical20y := normalizeToMax(criticalCount(grid, matched, cfg.RiskWindowFt, 20))

	composite := make([]float64, nGrid)
	for i := range grid {
		r := 0.4*emergence[i] + 0.3*growth[i] + 0.3*critical20y[i]
		composite[i] = clip(r, 0, 1)
	}

	curve := RiskCurve{
		PositionsFt: grid,
		Emergence:   emergence,
		Growth:      growth,
		Critical20y: critical20y,
		Composite:   composite,
	}
	curve.Zones = detectRiskZones(grid, composite, cfg.RiskThreshold)
	return curve, nil
}

// emergenceDensity is E(x): a Gaussian KDE over newly-appeared
// positions when there are at least 3 of them, else the single-Gaussian
// fallback centered on their mean (spec.md §4.F).
func emergenceDensity(grid, positions []float64) []float64 {
	raw := make([]float64, len(grid))
	switch {
	case len(positions) >= 3:
		bw := silvermanBandwidth(positions)
		for i, x := range grid {
			raw[i] = gaussianKDE(positions, bw, x)
		}
	case len(positions) > 0:
		mu := mean(positions)
		for i, x := range grid {
			z := (x - mu) / 500
			raw[i] = math.Exp(-0.5 * z * z)
		}
	}
	return normalizeToMax(raw)
}

// localGrowth is G(x): the average annual_growth_rate_pct across
// matched entries within +-windowFt of x, normalized to the grid
// maximum (spec.md §4.F).
func localGrowth(grid []float64, matched []riskPoint, windowFt float64) []float64 {
	raw := make([]float64, len(grid))
	for i, x := range grid {
		var rates []float64
		for _, p := range matched {
			if p.pos >= x-windowFt && p.pos <= x+windowFt {
				rates = append(rates, p.rate)
			}
		}
		raw[i] = mean(rates)
	}
	return normalizeToMax(raw)
}

// criticalCount is K_h(x): the count of matched entries within
// +-windowFt of x whose depth projected h years forward reaches the
// 80% critical threshold (spec.md §4.F).
func criticalCount(grid []float64, matched []riskPoint, windowFt, horizonYears float64) []float64 {
	raw := make([]float64, len(grid))
	for i, x := range grid {
		n := 0
		for _, p := range matched {
			if p.pos < x-windowFt || p.pos > x+windowFt {
				continue
			}
			if p.depth+p.rate*horizonYears >= 80 {
				n++
			}
		}
		raw[i] = float64(n)
	}
	return raw
}

// latestGrowth returns the most recent available GrowthMetrics,
// preferring Y1-Y2, then Y0-Y2, then Y0-Y1 — the same priority used
// for severity classification.
func latestGrowth(growth map[PairKey]*GrowthMetrics) *GrowthMetrics {
	for _, key := range []PairKey{PairY1Y2, PairY0Y2, PairY0Y1} {
		if g, ok := growth[key]; ok && g != nil {
			return g
		}
	}
	return nil
}

// detectRiskZones merges consecutive grid points whose composite risk
// meets threshold into contiguous RiskZones (spec.md §4.F).
func detectRiskZones(grid, composite []float64, threshold float64) []RiskZone {
	var zones []RiskZone
	i := 0
	for i < len(grid) {
		if composite[i] < threshold {
			i++
			continue
		}
		start := i
		maxRisk := composite[i]
		for i < len(grid) && composite[i] >= threshold {
			if composite[i] > maxRisk {
				maxRisk = composite[i]
			}
			i++
		}
		zones = append(zones, RiskZone{
			StartFt: grid[start],
			EndFt:   grid[i-1],
			MaxRisk: maxRisk,
		})
	}
	return zones
}
