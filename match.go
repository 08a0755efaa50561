package ilirecon

import (
	"math"
	"sort"

	"github.com/katalvlaran/lvlath/matrix"
)

// maxFeasibleCells is the practical cell-count threshold above which
// the Matcher switches from one whole-run assignment to the windowed
// strategy of spec.md §4.C ("practical threshold: > ~10^6").
const maxFeasibleCells = 1_000_000

// MatchPair runs the optimal bipartite assignment between two anomaly
// lists from different runs, windowing the input when the full cost
// matrix would be infeasible (spec.md §4.C). a and b must already
// carry CorrectedOdometerFt (Drift Corrector output, or identical to
// OdometerFt for the baseline run).
func MatchPair(a, b []*CanonicalRecord, cfg Config) []Match {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	if int64(len(a))*int64(len(b)) <= maxFeasibleCells {
		return matchWindow(a, b, cfg)
	}
	return matchWindowed(a, b, cfg)
}

// matchWindowed partitions a and b by CorrectedOdometerFt into
// overlapping sliding windows (size cfg.WindowSizeFt, step
// cfg.WindowStepFt), solving each window's assignment in ascending
// position order and excluding rows already matched in an earlier
// window so the 100ft overlap cannot double-match a boundary row.
func matchWindowed(a, b []*CanonicalRecord, cfg Config) []Match {
	lo, hi := positionRange(a, b)
	if hi <= lo {
		return matchWindow(a, b, cfg)
	}

	matchedA := map[RowIndex]bool{}
	matchedB := map[RowIndex]bool{}
	var out []Match

	for start := lo; start < hi; start += cfg.WindowStepFt {
		end := start + cfg.WindowSizeFt
		aw := filterWindow(a, start, end, matchedA)
		bw := filterWindow(b, start, end, matchedB)
		if len(aw) == 0 || len(bw) == 0 {
			continue
		}
		matches := matchWindow(aw, bw, cfg)
		for _, m := range matches {
			out = append(out, m)
			matchedA[m.ARowIndex] = true
			matchedB[m.BRowIndex] = true
		}
	}
	return out
}

func positionRange(a, b []*CanonicalRecord) (lo, hi float64) {
	first := true
	for _, r := range append(append([]*CanonicalRecord{}, a...), b...) {
		pos, ok := r.Position()
		if !ok {
			continue
		}
		if first {
			lo, hi = pos, pos
			first = false
			continue
		}
		if pos < lo {
			lo = pos
		}
		if pos > hi {
			hi = pos
		}
	}
	return lo, hi
}

func filterWindow(records []*CanonicalRecord, start, end float64, matched map[RowIndex]bool) []*CanonicalRecord {
	var out []*CanonicalRecord
	for _, r := range records {
		if matched[r.RowIndex] {
			continue
		}
		pos, ok := r.Position()
		if !ok || pos < start || pos >= end {
			continue
		}
		out = append(out, r)
	}
	return out
}

// matchWindow solves one (sub)problem's cost matrix with the Hungarian
// algorithm and returns a Match for every row the solver actually
// paired to a real column — a row left on a padding column contributes
// no Match at all (spec.md §4.C: "A row unmatched by the solver
// contributes no Match").
func matchWindow(a, b []*CanonicalRecord, cfg Config) []Match {
	n, m := len(a), len(b)
	size := n
	if m > size {
		size = m
	}

	cost, err := matrix.NewDense(size, size)
	if err != nil {
		return nil
	}

	costOf := make([][]float64, n)
	for i, ra := range a {
		costOf[i] = make([]float64, m)
		for j, rb := range b {
			c, _ := pairCost(ra, rb, cfg)
			costOf[i][j] = c
			_ = cost.Set(i, j, c)
		}
	}

	assignment := solveAssignmentSquare(cost, size)

	var out []Match
	for i := 0; i < n; i++ {
		j := assignment[i]
		if j < 0 || j >= m {
			continue // padded column: this row has no partner
		}
		c := costOf[i][j]
		_, comps := pairCost(a[i], b[j], cfg)
		out = append(out, Match{
			ARunYear:   a[i].RunYear,
			ARowIndex:  a[i].RowIndex,
			BRunYear:   b[j].RunYear,
			BRowIndex:  b[j].RowIndex,
			Cost:       c,
			Score:      math.Max(0, 1-c),
			Components: comps,
			Accepted:   c <= cfg.CostThreshold,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ARowIndex < out[j].ARowIndex })
	return out
}

// pairCost is the weighted multi-component cost of spec.md §4.C.
func pairCost(a, b *CanonicalRecord, cfg Config) (float64, MatchComponents) {
	ap, aok := a.Position()
	bp, bok := b.Position()
	if !aok || !bok {
		return 1e6, MatchComponents{}
	}

	d := math.Abs(ap - bp)
	if d > cfg.DMaxFt {
		return 1e6, MatchComponents{}
	}
	dn := clip(d/cfg.DMaxFt, 0, 1)

	var cn float64
	if a.ClockPosition == nil || b.ClockPosition == nil {
		cn = 0.5
	} else {
		cn = circularClockDistance(*a.ClockPosition, *b.ClockPosition) / 6
	}

	f := featureCost(a.FeatureDescription, b.FeatureDescription, cfg)

	cost := cfg.CostWeights.Distance*dn + cfg.CostWeights.Clock*cn + cfg.CostWeights.Feature*f
	return cost, MatchComponents{
		DistanceConfidence: 1 - dn,
		ClockConfidence:    1 - cn,
		FeatureConfidence:  1 - f,
	}
}

// featureCost implements spec.md §4.C's F(a,b): 0 for the same
// sub-kind, 0.3 for a "compatible" cross-classification (by default,
// only within the corrosion family), 1 otherwise.
func featureCost(descA, descB string, cfg Config) float64 {
	catA := categorizeAnomaly(descA)
	catB := categorizeAnomaly(descB)
	if catA == catB {
		return 0
	}
	if cfg.FeatureCompatible(catA, catB) {
		return 0.3
	}
	return 1
}

// solveAssignmentSquare runs the Hungarian algorithm (Kuhn-Munkres,
// O(size^3)) over the size x size cost matrix and returns, for each of
// the first `size` rows, the column it was assigned (0-indexed).
// Callers treat an assignment falling in the padded region (beyond the
// original row/column counts) as "no partner".
//
// No example repo in the retrieval pack provides a weighted bipartite
// assignment solver (katalvlaran-lvlath/flow only implements unweighted
// max-flow, not min-cost matching), so this is a standard-library
// implementation of the well-known potentials-based algorithm.
func solveAssignmentSquare(cost *matrix.Dense, size int) []int {
	const inf = math.MaxFloat64 / 4

	u := make([]float64, size+1)
	v := make([]float64, size+1)
	p := make([]int, size+1)
	way := make([]int, size+1)

	at := func(i, j int) float64 {
		val, _ := cost.At(i, j)
		return val
	}

	for i := 1; i <= size; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, size+1)
		used := make([]bool, size+1)
		for j := range minv {
			minv[j] = inf
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= size; j++ {
				if used[j] {
					continue
				}
				cur := at(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= size; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	result := make([]int, size)
	for i := range result {
		result[i] = -1
	}
	for j := 1; j <= size; j++ {
		if p[j] != 0 {
			result[p[j]-1] = j - 1
		}
	}
	return result
}
