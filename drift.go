package ilirecon

import "sort"

// DriftCorrection is the result of correcting one target run's
// positions against a baseline using paired girth welds
// (spec.md §4.B). Skipped is true when fewer than two anchor pairs
// were available, in which case every CorrectedOdometerFt simply
// equals OdometerFt.
type DriftCorrection struct {
	Skipped     bool
	Corrections []CorrectionRecord
}

// CorrectDrift pairs baseline and target girth welds sequentially (by
// ascending raw odometer), fits a piecewise-linear correction from
// those anchors, and overwrites CorrectedOdometerFt on every record in
// applyTo (typically the target run's girth welds and anomalies
// together — the correction applies uniformly to every target-run
// position, spec.md §4.B).
func CorrectDrift(baselineWelds, targetWelds []*CanonicalRecord, applyTo []*CanonicalRecord, cfg Config) DriftCorrection {
	f, corrections, skipped := fitDriftCorrection(baselineWelds, targetWelds)
	if skipped {
		return DriftCorrection{Skipped: true}
	}
	for _, rec := range applyTo {
		if rec.OdometerFt == nil {
			continue
		}
		corrected := f.at(*rec.OdometerFt)
		rec.CorrectedOdometerFt = &corrected
	}
	return DriftCorrection{Corrections: corrections}
}

// fitDriftCorrection builds the piecewise-linear correction function
// from paired baseline/target girth-weld positions, without applying
// it anywhere. skipped is true when fewer than two anchor pairs were
// available.
func fitDriftCorrection(baseline, target []*CanonicalRecord) (f *piecewiseLinear, corrections []CorrectionRecord, skipped bool) {
	baseWelds := positionsOf(baseline)
	targetWelds := positionsOf(target)

	sort.Sort(byOdometer(baseWelds))
	sort.Sort(byOdometer(targetWelds))

	k := len(baseWelds)
	if len(targetWelds) < k {
		k = len(targetWelds)
	}

	if k < 2 {
		return nil, nil, true
	}

	// Collapse duplicate target values into one breakpoint whose
	// baseline partner is the mean of the paired baselines
	// (spec.md §4.B "Edge cases").
	type pair struct {
		t, b float64
		n    int
	}
	var pairs []pair
	for i := 0; i < k; i++ {
		t, b := targetWelds[i].ft, baseWelds[i].ft
		if len(pairs) > 0 && pairs[len(pairs)-1].t == t {
			last := &pairs[len(pairs)-1]
			last.b = (last.b*float64(last.n) + b) / float64(last.n+1)
			last.n++
			continue
		}
		pairs = append(pairs, pair{t: t, b: b, n: 1})
	}

	xs := make([]float64, len(pairs))
	ys := make([]float64, len(pairs))
	corrections = make([]CorrectionRecord, len(pairs))
	for i, p := range pairs {
		xs[i] = p.t
		ys[i] = p.b
		corrections[i] = CorrectionRecord{
			GWIndex:    i,
			BaselineFt: p.b,
			TargetFt:   p.t,
			ShiftFt:    p.b - p.t,
		}
	}

	return newPiecewiseLinear(xs, ys), corrections, false
}

type weldPosition struct {
	ft  float64
	rec *CanonicalRecord
}

func positionsOf(records []*CanonicalRecord) []weldPosition {
	out := make([]weldPosition, 0, len(records))
	for _, r := range records {
		if r.OdometerFt == nil {
			continue
		}
		out = append(out, weldPosition{ft: *r.OdometerFt, rec: r})
	}
	return out
}

type byOdometer []weldPosition

func (b byOdometer) Len() int           { return len(b) }
func (b byOdometer) Less(i, j int) bool { return b[i].ft < b[j].ft }
func (b byOdometer) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
