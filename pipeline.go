package ilirecon

import (
	"context"

	"github.com/alitto/pond"
)

// Job is the three-run input to one reconciliation run.
type Job struct {
	Y0, Y1, Y2 RunInput
}

// Run executes the full pipeline — Normalizer, Drift Corrector,
// Matcher, Lineage Assembler, Cluster Analyzer, Risk Forecaster — and
// assembles the Result. ctx is checked between major stages; a
// cancellation firing mid-run discards all partial work and returns
// Canceled, per spec.md §5.
func Run(ctx context.Context, job Job, cfg Config) (*Result, error) {
	var warnings []Warning

	normY0, w0, err := Normalize(cfg, job.Y0)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, w0...)

	normY1, w1, err := Normalize(cfg, job.Y1)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, w1...)

	normY2, w2, err := Normalize(cfg, job.Y2)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, w2...)

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	driftY1 := CorrectDrift(normY0.GirthWelds, normY1.GirthWelds, allRecords(normY1), cfg)
	if driftY1.Skipped {
		warnings = append(warnings, Warning{Kind: WarningInsufficientAnchors, RunYear: normY1.Year, Message: "drift correction skipped: fewer than two anchor pairs"})
	}
	driftY2 := CorrectDrift(normY0.GirthWelds, normY2.GirthWelds, allRecords(normY2), cfg)
	if driftY2.Skipped {
		warnings = append(warnings, Warning{Kind: WarningInsufficientAnchors, RunYear: normY2.Year, Message: "drift correction skipped: fewer than two anchor pairs"})
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	years := [3]RunYear{normY0.Year, normY1.Year, normY2.Year}
	m01, m12, m02, err := runMatcherPasses(ctx, normY0.Anomalies, normY1.Anomalies, normY2.Anomalies, cfg)
	if err != nil {
		return nil, err
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	anomalies := map[RunYear][]*CanonicalRecord{
		years[0]: normY0.Anomalies,
		years[1]: normY1.Anomalies,
		years[2]: normY2.Anomalies,
	}
	entries, err := AssembleLineage(years, anomalies, m01, m12, m02)
	if err != nil {
		return nil, err
	}

	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}

	clusters, clusterWarnings := DetectClusters(entries, years, cfg)
	warnings = append(warnings, clusterWarnings...)

	risk, riskWarnings := ForecastRisk(entries, years, cfg)
	warnings = append(warnings, riskWarnings...)

	summary := summarize(entries)

	return &Result{
		Summary:       summary,
		Lineage:       entries,
		CorrectionsY1: driftY1.Corrections,
		CorrectionsY2: driftY2.Corrections,
		Clusters:      clusters,
		Risk:          risk,
		Warnings:      warnings,
	}, nil
}

// runMatcherPasses runs the three pairwise Matcher passes concurrently
// over a fixed worker pool, mirroring sixy6e-go-gsf's pond.New(n, 0,
// pond.MinWorkers(n), pond.Context(ctx)) pattern (spec.md §5).
func runMatcherPasses(ctx context.Context, y0, y1, y2 []*CanonicalRecord, cfg Config) (m01, m12, m02 []Match, err error) {
	n := cfg.MatcherParallelism
	if n <= 0 {
		n = 1
	}
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))

	pool.Submit(func() { m01 = MatchPair(y0, y1, cfg) })
	pool.Submit(func() { m12 = MatchPair(y1, y2, cfg) })
	pool.Submit(func() { m02 = MatchPair(y0, y2, cfg) })

	pool.StopAndWait()

	return m01, m12, m02, checkCanceled(ctx)
}

// allRecords concatenates a normalized run's girth welds and anomalies
// into a fresh slice, the full set of positions a drift correction
// applies to.
func allRecords(run *NormalizedRun) []*CanonicalRecord {
	out := make([]*CanonicalRecord, 0, len(run.GirthWelds)+len(run.Anomalies))
	out = append(out, run.GirthWelds...)
	out = append(out, run.Anomalies...)
	return out
}

func checkCanceled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return Canceled{}
	default:
		return nil
	}
}

func summarize(entries []LineageEntry) Summary {
	s := Summary{TotalLineageEntries: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case StatusMatched:
			s.MatchedCount++
		case StatusNewY1:
			s.NewY1Count++
		case StatusNewY2:
			s.NewY2Count++
		case StatusMissing:
			s.MissingCount++
		}
		if e.Severity == SeverityCritical {
			s.CriticalCount++
		}
	}
	return s
}
