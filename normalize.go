package ilirecon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// RawRow is one row of one run's upstream row set: an unordered,
// string-keyed collection of fields. Parsing the source file/encoding
// into this shape is the upstream collaborator's job (spec.md §1).
type RawRow map[string]string

// RunInput is one run's row set together with its nominal year.
type RunInput struct {
	Year RunYear
	Rows []RawRow
}

// NormalizedRun is the Normalizer's output for one run: every
// CanonicalRecord plus the girth-weld/anomaly split the rest of the
// pipeline needs.
type NormalizedRun struct {
	Year       RunYear
	Records    []*CanonicalRecord
	GirthWelds []*CanonicalRecord
	Anomalies  []*CanonicalRecord
}

// mandatoryCanonicalFields are the canonical fields whose raw header
// must be present somewhere in the run's rows; their absence is a
// fatal SchemaError (spec.md §7). odometer_ft is required because
// every downstream geometric computation depends on position;
// feature_description is required because feature classification
// (girth_weld vs anomaly) has no other signal.
var mandatoryCanonicalFields = []string{"odometer_ft", "feature_description"}

// Normalize maps one run's raw rows into CanonicalRecords, classifying
// feature kind and normalizing clock position along the way
// (spec.md §4.A).
func Normalize(cfg Config, input RunInput) (*NormalizedRun, []Warning, error) {
	lookup := buildHeaderLookup(cfg.HeaderMap, input.Year)

	seenHeaders := map[string]bool{}
	for _, row := range input.Rows {
		for k := range row {
			seenHeaders[normalizeHeader(k)] = true
		}
	}

	for _, field := range mandatoryCanonicalFields {
		if !anyHeaderPresent(lookup[field], seenHeaders) {
			return nil, nil, &SchemaError{
				RunYear: input.Year,
				Field:   field,
				Reason:  "no accepted raw header found in row set",
			}
		}
	}

	run := &NormalizedRun{Year: input.Year}
	var warnings []Warning
	allNullPosition := true

	for i, row := range input.Rows {
		rec := normalizeRow(cfg, lookup, input.Year, RowIndex(i), row)
		if rec.OdometerFt != nil {
			allNullPosition = false
		}
		run.Records = append(run.Records, rec)
		switch rec.FeatureKind {
		case FeatureGirthWeld:
			run.GirthWelds = append(run.GirthWelds, rec)
		case FeatureAnomaly:
			run.Anomalies = append(run.Anomalies, rec)
		}
	}

	if len(input.Rows) > 0 && allNullPosition {
		return nil, nil, &SchemaError{
			RunYear: input.Year,
			Field:   "odometer_ft",
			Reason:  "column is entirely null",
		}
	}

	if len(run.GirthWelds) < 2 {
		warnings = append(warnings, Warning{
			Kind:    WarningInsufficientAnchors,
			RunYear: input.Year,
			Message: fmt.Sprintf("only %d girth weld(s) found; drift correction will be skipped", len(run.GirthWelds)),
		})
	}
	if len(run.Anomalies) == 0 {
		warnings = append(warnings, Warning{
			Kind:    WarningEmptyRun,
			RunYear: input.Year,
			Message: "run has zero anomalies",
		})
	}

	return run, warnings, nil
}

// buildHeaderLookup returns, for every canonical field, the set of
// normalized raw header names accepted for the given run year.
func buildHeaderLookup(headerMap map[string]map[RunYear][]string, year RunYear) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(headerMap))
	for field, byYear := range headerMap {
		accepted := byYear[year]
		set := make(map[string]bool, len(accepted))
		for _, raw := range accepted {
			set[normalizeHeader(raw)] = true
		}
		out[field] = set
	}
	return out
}

func anyHeaderPresent(accepted map[string]bool, seen map[string]bool) bool {
	for h := range accepted {
		if seen[h] {
			return true
		}
	}
	return false
}

// normalizeRow builds one CanonicalRecord from one raw row.
func normalizeRow(cfg Config, lookup map[string]map[string]bool, year RunYear, idx RowIndex, row RawRow) *CanonicalRecord {
	norm := make(map[string]string, len(row))
	for k, v := range row {
		norm[normalizeHeader(k)] = v
	}

	field := func(name string) (string, bool) {
		for h := range lookup[name] {
			if v, ok := norm[h]; ok && strings.TrimSpace(v) != "" {
				return v, true
			}
		}
		return "", false
	}

	rec := &CanonicalRecord{RunYear: year, RowIndex: idx}

	if v, ok := field("feature_description"); ok {
		rec.FeatureDescription = v
	}
	rec.FeatureKind = classifyFeature(rec.FeatureDescription)

	if v, ok := row["feature_id"]; ok && strings.TrimSpace(v) != "" {
		rec.FeatureID = v
	} else {
		rec.FeatureID = fmt.Sprintf("Y%d-%d", year, idx)
	}

	rec.OdometerFt = parseOptionalFloat(field("odometer_ft"))
	rec.CorrectedOdometerFt = rec.OdometerFt

	rec.WallThicknessIn = parseOptionalFloat(field("wall_thickness_in"))
	rec.DepthPct = parseOptionalFloat(field("depth_pct"))
	rec.LengthIn = parseOptionalFloat(field("length_in"))
	rec.WidthIn = parseOptionalFloat(field("width_in"))
	rec.JointLengthFt = parseOptionalFloat(field("joint_length_ft"))
	rec.DistToUSWeldFt = parseOptionalFloat(field("dist_to_us_weld_ft"))
	rec.DistToDSWeldFt = parseOptionalFloat(field("dist_to_ds_weld_ft"))
	rec.ERF = parseOptionalFloat(field("erf"))
	rec.RPR = parseOptionalFloat(field("rpr"))

	if v, ok := field("joint_number"); ok {
		rec.JointNumber = v
	}
	if v, ok := field("id_od"); ok {
		rec.IDOD = v
	}
	if v, ok := row["comments"]; ok {
		rec.Comments = v
	}

	if rec.DepthPct != nil && rec.WallThicknessIn != nil {
		depthIn := (*rec.DepthPct) * (*rec.WallThicknessIn) / 100
		rec.DepthIn = &depthIn
	}

	if v, ok := field("clock_raw"); ok {
		if c, ok := clockFromString(v); ok {
			rec.ClockPosition = &c
		}
	}

	recognized := map[string]bool{}
	for _, set := range lookup {
		for h := range set {
			recognized[h] = true
		}
	}
	recognized["feature_id"] = true
	recognized["comments"] = true

	extra := lo.PickBy(norm, func(k, v string) bool {
		return !recognized[k] && strings.TrimSpace(v) != ""
	})
	if len(extra) > 0 {
		rec.Extra = extra
	}

	return rec
}

// parseOptionalFloat parses a (value, found) pair into a nullable
// float64, returning nil for missing or unparseable input rather than
// failing the row (spec.md §4.A "Failure modes").
func parseOptionalFloat(raw string, ok bool) *float64 {
	if !ok {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	return &v
}
