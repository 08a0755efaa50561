package ilirecon

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	girthWeldPattern = regexp.MustCompile(`(?i)^(girth\s*weld|girthweld|gw)$`)
	anomalyPattern   = regexp.MustCompile(`(?i)metal\s*loss|corrosion|cluster|dent|crack|seam\s*weld\s*anomaly`)
)

// classifyFeature derives a FeatureKind from a raw description,
// precedence girth_weld > anomaly > other (spec.md §3/§4.A).
func classifyFeature(description string) FeatureKind {
	d := strings.TrimSpace(description)
	if girthWeldPattern.MatchString(d) {
		return FeatureGirthWeld
	}
	if anomalyPattern.MatchString(d) {
		return FeatureAnomaly
	}
	return FeatureOther
}

// FeatureCategory is the Matcher's finer-grained classification of an
// anomaly description, used for the feature-comparison cost term
// (spec.md §4.C).
type FeatureCategory int

const (
	CategoryMetalLoss FeatureCategory = iota
	CategoryCorrosion
	CategoryCluster
	CategoryDent
	CategorySeamWeldDent
	CategoryOther
)

var (
	metalLossPattern    = regexp.MustCompile(`(?i)metal\s*loss`)
	corrosionPattern    = regexp.MustCompile(`(?i)corrosion`)
	clusterPattern      = regexp.MustCompile(`(?i)cluster`)
	seamWeldDentPattern = regexp.MustCompile(`(?i)seam\s*weld.*dent`)
	dentPattern         = regexp.MustCompile(`(?i)dent`)
)

// categorizeAnomaly maps a description to its FeatureCategory.
// Precedence follows the most specific sub-kind first within each
// family: "cluster" before plain "corrosion" (a "corrosion cluster" is
// a cluster, not generic corrosion noise), and "seam weld dent" before
// plain "dent".
func categorizeAnomaly(description string) FeatureCategory {
	switch {
	case metalLossPattern.MatchString(description):
		return CategoryMetalLoss
	case clusterPattern.MatchString(description):
		return CategoryCluster
	case corrosionPattern.MatchString(description):
		return CategoryCorrosion
	case seamWeldDentPattern.MatchString(description):
		return CategorySeamWeldDent
	case dentPattern.MatchString(description):
		return CategoryDent
	default:
		return CategoryOther
	}
}

// corrosionFamily reports whether cat is one of the corrosion-family
// sub-kinds (metal_loss, corrosion, cluster).
func corrosionFamily(cat FeatureCategory) bool {
	switch cat {
	case CategoryMetalLoss, CategoryCorrosion, CategoryCluster:
		return true
	default:
		return false
	}
}

// dentFamily reports whether cat is one of the dent-family sub-kinds.
func dentFamily(cat FeatureCategory) bool {
	switch cat {
	case CategoryDent, CategorySeamWeldDent:
		return true
	default:
		return false
	}
}

// defaultFeatureCompatible is the conservative predicate spec.md §9's
// Open Question calls for: only a cross-classification mismatch within
// the corrosion family counts as "compatible" (cost 0.3). Any other
// mismatch, including within the dent family, is "different" (cost 1).
func defaultFeatureCompatible(a, b FeatureCategory) bool {
	return a != b && corrosionFamily(a) && corrosionFamily(b)
}

// clockFromString parses "H", "H:M", "H:M:S" or "H.M" clock strings
// into decimal hours in [0, 12). Returns ok=false for unparseable
// input, which the Normalizer treats as a per-row null rather than a
// fatal error (spec.md §4.A/§7).
func clockFromString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	sep := ":"
	if strings.Contains(s, ".") && !strings.Contains(s, ":") {
		sep = "."
	}
	parts := strings.Split(s, sep)
	if len(parts) == 0 || len(parts) > 3 {
		return parseBareClock(s)
	}

	h, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return parseBareClock(s)
	}
	if len(parts) == 1 {
		return wrapClock(h), true
	}

	m, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, false
	}
	total := clockFromHourMinute(h, m)

	if len(parts) == 3 {
		sVal, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			return 0, false
		}
		total = wrapClock(total + sVal/3600)
	}
	return total, true
}

// parseBareClock handles a bare real number, wrapping values > 12
// modulo 12 per spec.md §4.A(iv).
func parseBareClock(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return wrapClock(v), true
}

// clockFromHourMinute normalizes a (hour, minute) time-of-day pair
// into decimal hours (spec.md §4.A case (i)); clockFromString's "H:M"
// and "H:M:S" branches share this same arithmetic for the hour/minute
// portion of a colon- or dot-separated clock string.
func clockFromHourMinute(hour, minute float64) float64 {
	return wrapClock(hour + minute/60)
}
