package ilirecon

import "strings"

// Canonical header mapping (spec.md §6): per-year raw header names
// accepted for each canonical field, case-insensitive and
// whitespace-collapsed. This is data, not code, so a fourth run can be
// added without touching Normalizer logic.
var DefaultHeaderMap = map[string]map[RunYear][]string{
	"odometer_ft": {
		0: {"log dist. [ft]"},
		1: {"log dist. [ft]"},
		2: {"ili wheel count [ft.]"},
	},
	"wall_thickness_in": {
		0: {"t [in]"},
		1: {"wt [in]"},
		2: {"wt [in]"},
	},
	"feature_description": {
		0: {"event"},
		1: {"event description"},
		2: {"feature description"},
	},
	"clock_raw": {
		0: {"o'clock"},
		1: {"o'clock"},
		2: {"o'clock [hh:mm]"},
	},
	"depth_pct": {
		0: {"depth [%]"},
		1: {"depth [%]"},
		2: {"metal loss depth [%]"},
	},
	"length_in": {
		0: {"length [in]"},
		1: {"length [in]"},
		2: {"length [in.]"},
	},
	"width_in": {
		0: {"width [in]"},
		1: {"width [in]"},
		2: {"width [in.]"},
	},
	"joint_number": {
		0: {"jt #"},
		1: {"jt #"},
		2: {"joint number"},
	},
	"joint_length_ft": {
		0: {"jt lgth [ft]"},
		1: {"jt lgth [ft]"},
		2: {"joint length [ft.]"},
	},
	"id_od": {
		0: {"id/od"},
		1: {"anomaly id/od"},
		2: {"id/od"},
	},
	"erf": {
		0: {"erf"},
		1: {"erf"},
		2: {"erf"},
	},
	"dist_to_us_weld_ft": {
		0: {"us weld dist [ft]"},
		1: {"us weld dist [ft]"},
		2: {"distance marker upstream [ft.]"},
	},
	"dist_to_ds_weld_ft": {
		0: {"ds weld dist [ft]"},
		1: {"ds weld dist [ft]"},
		2: {"distance marker downstream [ft.]"},
	},
}

// normalizeHeader lowercases and collapses whitespace runs (including
// embedded newlines, which the source data sometimes wraps headers
// with) for case-insensitive, whitespace-insensitive header matching.
func normalizeHeader(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}

// CostWeights are the Matcher's per-component weights (spec.md §4.C);
// they must sum to 1 for cost to stay in [0,1] away from the hard gate.
type CostWeights struct {
	Distance float64
	Clock    float64
	Feature  float64
}

// Config holds every tunable knob spec.md §6 lists, all with the
// documented defaults. Build one with DefaultConfig and adjust it with
// Option functions, mirroring katalvlaran-lvlath/dtw's
// DefaultOptions()-plus-functional-option idiom.
type Config struct {
	HeaderMap map[string]map[RunYear][]string

	CostWeights    CostWeights
	DMaxFt         float64
	CostThreshold  float64
	WindowSizeFt   float64
	WindowStepFt   float64

	ClusterBinWidthFt    float64
	ClusterThresholdFactor float64

	RiskGridStepFt   float64
	RiskWindowFt     float64
	RiskThreshold    float64

	// FeatureCompatible decides whether two feature descriptions are
	// "compatible" (cost contribution 0.3) rather than identical (0)
	// or different (1). The default is the conservative predicate
	// spec.md §9's Open Question calls for: cross-classification is
	// compatible only within the corrosion family.
	FeatureCompatible func(a, b FeatureCategory) bool

	// MatcherParallelism caps how many of the three pair-passes run
	// concurrently; see pipeline.go.
	MatcherParallelism int
}

// Option mutates a Config in place.
type Option func(*Config)

// DefaultConfig returns the spec.md §6 defaults.
func DefaultConfig() Config {
	return Config{
		HeaderMap: DefaultHeaderMap,
		CostWeights: CostWeights{
			Distance: 0.5,
			Clock:    0.3,
			Feature:  0.2,
		},
		DMaxFt:                 50,
		CostThreshold:          0.8,
		WindowSizeFt:           500,
		WindowStepFt:           400,
		ClusterBinWidthFt:      200,
		ClusterThresholdFactor: 2.0,
		RiskGridStepFt:         100,
		RiskWindowFt:           500,
		RiskThreshold:          0.6,
		FeatureCompatible:      defaultFeatureCompatible,
		MatcherParallelism:     3,
	}
}

// WithCostWeights overrides the Matcher's distance/clock/feature
// weights.
func WithCostWeights(w CostWeights) Option {
	return func(c *Config) { c.CostWeights = w }
}

// WithDMax overrides the hard distance gate (spec.md §4.C).
func WithDMax(ft float64) Option {
	return func(c *Config) { c.DMaxFt = ft }
}

// WithCostThreshold overrides the accepted/rejected cost boundary.
func WithCostThreshold(t float64) Option {
	return func(c *Config) { c.CostThreshold = t }
}

// WithWindow overrides the Matcher's sliding-window size and step.
func WithWindow(sizeFt, stepFt float64) Option {
	return func(c *Config) { c.WindowSizeFt, c.WindowStepFt = sizeFt, stepFt }
}

// WithClusterBins overrides the Cluster Analyzer's bin width and
// hot-bin threshold factor.
func WithClusterBins(widthFt, thresholdFactor float64) Option {
	return func(c *Config) { c.ClusterBinWidthFt, c.ClusterThresholdFactor = widthFt, thresholdFactor }
}

// WithRiskGrid overrides the Risk Forecaster's evaluation grid step,
// local window, and high-risk threshold.
func WithRiskGrid(stepFt, windowFt, threshold float64) Option {
	return func(c *Config) { c.RiskGridStepFt, c.RiskWindowFt, c.RiskThreshold = stepFt, windowFt, threshold }
}

// WithHeaderMap overrides the canonical header mapping table, e.g. to
// add a fourth run's vocabulary.
func WithHeaderMap(m map[string]map[RunYear][]string) Option {
	return func(c *Config) { c.HeaderMap = m }
}

// NewConfig builds a Config from the documented defaults plus any
// Options, in order.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
