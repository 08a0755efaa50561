package ilirecon

import "fmt"

// SchemaError reports that a run's row set is missing a mandatory
// canonical field's raw header, or that its odometer_ft column is
// entirely null. It is fatal: the job cannot continue.
type SchemaError struct {
	RunYear RunYear
	Field   string
	Reason  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: run %d field %q: %s", e.RunYear, e.Field, e.Reason)
}

// InternalInvariantFailure is a bug-class assertion failure. It is
// always fatal and always propagates to the caller; it should never
// be recovered from.
type InternalInvariantFailure struct {
	Where string
	Detail string
}

func (e *InternalInvariantFailure) Error() string {
	return fmt.Sprintf("internal invariant failure in %s: %s", e.Where, e.Detail)
}

// WarningKind classifies a recoverable Warning attached to a Result.
type WarningKind int

const (
	WarningInsufficientAnchors WarningKind = iota
	WarningEmptyRun
	WarningNumericDegeneracy
)

func (k WarningKind) String() string {
	switch k {
	case WarningInsufficientAnchors:
		return "InsufficientAnchorsWarning"
	case WarningEmptyRun:
		return "EmptyRunWarning"
	case WarningNumericDegeneracy:
		return "NumericDegeneracyWarning"
	default:
		return "Warning"
	}
}

// Warning is a recoverable condition noted on the Result rather than
// raised as an error. The Normalizer, Drift Corrector, Cluster
// Analyzer and Risk Forecaster all attach warnings rather than fail
// the job for conditions spec.md §7 marks recoverable.
type Warning struct {
	Kind    WarningKind
	RunYear RunYear // zero value when not run-specific
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
}

// Canceled is returned by Run when the caller's context is done at one
// of the checks Run makes between pipeline stages; partial results are
// discarded and the Result is nil. A single Matcher pass does not check
// for cancellation between its windows.
type Canceled struct{}

func (Canceled) Error() string { return "ilirecon: job canceled" }
