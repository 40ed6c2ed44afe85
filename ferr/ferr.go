// Package ferr defines the engine-internal error taxonomy shared by matrix,
// ins, kalman, timesync and fusion, per the error handling design: recoverable
// numerical failures, silent drops and fatal configuration conflicts all carry
// a Kind so callers can errors.Is/errors.As across package boundaries instead
// of string-matching messages.
package ferr

import "fmt"

// Kind identifies one of the engine's defined error categories.
type Kind int

const (
	// ConfigConflict is raised for mutually exclusive configuration, e.g.
	// --back_propagate and --realtime together. Fatal at startup.
	ConfigConflict Kind = iota
	// SingularMatrix is raised when an inversion or LU decomposition hits a
	// zero pivot that row exchange cannot eliminate.
	SingularMatrix
	// EigenNotConverged is raised when the eigen decomposition meets a
	// non-finite value during QR iteration or inverse iteration, or a
	// singular shifted matrix during inverse iteration. The QR iteration
	// itself has no loop budget.
	EigenNotConverged
	// CovarianceNotPSD is raised when a scalar measurement update finds a
	// non-positive (or NaN) innovation covariance h P hᵀ + r. Negative
	// diagonal entries of P (after every time update, and after a Standard
	// filter's measurement update) are clamped to zero, not reported.
	CovarianceNotPSD
	// StateNotInitialized is raised when a packet arrives before the
	// initial-gating threshold has been met.
	StateNotInitialized
	// TimeOutOfOrder is raised for a packet whose itow does not advance the
	// filter clock within (0, ΔT_max].
	TimeOutOfOrder
	// FilterDiverged is raised when CovarianceNotPSD recurs across
	// consecutive measurement updates. Innovation magnitudes are not
	// checked against any gate.
	FilterDiverged
)

func (k Kind) String() string {
	switch k {
	case ConfigConflict:
		return "ConfigConflict"
	case SingularMatrix:
		return "SingularMatrix"
	case EigenNotConverged:
		return "EigenNotConverged"
	case CovarianceNotPSD:
		return "CovarianceNotPSD"
	case StateNotInitialized:
		return "StateNotInitialized"
	case TimeOutOfOrder:
		return "TimeOutOfOrder"
	case FilterDiverged:
		return "FilterDiverged"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carrying a Kind, a message and an
// optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a *Error with the same Kind, allowing
// errors.Is(err, ferr.New(ferr.SingularMatrix, "")) style sentinel checks
// without requiring an exact message match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// sentinels for errors.Is(err, ferr.ErrSingularMatrix) style matching.
var (
	ErrConfigConflict       = New(ConfigConflict, "")
	ErrSingularMatrix       = New(SingularMatrix, "")
	ErrEigenNotConverged    = New(EigenNotConverged, "")
	ErrCovarianceNotPSD     = New(CovarianceNotPSD, "")
	ErrStateNotInitialized  = New(StateNotInitialized, "")
	ErrTimeOutOfOrder       = New(TimeOutOfOrder, "")
	ErrFilterDiverged       = New(FilterDiverged, "")
)

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			fe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if fe == nil {
		return 0, false
	}
	return fe.Kind, true
}
