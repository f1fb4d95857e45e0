package failure

import "errors"

type Severity int

// Every error surfaced by the bundler aborts the run. Severity only tells the
// operator whether rerunning the same command could succeed.
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}

// SeverityOf returns the severity of the first classified error in err's
// chain, and SeverityFatal when there is none.
func SeverityOf(err error) Severity {
	var classified ClassifiedError
	if errors.As(err, &classified) {
		return classified.Severity()
	}
	return SeverityFatal
}
