package framework

import (
	"strings"

	"github.com/openeeg/headband.go/pkg/fault"
)

// AggregatedError aggregates multiple errors.
type AggregatedError struct {
	Errors []error
}

// Error implements error
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := make([]string, len(e.Errors)+1)
	msg[0] = "Multiple errors:"
	for n, err := range e.Errors {
		msg[n+1] = err.Error()
	}
	return strings.Join(msg, "\n")
}

// FaultKind reports the most severe kind among the aggregated errors.
func (e *AggregatedError) FaultKind() fault.Kind {
	kind := fault.Unknown
	for _, err := range e.Errors {
		switch k := fault.KindOf(err); {
		case k == fault.Fatal:
			return k
		case k != fault.Unknown && kind == fault.Unknown:
			kind = k
		}
	}
	return kind
}

// Add adds errors to be aggregated. nil will be skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns aggregated error if any error happened.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
