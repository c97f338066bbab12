// Package fault classifies errors raised by the cross-core subsystem.
package fault

import "errors"

// Kind is the class of a failure.
type Kind int

// Kinds of failures.
const (
	// Unknown is reported for errors not raised by this subsystem.
	Unknown Kind = iota
	// Fatal is a configuration or ordering error. The device must be
	// fully reset to recover.
	Fatal
	// Transient is a capacity error the caller may retry or drop.
	Transient
	// Discipline is a protocol violation such as double reset or a
	// second acquisition of a queue handle.
	Discipline
)

func (k Kind) String() string {
	switch k {
	case Fatal:
		return "fatal"
	case Transient:
		return "transient"
	case Discipline:
		return "discipline"
	default:
		return "unknown"
	}
}

// Classified is implemented by errors carrying a Kind.
type Classified interface {
	error
	FaultKind() Kind
}

// Error is a classified error with a fixed message.
type Error struct {
	Kind Kind
	Msg  string
}

// New creates a classified error, usually used for package sentinels.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Error implements error.
func (e *Error) Error() string {
	return e.Msg
}

// FaultKind implements Classified.
func (e *Error) FaultKind() Kind {
	return e.Kind
}

// KindOf returns the Kind of the first classified error in the chain.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.FaultKind()
	}
	return Unknown
}

// IsFatal is a shortcut for KindOf(err) == Fatal.
func IsFatal(err error) bool {
	return KindOf(err) == Fatal
}
