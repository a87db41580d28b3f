package facts

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFacts is returned when a build is started without a fact set.
	ErrNoFacts = errors.New("no raw fact set")
	// ErrMalformedFact marks a fact missing a required field.
	ErrMalformedFact = errors.New("malformed fact")
	// ErrAmbiguousReference marks a call or handler target that cannot be
	// canonicalized cleanly.
	ErrAmbiguousReference = errors.New("ambiguous reference")
	// ErrConfigurationUnavailable marks a missing or unreadable placeholder store.
	ErrConfigurationUnavailable = errors.New("configuration unavailable")
)

// Diagnostic is a non-fatal problem recorded while collecting or assembling facts.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Kind    error  `json:"-"`
	Message string `json:"message"`
	Origin  Origin `json:"origin,omitempty"`
}

// Err returns the diagnostic as an error wrapping its kind.
func (d Diagnostic) Err() error {
	return fmt.Errorf("%s: %w: %s", d.Stage, d.Kind, d.Message)
}

func (d Diagnostic) String() string {
	s := d.Err().Error()
	if d.Origin.File != "" {
		s += fmt.Sprintf(" (%s:%d)", d.Origin.File, d.Origin.Line)
	}
	return s
}

// KindName returns a stable short name for the diagnostic kind.
func (d Diagnostic) KindName() string {
	switch {
	case errors.Is(d.Kind, ErrMalformedFact):
		return "malformed_fact"
	case errors.Is(d.Kind, ErrAmbiguousReference):
		return "ambiguous_reference"
	case errors.Is(d.Kind, ErrConfigurationUnavailable):
		return "configuration_unavailable"
	default:
		return "other"
	}
}
