package decisions

import (
	"errors"
	"fmt"
)

var (
	// ErrNilContext is returned when an operation receives a nil *Context.
	ErrNilContext = errors.New("decisions: context is nil")
	// ErrInvalidBaseline indicates Create received a baseline that is not a
	// well-formed mapping.
	ErrInvalidBaseline = errors.New("decisions: baseline must be a well-formed mapping")
	// ErrInvalidOverride is matched by every *ValidationError.
	ErrInvalidOverride = errors.New("decisions: invalid override")
	// ErrDuplicateOverrideID indicates an override id is already present.
	ErrDuplicateOverrideID = errors.New("decisions: override id already present")
	// ErrUnknownTopLevelKey indicates override changes touch a top-level key
	// the baseline does not define.
	ErrUnknownTopLevelKey = errors.New("decisions: override introduces a key absent from baseline")
	// ErrOverrideNotFound indicates RemoveOverride received an unknown id.
	ErrOverrideNotFound = errors.New("decisions: override not found")
	// ErrScenarioNotFound is returned for unknown scenario ids when the strict
	// scenario policy is enabled.
	ErrScenarioNotFound = errors.New("decisions: scenario not found")
	// ErrInvalidScenario indicates a scenario definition cannot be registered.
	ErrInvalidScenario = errors.New("decisions: invalid scenario")
	// ErrDuplicateScenario indicates a scenario id is registered twice.
	ErrDuplicateScenario = errors.New("decisions: scenario already registered")
	// ErrInvalidDirective indicates a malformed adjustment directive.
	ErrInvalidDirective = errors.New("decisions: invalid directive")
	// ErrInvalidStatus indicates a KPI status outside the known set.
	ErrInvalidStatus = errors.New("decisions: invalid kpi status")
	// ErrClientIDRequired indicates a session operation without a client id.
	ErrClientIDRequired = errors.New("decisions: client id is required")
	// ErrSessionNotFound indicates no live context exists for a client.
	ErrSessionNotFound = errors.New("decisions: no live session for client")
	// ErrRegistryRequired indicates a scenario component built without a registry.
	ErrRegistryRequired = errors.New("decisions: scenario registry is required")
)

// ValidationError describes why an override was rejected before it reached
// the context. It matches ErrInvalidOverride through errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s: %s", ErrInvalidOverride.Error(), e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{ErrInvalidOverride}
	}
	return []error{ErrInvalidOverride, e.Err}
}

func scenarioNotFound(id string) error {
	return fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
}
