package decisions

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError reports a directive expression that failed to compile or
// run. Site locates the directive in the mapping and is prefixed with the
// scenario id while a scenario is being materialised, as in
// "attrition_spike:kpis.attrition.value".
type EvaluationError struct {
	Engine string
	Expr   string
	Site   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("decisions: directive")
	if e.Site != "" {
		b.WriteString(" at ")
		b.WriteString(e.Site)
	}
	if e.Engine != "" {
		fmt.Fprintf(&b, " (%s)", e.Engine)
	}
	if e.Expr != "" {
		fmt.Fprintf(&b, " %q", e.Expr)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Scenario returns the scenario id carried in Site, or "" for directives
// evaluated outside a scenario.
func (e *EvaluationError) Scenario() string {
	if e == nil {
		return ""
	}
	scenario, _, ok := strings.Cut(e.Site, ":")
	if !ok {
		return ""
	}
	return scenario
}

// engineError is a failure of the engine itself, before any directive is
// involved (empty input, bad configuration).
type engineError struct {
	engine string
	err    error
}

func (e *engineError) Error() string {
	return fmt.Sprintf("decisions: %s evaluator: %v", e.engine, e.err)
}

func (e *engineError) Unwrap() error { return e.err }

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var engineErr *engineError
	var evalErr *EvaluationError
	if errors.As(err, &engineErr) || errors.As(err, &evalErr) {
		return err
	}
	return &engineError{engine: engine, err: err}
}

// wrapEvaluationError attaches engine, expression and site to err. An
// existing EvaluationError keeps what it already knows and only has its
// blanks filled.
func wrapEvaluationError(engine, expr, site string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		return &EvaluationError{Engine: engine, Expr: expr, Site: site, Err: err}
	}
	for field, value := range map[*string]string{
		&evalErr.Engine: engine,
		&evalErr.Expr:   expr,
		&evalErr.Site:   site,
	} {
		if *field == "" {
			*field = value
		}
	}
	return evalErr
}
