package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-decisions"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("x"))), ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapExitError(ExitFailure, "save context", cause)
	assert.Equal(t, "save context: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad flag", NewExitError(ExitCommandError, "bad flag").Error())
}

func TestOutputFormatterJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]any{"version": 2}, func(w io.Writer) error {
		t.Fatal("text renderer must not run for json output")
		return nil
	}))
	assert.JSONEq(t, `{"status":"ok","data":{"version":2}}`, buf.String())
}

func TestOutputFormatterTextFallsBackToYAML(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success(decisions.Mapping{"persona": "CFO"}, nil))
	assert.Equal(t, "persona: CFO\n", buf.String())
}

func TestOutputFormatterVerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Format: "text", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestPaintHonoursColorSetting(t *testing.T) {
	plain := &OutputFormatter{}
	assert.Equal(t, "+4.5", plain.paint(decisions.DirectionUp)("+4.5"))

	colored := &OutputFormatter{Color: true}
	painted := colored.paint(decisions.DirectionDown)("-9.6")
	assert.Contains(t, painted, "-9.6")
	assert.Contains(t, painted, "\x1b[31m")
}
