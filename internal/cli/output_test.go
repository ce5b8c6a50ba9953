package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psiclin/psiclin/internal/model"
)

func TestEmitJSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.Emit(map[string]string{"id": "s1"}, func(w io.Writer) {
		fmt.Fprintln(w, "should not appear")
	})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotContains(t, buf.String(), "should not appear")
}

func TestEmitText(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	err := f.Emit(nil, func(w io.Writer) {
		fmt.Fprintln(w, "2 patient(s)")
	})
	require.NoError(t, err)
	assert.Equal(t, "2 patient(s)\n", buf.String())
}

func TestErrorOutput(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	require.NoError(t, f.Error("NOT_FOUND", "record not found"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("opened %s", "psiclin.db")
	assert.Empty(t, out.String(), "verbose output must not corrupt JSON")
	assert.Equal(t, "opened psiclin.db\n", errOut.String())
}

func TestVerboseLogSilentByDefault(t *testing.T) {
	var out bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &out}

	f.VerboseLog("noise")
	assert.Empty(t, out.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "op failed", errors.New("cause"))))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestAsExitError(t *testing.T) {
	assert.NoError(t, asExitError(nil))

	err := asExitError(model.NewNotFound("session", "s1"))
	assert.Equal(t, ExitFailure, GetExitCode(err))

	err = asExitError(errors.New("disk on fire"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
