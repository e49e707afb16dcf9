package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommand_Pass(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "doubled.yaml"), passingScenario)

	out, err := execute(t, NewRunCommand, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: doubled")
	assert.Contains(t, out, "Values are doubled")
	assert.Contains(t, out, "value   6")
	assert.Contains(t, out, "done    Disposed: sequence complete")
	assert.Contains(t, out, "✓ doubled")
}

func TestRunCommand_Fail(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "wrong.yaml"), failingScenario)

	out, err := execute(t, NewRunCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "Expectation failed: values")
}

func TestRunCommand_JSON(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "doubled.yaml"), passingScenario)

	out, err := execute(t, NewRunCommand, "json", path)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Pass  bool `json:"pass"`
			Trace struct {
				Scenario string           `json:"scenario"`
				Events   []map[string]any `json:"events"`
			} `json:"trace"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Pass)
	assert.Equal(t, "doubled", resp.Data.Trace.Scenario)
	assert.Len(t, resp.Data.Trace.Events, 4)
}

func TestRunCommand_JSONFailure(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "wrong.yaml"), failingScenario)

	out, err := execute(t, NewRunCommand, "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeFailed, resp.Error.Code)
}

func TestRunCommand_MissingFile(t *testing.T) {
	out, err := execute(t, NewRunCommand, "text", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestRunCommand_InvalidScenario(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "bad.yaml"), "name: bad\n")

	out, err := execute(t, NewRunCommand, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Contains(t, out, "sources list is required")
}

func TestRunCommand_StepLimit(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "ticks.yaml"), `
name: ticks
sources:
  - ticks: {interval: 1ms, limit: 1000}
`)

	out, err := execute(t, NewRunCommand, "text", path, "--step-limit", "20")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E008]")
}

func TestRunCommand_MissingArgs(t *testing.T) {
	_, err := execute(t, NewRunCommand, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
