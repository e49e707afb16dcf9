package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), passingScenario)
	writeFile(t, filepath.Join(dir, "b.yaml"), failingScenario)

	out, err := execute(t, NewValidateCommand, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 scenario file(s) valid")
}

func TestValidateCommand_SingleFile(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "a.yaml"), passingScenario)

	out, err := execute(t, NewValidateCommand, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 scenario file(s) valid")
}

func TestValidateCommand_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.yaml"), "name: broken\n")
	writeFile(t, filepath.Join(dir, "expr.yaml"), `
name: expr
sources:
  - values: [1]
pipeline:
  - op: filter
    expr: "v >"
  - op: switch
    cases:
      - {label: a, expr: "(v"}
    take: a
`)

	out, err := execute(t, NewValidateCommand, "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 3)
	assert.Contains(t, resp.Data.Errors[0].Message, "sources list is required")
	assert.Contains(t, resp.Data.Errors[1].Message, "pipeline[0] filter")
	assert.Contains(t, resp.Data.Errors[2].Message, "pipeline[1] switch cases[0]")
}

func TestValidateCommand_NotFound(t *testing.T) {
	_, err := execute(t, NewValidateCommand, "text", "/nonexistent")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
