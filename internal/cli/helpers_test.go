package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: doubled
description: "Values are doubled"
sources:
  - values: [1, 2, 3]
pipeline:
  - op: transform
    expr: "v * 2"
expect:
  values: [2, 4, 6]
  closed: true
`

const failingScenario = `
name: wrong
sources:
  - values: [1, 2]
expect:
  values: [1, 2, 3]
`

const doubledGolden = `{"events":[{"at_ms":0,"kind":"value","value":2},{"at_ms":0,"kind":"value","value":4},{"at_ms":0,"kind":"value","value":6},{"at_ms":0,"context":"Disposed: sequence complete","kind":"done"}],"scenario":"doubled"}`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs a subcommand built by newCmd with the given flags and
// arguments and returns its stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
