package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// To regenerate the golden files:
//
//	go test ./internal/harness -run TestGoldenScenarios -update
func TestGoldenScenarios(t *testing.T) {
	scenarios, err := LoadDir(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestGoldenScenarios_Deterministic(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "merge-events.yaml"))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := first.Trace.Canonical()
	require.NoError(t, err)
	b, err := second.Trace.Canonical()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "element-index.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "element-index", result))
}
