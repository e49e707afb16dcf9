package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare_Scalars(t *testing.T) {
	assert.Empty(t, Compare(1, 1))
	assert.Equal(t, []Change{{Path: "", Op: OpChange, Value: 2, Previous: 1}}, Compare(1, 2))
}

func TestCompare_Maps(t *testing.T) {
	prev := map[string]any{"a": 1, "b": "x", "gone": true}
	next := map[string]any{"a": 2, "b": "x", "new": []any{1}}

	got := Compare(prev, next)
	assert.Equal(t, []Change{
		{Path: "a", Op: OpChange, Value: 2, Previous: 1},
		{Path: "gone", Op: OpRemove, Previous: true},
		{Path: "new", Op: OpAdd, Value: []any{1}},
	}, got)
}

func TestCompare_Nested(t *testing.T) {
	prev := map[string]any{"user": map[string]any{"name": "ann", "tags": []any{"a", "b"}}}
	next := map[string]any{"user": map[string]any{"name": "ann", "tags": []any{"a", "c", "d"}}}

	got := Compare(prev, next)
	assert.Equal(t, []Change{
		{Path: "user.tags.1", Op: OpChange, Value: "c", Previous: "b"},
		{Path: "user.tags.2", Op: OpAdd, Value: "d"},
	}, got)
}

func TestCompare_TypeChange(t *testing.T) {
	got := Compare(map[string]any{"a": map[string]any{"b": 1}}, map[string]any{"a": 5})
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Path)
	assert.Equal(t, OpChange, got[0].Op)
}

func TestSetPath(t *testing.T) {
	orig := map[string]any{"a": map[string]any{"b": 1}, "list": []any{1, 2}}

	got, err := SetPath(orig, "a.b", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got["a"].(map[string]any)["b"])
	assert.Equal(t, 1, orig["a"].(map[string]any)["b"], "original must not be mutated")

	got, err = SetPath(orig, "list.1", 9)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 9}, got["list"])

	got, err = SetPath(orig, "x.y", "z")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"y": "z"}, got["x"])
}

func TestSetPath_Errors(t *testing.T) {
	orig := map[string]any{"n": 1, "list": []any{1}}

	_, err := SetPath(orig, "", 1)
	assert.Error(t, err)

	_, err = SetPath(orig, "n.x", 1)
	assert.Error(t, err)

	_, err = SetPath(orig, "list.5", 1)
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	orig := map[string]any{"a": map[string]any{"b": []any{1, map[string]any{"c": 2}}}, "s": "x"}
	c := Clone(orig).(map[string]any)
	assert.Equal(t, orig, c)

	c["a"].(map[string]any)["b"].([]any)[1].(map[string]any)["c"] = 3
	assert.Equal(t, 2, orig["a"].(map[string]any)["b"].([]any)[1].(map[string]any)["c"])
	assert.Equal(t, 5, Clone(5))
}
