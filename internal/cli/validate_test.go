package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scenarios/deliver.yaml", deliverScenario)
	writeFile(t, dir, "scenarios/gated.yaml", gatedScenario)
	writeFile(t, dir, "config.cue", `log: level: "debug"`)
	writeFile(t, dir, "README.md", "ignored")

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 3 file(s) valid")
}

func TestValidateReportsEveryInvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", deliverScenario)
	writeFile(t, dir, "typo.yaml", "name: typo\ndescription: d\nlisteners: [A]\nsteps: [{op: send}]\nasserts: []\n")
	writeFile(t, dir, "bad.cue", "log: {\n\tlevel: \"trace\"\n}\n")

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "typo.yaml")
	assert.Contains(t, out, "bad.cue")
	assert.Contains(t, out, "2 of 3 file(s) invalid")
}

func TestValidateJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", "metrics: namespace: \"9lives\"\n")

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), filepath.Join(dir, "bad.cue"))
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))

	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, "config", resp.Data.Errors[0].Kind)
	assert.Equal(t, ErrCodeConfig, resp.Data.Errors[0].Code)
}

func TestValidateUnsupportedFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.txt", "hello")

	out, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), path)
	require.Error(t, err)
	assert.Contains(t, out, "unsupported file type")
}

func TestValidateNoFiles(t *testing.T) {
	_, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateMissingPath(t *testing.T) {
	_, _, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
