package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: "one batch"
listeners: [A]
steps:
  - { op: start, listener: A, ids: ["1c"] }
  - { op: end, listener: A, ids: ["1c"] }
  - { op: send }
assertions:
  - { type: delivered, listener: A, ids: ["1c"] }
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, []string{"A"}, s.Listeners)
	require.Len(t, s.Steps, 3)
	assert.Equal(t, OpStart, s.Steps[0].Op)
	assert.Equal(t, []string{"1c"}, s.Steps[0].IDs)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertDelivered, s.Assertions[0].Type)
}

func TestParseScenario_HandleFields(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: handles
description: "handle fields decode"
listeners: [A]
surfaces: [s1]
handles:
  h:
    listener: A
    ids: ["2p"]
    surface: s1
    latch_ns: 0
    previous_release_fence: { name: R }
steps:
  - { op: pending, handle: h }
assertions:
  - { type: error, step: 0, code: NOT_REGISTERED }
`))
	require.NoError(t, err)

	h := s.Handles["h"]
	require.NotNil(t, h.LatchNs)
	assert.Equal(t, int64(0), *h.LatchNs)
	require.NotNil(t, h.PreviousReleaseFence)
	assert.Nil(t, h.PreviousReleaseFence.SignalNs)
	assert.Nil(t, h.GPUCompositionFence)
	require.NotNil(t, s.Assertions[0].Step)
	assert.Equal(t, 0, *s.Assertions[0].Step)
}

func TestParseScenario_RejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(strings.Replace(minimalScenario, "assertions:", "assertion:", 1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nlisteners: [A]\nsteps: [{op: send}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nlisteners: [A]\nsteps: [{op: send}]",
			wantErr: "description is required",
		},
		{
			name:    "no listeners",
			yaml:    "name: n\ndescription: d\nsteps: [{op: send}]",
			wantErr: "listeners list is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\nlisteners: [A]",
			wantErr: "steps list is required",
		},
		{
			name:    "duplicate listener",
			yaml:    "name: n\ndescription: d\nlisteners: [A, A]\nsteps: [{op: send}]",
			wantErr: `duplicate name "A"`,
		},
		{
			name:    "unknown op",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: flush}]",
			wantErr: `steps[0]: unknown op "flush"`,
		},
		{
			name:    "unknown listener in step",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: kill, listener: B}]",
			wantErr: `unknown listener "B"`,
		},
		{
			name:    "bad callback id",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: start, listener: A, ids: [xp]}]",
			wantErr: "invalid callback id",
		},
		{
			name:    "unknown handle",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: pending, handle: h}]",
			wantErr: `unknown handle "h"`,
		},
		{
			name:    "handle with unknown surface",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nhandles: {h: {listener: A, ids: [1p], surface: s}}\nsteps: [{op: send}]",
			wantErr: `handles.h: unknown surface "s"`,
		},
		{
			name:    "jank on commit path",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nhandles: {h: {listener: A, ids: [1c]}}\nsteps: [{op: finalize_commit, handles: [h], jank: [{frame_vsync_id: 1}]}]",
			wantErr: "jank is only valid",
		},
		{
			name:    "fence without name",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: present_fence, fence: {signal_ns: 1}}]",
			wantErr: "fence with a name is required",
		},
		{
			name:    "error assertion out of range",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: send}]\nassertions: [{type: error, step: 3, code: CLOSED}]",
			wantErr: "step 3 out of range",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: send}]\nassertions: [{type: final_state}]",
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name:    "negative count",
			yaml:    "name: n\ndescription: d\nlisteners: [A]\nsteps: [{op: send}]\nassertions: [{type: delivery_count, listener: A, count: -1}]",
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadScenario_AllTestdataValid(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSuffix(filepath.Base(path), ".yaml"), s.Name)
		})
	}
}
