package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const deliverScenario = `
name: deliver
description: "one commit batch is delivered"
listeners: [A]
steps:
  - { op: start, listener: A, ids: ["1c"] }
  - { op: end, listener: A, ids: ["1c"] }
  - { op: send }
assertions:
  - { type: delivered, listener: A, ids: ["1c"] }
`

const wrongCountScenario = `
name: wrong_count
description: "expects a notification that never comes"
listeners: [A]
steps:
  - { op: start, listener: A, ids: ["1c"] }
  - { op: end, listener: A, ids: ["1c"] }
  - { op: send }
assertions:
  - { type: delivery_count, listener: A, count: 2 }
`

const gatedScenario = `
name: gated
description: "a latched present batch waits for a fence, then an error"
listeners: [A]
surfaces: [s1]
handles:
  h: { listener: A, ids: ["1p"], surface: s1, latch_ns: 10 }
steps:
  - { op: start, listener: A, ids: ["1p"] }
  - { op: pending, handle: h }
  - { op: end, listener: A, ids: ["1p"] }
  - { op: finalize_present, handles: [h] }
  - { op: send }
  - { op: present_fence, fence: { name: F1, signal_ns: 20 } }
  - { op: send }
  - { op: end, listener: A, ids: ["9p"] }
assertions:
  - { type: delivered, listener: A, ids: ["1p"] }
  - { type: error, step: 7, code: UNKNOWN_REGISTRATION_END }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
