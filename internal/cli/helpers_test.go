package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// relayYAML links b under a in main and replays the commit into worker.
func relayYAML(name string) string {
	return fmt.Sprintf(`name: %s
description: "insert replays into worker"
steps:
  - op: node
    name: a
  - op: node
    name: b
  - op: context
    name: worker
  - op: map
    node: a
    target: worker
  - op: insert
    node: a
    child: b
  - op: commit
    name: c1
    expect: { changes: 1 }
  - op: apply
    commit: c1
    context: worker
assertions:
  - type: children
    context: worker
    node: a
    nodes: [b]
`, name)
}

// failingYAML passes every step but asserts the wrong children.
const failingYAML = `name: failing
description: "asserts a child that was never linked"
steps:
  - op: node
    name: a
assertions:
  - type: children
    node: a
    nodes: [ghost]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
