package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const approvalSpec = `id: approval
initial: draft
states:
  draft:
    on:
      SUBMIT: review
  review:
    on:
      APPROVE: done
  done:
    type: final
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "keel version")
}

func TestCompile_FromStdin(t *testing.T) {
	tree := `{"id":"root","type":"GROUP","operator":"AND","children":[
		{"id":"r1","type":"RULE","subject":"host.amount","verb":">","object_kind":"LITERAL","object":1000}
	]}`
	out, err := run(t, tree, "compile")
	require.NoError(t, err)
	assert.Equal(t, "host.amount > 1000\n", out)
}

func TestClassify(t *testing.T) {
	out, err := run(t, "", "classify", "(a == 1) || b == 2")
	require.NoError(t, err)
	assert.Equal(t, "RAW\n", out)
}

func TestLint_RejectsBrokenExpression(t *testing.T) {
	_, err := run(t, "", "lint", "host.amount >")
	assert.Error(t, err)
}

func TestGraph_LaysOutSpecWithoutCoordinates(t *testing.T) {
	path := writeFile(t, "approval.yaml", approvalSpec)

	out, err := run(t, "", "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"nodes"`)
	assert.Contains(t, out, `"draft-SUBMIT-review"`)
}

func TestMermaid(t *testing.T) {
	path := writeFile(t, "approval.yaml", approvalSpec)

	out, err := run(t, "", "mermaid", path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, "SUBMIT")
}

func TestPolicyValidate_FailsOnErrors(t *testing.T) {
	path := writeFile(t, "policy.json", `{"name":"","rules":[]}`)

	out, err := run(t, "", "policy", "validate", path)
	require.Error(t, err)
	assert.Contains(t, out, "[error]")
}

func TestMCP_BuildsServerAndRejectsUnknownTransport(t *testing.T) {
	_, err := run(t, "", "mcp", "--transport", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown transport: carrier-pigeon")
}

func TestConfig_RejectsUnknownStore(t *testing.T) {
	path := writeFile(t, "keel.yaml", "store: cassandra\n")

	_, err := run(t, "", "--config", path, "version")
	assert.ErrorContains(t, err, "cassandra")
}
