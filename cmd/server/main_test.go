package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigCommand_AcceptsWellFormedConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: confluence
    type: memorydoc
    priority: 1
    enabled: true
`), 0o600))

	cmd := validateConfigCommand()
	cmd.SetArgs([]string{"--config", path})
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "configuration valid")
}

func TestValidateConfigCommand_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: -1
`), 0o600))

	cmd := validateConfigCommand()
	cmd.SetArgs([]string{"--config", path})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
}

func TestRootCommand_HasServeAndValidateConfigSubcommands(t *testing.T) {
	root := rootCommand()

	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["serve"])
	assert.True(t, names["validate-config"])
}
