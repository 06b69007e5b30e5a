package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/domain"
	"github.com/relentless-ops/runbook-engine/internal/toolapi"
)

func writeTestConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestEngine_StartRegistersEnabledAdaptersAndServesToolAPI(t *testing.T) {
	path := writeTestConfig(t, `
sources:
  - name: confluence
    type: memorydoc
    priority: 1
    enabled: true
performance:
  adapter_deadline: 1s
`)

	e, err := New(path)
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	defer func() { _ = e.Shutdown(context.Background()) }()

	require.NotNil(t, e.API)
	assert.Equal(t, []string{"confluence"}, e.AdapterNames())

	res, toolErr := e.API.ListSources(context.Background(), toolapi.ListSourcesArgs{IncludeHealth: true})
	require.Nil(t, toolErr)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "confluence", res.Data[0].Name)
}

func TestEngine_StartSkipsDisabledSources(t *testing.T) {
	path := writeTestConfig(t, `
sources:
  - name: confluence
    type: memorydoc
    priority: 1
    enabled: false
`)

	e, err := New(path)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	defer func() { _ = e.Shutdown(context.Background()) }()

	assert.Empty(t, e.AdapterNames())
}

func TestEngine_ShutdownIsIdempotentAndBoundedByContext(t *testing.T) {
	path := writeTestConfig(t, `
sources:
  - name: confluence
    type: memorydoc
    priority: 1
    enabled: true
`)
	e, err := New(path)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Shutdown(ctx))
}

func TestEngine_RemoteCacheAvailableFalseWhenDisabled(t *testing.T) {
	e, err := New("")
	require.NoError(t, err)
	assert.False(t, e.RemoteCacheAvailable())
}

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	path := writeTestConfig(t, "server:\n  port: -1\n")
	_, err := New(path)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrConfiguration))
}
