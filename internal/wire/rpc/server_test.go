package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/engine"
	"github.com/relentless-ops/runbook-engine/internal/wire/dispatch"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - name: confluence
    type: memorydoc
    priority: 1
    enabled: true
`), 0o600))

	e, err := engine.New(path)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })

	return NewServer(dispatch.New(e.API), e.Logger())
}

func TestServer_HandleToolCallListSources(t *testing.T) {
	s := newTestServer(t)

	res := s.HandleToolCall(context.Background(), ToolCall{Name: "list_sources"})
	require.Nil(t, res.Error)
	require.NotNil(t, res.Result)
}

func TestServer_HandleToolCallUnknownNameReturnsError(t *testing.T) {
	s := newTestServer(t)

	res := s.HandleToolCall(context.Background(), ToolCall{Name: "not_a_tool"})
	require.Nil(t, res.Result)
	require.NotNil(t, res.Error)
}

func TestServer_ServeProcessesNewlineDelimitedCalls(t *testing.T) {
	s := newTestServer(t)

	in := bytes.NewBufferString(`{"name":"list_sources"}` + "\n" + `{"name":"bogus"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Serve(context.Background(), in, &out))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second ToolCallResult
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Nil(t, first.Error)
	assert.NotNil(t, second.Error)
}
