package adapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/adapter"
	"github.com/relentless-ops/runbook-engine/internal/adapter/memorydoc"
	"github.com/relentless-ops/runbook-engine/internal/domain"
)

func TestRegistry_BuildUnregisteredTypeFails(t *testing.T) {
	reg := adapter.NewRegistry()
	_, err := reg.Build(domain.SourceConfig{Name: "s1", Type: "nope"})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrConfiguration))
}

func TestRegistry_RegisterAndBuild(t *testing.T) {
	reg := adapter.NewRegistry()
	require.NoError(t, reg.Register("memorydoc", memorydoc.Factory(nil, memorydoc.FaultConfig{})))

	a, err := reg.Build(domain.SourceConfig{Name: "confluence", Type: "memorydoc", Priority: 1})
	require.NoError(t, err)
	assert.Equal(t, "confluence", a.Name())
}

func TestRegistry_FreezeRejectsFurtherRegistration(t *testing.T) {
	reg := adapter.NewRegistry()
	reg.Freeze()
	err := reg.Register("memorydoc", memorydoc.Factory(nil, memorydoc.FaultConfig{}))
	require.Error(t, err)
}

func TestRegistry_ReplaceFactoryBeforeFreeze(t *testing.T) {
	reg := adapter.NewRegistry()
	calls := 0
	require.NoError(t, reg.Register("memorydoc", func(cfg domain.SourceConfig) (adapter.Adapter, error) {
		calls++
		return memorydoc.New(cfg.Name, nil, memorydoc.FaultConfig{}), nil
	}))
	require.NoError(t, reg.Register("memorydoc", func(cfg domain.SourceConfig) (adapter.Adapter, error) {
		calls += 100
		return memorydoc.New(cfg.Name, nil, memorydoc.FaultConfig{}), nil
	}))

	_, err := reg.Build(domain.SourceConfig{Name: "s1", Type: "memorydoc"})
	require.NoError(t, err)
	assert.Equal(t, 100, calls, "second registration should replace the first before freeze")
}

func TestMemorydocAdapter_InitializeAndHealthCheck(t *testing.T) {
	a := memorydoc.New("confluence", nil, memorydoc.FaultConfig{})
	require.NoError(t, a.Initialize(context.Background(), domain.SourceConfig{Name: "confluence", Priority: 1}))
	hs := a.HealthCheck(context.Background())
	assert.Equal(t, domain.HealthHealthy, hs.Status)
}
