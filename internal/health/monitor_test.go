package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

func TestMonitor_HealthyWhenAllCallsSucceedUnderTarget(t *testing.T) {
	m := New(DefaultConfig(), nil, nil, nil)
	m.Register("confluence", "wiki")
	for i := 0; i < 20; i++ {
		m.RecordCall("confluence", 50*time.Millisecond, true)
	}
	snap := m.Status("confluence")
	assert.Equal(t, domain.HealthHealthy, snap.Status)
}

func TestMonitor_DegradedOnModerateFailureRate(t *testing.T) {
	m := New(DefaultConfig(), nil, nil, nil)
	m.Register("confluence", "wiki")
	for i := 0; i < 9; i++ {
		m.RecordCall("confluence", 50*time.Millisecond, true)
	}
	m.RecordCall("confluence", 50*time.Millisecond, false)
	snap := m.Status("confluence")
	assert.Equal(t, domain.HealthDegraded, snap.Status)
}

func TestMonitor_UnhealthyOnHighFailureRate(t *testing.T) {
	m := New(DefaultConfig(), nil, nil, nil)
	m.Register("confluence", "wiki")
	for i := 0; i < 5; i++ {
		m.RecordCall("confluence", 50*time.Millisecond, true)
	}
	for i := 0; i < 5; i++ {
		m.RecordCall("confluence", 50*time.Millisecond, false)
	}
	snap := m.Status("confluence")
	assert.Equal(t, domain.HealthUnhealthy, snap.Status)
}

func TestMonitor_UnhealthyOnLatencyAboveDoubleTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Targets.DefaultP95Target = 100 * time.Millisecond
	m := New(cfg, nil, nil, nil)
	m.Register("confluence", "wiki")
	for i := 0; i < 20; i++ {
		m.RecordCall("confluence", 300*time.Millisecond, true)
	}
	snap := m.Status("confluence")
	assert.Equal(t, domain.HealthUnhealthy, snap.Status)
}

func TestMonitor_EngineStatusUnhealthyWhenAllAdaptersUnhealthy(t *testing.T) {
	m := New(DefaultConfig(), nil, nil, nil)
	m.Register("a1", "wiki")
	for i := 0; i < 5; i++ {
		m.RecordCall("a1", time.Millisecond, false)
	}
	status := m.EngineStatus([]string{"a1"}, true)
	assert.Equal(t, domain.HealthUnhealthy, status)
}

func TestMonitor_EngineStatusDegradedWhenRemoteCacheUnavailable(t *testing.T) {
	m := New(DefaultConfig(), nil, nil, nil)
	m.Register("a1", "wiki")
	for i := 0; i < 20; i++ {
		m.RecordCall("a1", time.Millisecond, true)
	}
	status := m.EngineStatus([]string{"a1"}, false)
	assert.Equal(t, domain.HealthDegraded, status)
}
