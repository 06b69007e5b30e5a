package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

func writeTempConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoad_DefaultsApplyWithoutConfigFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "hybrid", cfg.Cache.Strategy)
	assert.Equal(t, 10000, cfg.Cache.Memory.MaxEntries)
	assert.Equal(t, "two_pass", cfg.Indexer.DeletionGrace)
}

func TestLoad_UnknownTopLevelKeyErrors(t *testing.T) {
	path := writeTempConfig(t, "totally_unknown_section:\n  foo: bar\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrConfiguration))
}

func TestLoad_SourcesOpaqueFieldsPassThrough(t *testing.T) {
	path := writeTempConfig(t, `
sources:
  - name: confluence
    type: memorydoc
    priority: 1
    enabled: true
    space_key: OPS
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "OPS", cfg.Sources[0].Extra["space_key"])
}

func TestConfig_ValidateRejectsDuplicateSourceNames(t *testing.T) {
	cfg := &Config{
		Server:      ServerConfig{Host: "0.0.0.0", Port: 8080},
		Cache:       CacheSectionConfig{Strategy: "memory_only", Memory: CacheMemoryConfig{MaxEntries: 100}},
		Performance: PerformanceConfig{PerCallConcurrencyLimit: 1, GlobalConcurrencyLimit: 1, AdapterDeadline: 1},
		Matcher:     MatcherConfig{MinConfidence: 0.3, MaxResults: 10, SimilarityThreshold: 0.8},
		Indexer:     IndexerConfig{DeletionGrace: "two_pass", DeletionGraceWindow: 2},
		Sources: []domain.SourceConfig{
			{Name: "a", Type: "memorydoc"},
			{Name: "a", Type: "memorydoc"},
		},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate name")
}

func TestConfig_ValidateRejectsInvalidCacheStrategy(t *testing.T) {
	cfg := CacheSectionConfig{Strategy: "bogus", Memory: CacheMemoryConfig{MaxEntries: 1}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfig_ValidateRequiresRemoteAddrWhenEnabled(t *testing.T) {
	cfg := CacheRemoteConfig{Enabled: true, Breaker: CacheBreakerConfig{FailureThreshold: 1, Window: 1, OpenDuration: 1}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestSanitizer_RedactsRemotePasswordAndSourceSecrets(t *testing.T) {
	cfg := &Config{
		Cache: CacheSectionConfig{Remote: CacheRemoteConfig{Password: "hunter2"}},
		Sources: []domain.SourceConfig{
			{Name: "gh", Type: "github", AuthEnvRef: "GITHUB_TOKEN", Extra: map[string]any{"token": "abc123"}},
		},
	}
	sanitized := NewDefaultConfigSanitizer().Sanitize(cfg)
	assert.Equal(t, "***REDACTED***", sanitized.Cache.Remote.Password)
	assert.Equal(t, "***REDACTED***", sanitized.Sources[0].AuthEnvRef)
	assert.Equal(t, "***REDACTED***", sanitized.Sources[0].Extra["token"])
	assert.Equal(t, "hunter2", cfg.Cache.Remote.Password, "original config must be unmodified")
}
