package cache

import "testing"

func TestKey_OrderAndCaseInsensitive(t *testing.T) {
	a := Key("search_runbooks", map[string]any{"alert_type": "DiskFull", "severity": "high"}, 3)
	b := Key("search_runbooks", map[string]any{"severity": "HIGH", "alert_type": "diskfull"}, 3)
	if a != b {
		t.Fatalf("expected normalized keys to match, got %q vs %q", a, b)
	}
}

func TestKey_DifferentEpochDiffers(t *testing.T) {
	a := Key("search_runbooks", map[string]any{"alert_type": "disk_full"}, 1)
	b := Key("search_runbooks", map[string]any{"alert_type": "disk_full"}, 2)
	if a == b {
		t.Fatal("expected different corpus epochs to produce different keys")
	}
}

func TestKey_ZeroValueArgsOmitted(t *testing.T) {
	a := Key("search_runbooks", map[string]any{"alert_type": "disk_full", "max_results": 0}, 1)
	b := Key("search_runbooks", map[string]any{"alert_type": "disk_full"}, 1)
	if a != b {
		t.Fatal("expected a zero-value argument to be equivalent to an omitted one")
	}
}

func TestKey_SliceArgumentOrderIndependent(t *testing.T) {
	a := Key("search_knowledge_base", map[string]any{"tags": []string{"b", "a"}}, 1)
	b := Key("search_knowledge_base", map[string]any{"tags": []string{"a", "b"}}, 1)
	if a != b {
		t.Fatal("expected slice argument order to not affect the cache key")
	}
}
