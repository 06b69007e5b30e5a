package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Key computes a deterministic cache key from the tool name, its
// arguments, and the corpus epoch at call time (spec §4.3 "Keying").
// Arguments are normalized before hashing so equivalent calls collapse
// to the same key regardless of map iteration order or slice argument
// ordering: keys are sorted, string values are lowercased, and any
// argument holding its type's zero value is omitted.
func Key(tool string, args map[string]any, corpusEpoch uint64) string {
	norm := normalizeArgs(args)
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d", tool, norm, corpusEpoch)
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeArgs(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := normalizeValue(args[k])
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

func normalizeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(t))
	case []string:
		if len(t) == 0 {
			return ""
		}
		sorted := append([]string(nil), t...)
		for i, s := range sorted {
			sorted[i] = strings.ToLower(strings.TrimSpace(s))
		}
		sort.Strings(sorted)
		return strings.Join(sorted, ",")
	case bool:
		if !t {
			return ""
		}
		return "true"
	case int:
		if t == 0 {
			return ""
		}
		return fmt.Sprintf("%d", t)
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
