// Package index maintains the engine's document corpus: per-adapter
// fingerprint tracking, change detection against the prior pass, and
// atomic corpus-snapshot publication for the matcher (spec §4.4).
package index

import (
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/relentless-ops/runbook-engine/internal/domain"
)

// Fingerprinter computes the three-part composite fingerprint over a
// Document's content, metadata, and structure. Grounded on the teacher's
// FNV-1a sorted-label hashing (internal/core/services/fingerprint.go),
// generalized from alert labels to document content/metadata/structure.
type Fingerprinter struct{}

// NewFingerprinter builds a Fingerprinter. It holds no state; it exists
// as a type so call sites read like the rest of the corpus's
// service-object style rather than a bag of free functions.
func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// Fingerprint computes the composite fingerprint for a document, given
// its raw body, metadata map, and a structural shape descriptor (e.g.
// the ordered list of section headings or procedure step count) that
// adapters derive from their own source format.
func (f *Fingerprinter) Fingerprint(body string, metadata map[string]string, structureParts []string) domain.Fingerprint {
	return domain.Fingerprint{
		Content:   hashString(body),
		Metadata:  hashLabels(metadata),
		Structure: hashStrings(structureParts),
	}
}

// hashString FNV-1a hashes a single string to a 16-character hex digest.
func hashString(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}

// hashLabels sorts keys for deterministic ordering before hashing, same
// approach as the teacher's generateFNV1a.
func hashLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return hashString("")
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(labels[k]))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// hashStrings hashes an ordered sequence, used for the structure part
// where order itself is meaningful (e.g. section/heading order).
func hashStrings(parts []string) string {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// QualityScore scores a document 0-10 on metadata completeness, content
// length, and structure presence (spec §4.4 "Quality metrics").
func QualityScore(body string, metadata map[string]string, structureParts []string) float64 {
	score := 0.0

	switch {
	case len(metadata) >= 5:
		score += 4
	case len(metadata) >= 2:
		score += 2
	case len(metadata) >= 1:
		score += 1
	}

	switch {
	case len(body) >= 500:
		score += 4
	case len(body) >= 100:
		score += 2
	case len(body) > 0:
		score += 1
	}

	if len(structureParts) > 0 {
		score += 2
	}

	if score > 10 {
		score = 10
	}
	return score
}
