package index

import "testing"

func TestFingerprint_DeterministicAcrossMetadataOrder(t *testing.T) {
	f := NewFingerprinter()
	a := f.Fingerprint("body", map[string]string{"a": "1", "b": "2"}, nil)
	b := f.Fingerprint("body", map[string]string{"b": "2", "a": "1"}, nil)
	if !a.Equal(b) {
		t.Fatal("expected metadata map iteration order to not affect the fingerprint")
	}
}

func TestFingerprint_ContentChangeOnlyAffectsContentPart(t *testing.T) {
	f := NewFingerprinter()
	meta := map[string]string{"a": "1"}
	a := f.Fingerprint("body v1", meta, []string{"intro"})
	b := f.Fingerprint("body v2", meta, []string{"intro"})

	if a.Content == b.Content {
		t.Fatal("expected differing body to change the content hash")
	}
	if a.Metadata != b.Metadata {
		t.Fatal("expected unchanged metadata to keep the same hash")
	}
	if a.Structure != b.Structure {
		t.Fatal("expected unchanged structure to keep the same hash")
	}
}

func TestFingerprint_StructureOrderMatters(t *testing.T) {
	f := NewFingerprinter()
	a := f.Fingerprint("body", nil, []string{"intro", "steps"})
	b := f.Fingerprint("body", nil, []string{"steps", "intro"})
	if a.Structure == b.Structure {
		t.Fatal("expected structure hash to be order-sensitive")
	}
}

func TestQualityScore_BoundedAtTen(t *testing.T) {
	meta := map[string]string{"a": "1", "b": "2", "c": "3", "d": "4", "e": "5"}
	score := QualityScore(string(make([]byte, 1000)), meta, []string{"intro", "steps"})
	if score != 10 {
		t.Fatalf("expected max score of 10, got %v", score)
	}
}
