package transform

import "testing"

func TestDeriveKeyDeterministic(t *testing.T) {
	a := DeriveKey("chapter-01", KindTranslation, "# Hello", "urdu")
	b := DeriveKey("chapter-01", KindTranslation, "# Hello", "urdu")

	if a != b {
		t.Errorf("identical inputs produced different keys:\n%+v\n%+v", a, b)
	}
	if len(a.CacheKey) != 64 {
		t.Errorf("CacheKey length = %d, want 64 hex chars", len(a.CacheKey))
	}
}

func TestDeriveKeySensitivity(t *testing.T) {
	base := DeriveKey("chapter-01", KindTranslation, "# Hello", "urdu")

	variants := map[string]Key{
		"content id": DeriveKey("chapter-02", KindTranslation, "# Hello", "urdu"),
		"kind":       DeriveKey("chapter-01", KindPersonalization, "# Hello", "urdu"),
		"source":     DeriveKey("chapter-01", KindTranslation, "# Hello!", "urdu"),
		"variant":    DeriveKey("chapter-01", KindTranslation, "# Hello", "arabic"),
	}
	for name, k := range variants {
		if k.CacheKey == base.CacheKey {
			t.Errorf("changing %s did not change the cache key", name)
		}
	}
}

func TestDeriveKeyVariantHash(t *testing.T) {
	// Translation keeps the language tag readable in the variant hash.
	tr := DeriveKey("c", KindTranslation, "x", "urdu")
	if tr.VariantHash != "urdu" {
		t.Errorf("translation VariantHash = %q, want %q", tr.VariantHash, "urdu")
	}

	// Personalization digests the canonical profile.
	canonical := Profile{}.Canonical()
	pe := DeriveKey("c", KindPersonalization, "x", canonical)
	if pe.VariantHash == canonical {
		t.Error("personalization VariantHash should be a digest, not the raw profile")
	}
	if len(pe.VariantHash) != 32 {
		t.Errorf("personalization VariantHash length = %d, want 32 hex chars", len(pe.VariantHash))
	}
}

func TestDeriveKeySourceHashTracksContent(t *testing.T) {
	a := DeriveKey("c", KindTranslation, "one", "urdu")
	b := DeriveKey("c", KindTranslation, "two", "urdu")
	if a.SourceHash == b.SourceHash {
		t.Error("different sources must produce different source hashes")
	}
}
