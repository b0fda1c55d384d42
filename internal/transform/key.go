package transform

import (
	"crypto/md5" //nolint:gosec // cache fingerprint, not a security boundary
	"crypto/sha256"
	"encoding/hex"
)

// Key is the derived cache identity of a transformation request.
type Key struct {
	// CacheKey uniquely identifies (content, kind, source, variant).
	CacheKey string

	// SourceHash fingerprints the exact source text; a changed chapter
	// produces a different hash and therefore a different cache key.
	SourceHash string

	// VariantHash distinguishes the transformation variant: the language tag
	// for translation, a digest of the canonical profile for personalization.
	VariantHash string
}

// DeriveKey computes the cache identity of a request. Pure and deterministic:
// identical inputs always produce identical keys, which is what lets cache
// entries be shared across users and requests.
//
// variant is the canonical variant string: the lowercase language tag for
// translation, Profile.Canonical() for personalization.
func DeriveKey(contentID string, kind Kind, source, variant string) Key {
	sourceHash := md5hex(source)

	variantHash := variant
	if kind == KindPersonalization {
		variantHash = md5hex(variant)
	}

	sum := sha256.Sum256([]byte(contentID + "\n" + string(kind) + "\n" + sourceHash + "\n" + variantHash))

	return Key{
		CacheKey:    hex.EncodeToString(sum[:]),
		SourceHash:  sourceHash,
		VariantHash: variantHash,
	}
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // collision risk acceptable for cache keys
	return hex.EncodeToString(sum[:])
}
