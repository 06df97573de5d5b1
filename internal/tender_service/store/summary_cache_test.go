package store

import (
	"strings"
	"testing"
	"time"
)

func TestSummaryCacheKey(t *testing.T) {
	c := NewSummaryCache(nil, time.Hour)

	k1 := c.Key("tender.pdf", "key deadlines", "executive_bullets", "standard")
	k2 := c.Key("tender.pdf", "key deadlines", "executive_bullets", "standard")
	if k1 != k2 {
		t.Errorf("Key is not deterministic: %q vs %q", k1, k2)
	}

	if !strings.HasPrefix(k1, "summary:tender.pdf:") {
		t.Errorf("Key %q is missing the identity prefix", k1)
	}

	// Different focus questions, formats and depths cache separately.
	if k1 == c.Key("tender.pdf", "penalty clauses", "executive_bullets", "standard") {
		t.Error("Keys for different queries collide")
	}
	if k1 == c.Key("tender.pdf", "key deadlines", "technical_narrative", "standard") {
		t.Error("Keys for different formats collide")
	}
	if k1 == c.Key("tender.pdf", "key deadlines", "executive_bullets", "deep_dive") {
		t.Error("Keys for different depths collide")
	}
	if k1 == c.Key("other.pdf", "key deadlines", "executive_bullets", "standard") {
		t.Error("Keys for different documents collide")
	}
}
