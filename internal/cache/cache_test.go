package cache

import (
	"testing"

	"github.com/collabscope/collabscope/pkg/models"
)

func TestRatingCacheRoundTrip(t *testing.T) {
	c, err := New(t.TempDir(), 1, true)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}

	rating := models.EffortRating{EffortScore: 7, Complexity: 5, Novelty: 3, Label: models.LabelFeature, Confidence: 0.8}
	c.Put("model|msg|diff", rating)

	got, ok := c.Get("model|msg|diff")
	if !ok {
		t.Fatal("cache miss after put")
	}
	if got != rating {
		t.Errorf("got = %+v, want %+v", got, rating)
	}

	if _, ok := c.Get("other-key"); ok {
		t.Error("unexpected hit for unknown key")
	}
}

func TestRatingCacheDisabled(t *testing.T) {
	c, err := New("", 1, false)
	if err != nil {
		t.Fatalf("new disabled cache: %v", err)
	}
	c.Put("k", models.TrivialRating("x"))
	if _, ok := c.Get("k"); ok {
		t.Error("disabled cache returned a hit")
	}
}

func TestRatingCacheClear(t *testing.T) {
	c, err := New(t.TempDir(), 1, true)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	c.Put("k", models.TrivialRating("x"))
	if err := c.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("hit after clear")
	}
}

func TestHashKeyDistinct(t *testing.T) {
	if HashKey("a") == HashKey("b") {
		t.Error("distinct keys hash equal")
	}
	if len(HashKey("a")) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(HashKey("a")))
	}
}
