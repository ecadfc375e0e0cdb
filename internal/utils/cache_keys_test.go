package utils

import "testing"

func TestBuildProductsBrowseCacheKey(t *testing.T) {
	a := BuildProductsBrowseCacheKey(" Featured ", 6)
	b := BuildProductsBrowseCacheKey("featured", 6)
	if a != b {
		t.Fatalf("expected normalized keys to match: %q vs %q", a, b)
	}

	if BuildProductsBrowseCacheKey("Trending", 6) == BuildProductsBrowseCacheKey("Trending", 0) {
		t.Fatal("limit must be part of the key")
	}
}
