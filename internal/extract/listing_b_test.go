package extract

import "testing"

func TestToFullResolutionRewritesThumbSegment(t *testing.T) {
	got := toFullResolution("https://cdn.example.com/photos/thumb/123.jpg")
	want := "https://cdn.example.com/photos/original/123.jpg"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToFullResolutionPassesThroughUnknownShape(t *testing.T) {
	u := "https://cdn.example.com/photos/full/123.jpg"
	if got := toFullResolution(u); got != u {
		t.Fatalf("got %q, want unchanged %q", got, u)
	}
}
