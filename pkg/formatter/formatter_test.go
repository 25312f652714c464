package formatter

import (
	"testing"

	"github.com/zfogg/sidechain/reader/pkg/api"
	"github.com/zfogg/sidechain/reader/pkg/media"
)

func TestByline(t *testing.T) {
	tests := []struct {
		post api.Post
		want string
	}{
		{api.Post{ID: "p1"}, "p1"},
		{api.Post{ID: "p1", Title: "Dusty Keys"}, "Dusty Keys"},
		{api.Post{ID: "p1", Title: "Dusty Keys", AuthorUsername: "mira"}, "Dusty Keys by @mira"},
	}

	for _, tt := range tests {
		if got := Byline(tt.post); got != tt.want {
			t.Errorf("Byline() = %q, want %q", got, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	p := api.Post{Duration: 95, BPM: 124, Key: "A minor", Genre: []string{"house", "disco"}, LikeCount: 3, PlayCount: 40}
	want := "1:35 | 124 BPM | A minor | house/disco | ♥ 3 | ▶ 40"
	if got := Stats(p); got != want {
		t.Errorf("Stats() = %q, want %q", got, want)
	}

	if got := Stats(api.Post{Duration: 7}); got != "0:07 | ♥ 0 | ▶ 0" {
		t.Errorf("Stats() = %q", got)
	}
}

func TestBytes(t *testing.T) {
	tests := map[int64]string{
		12:      "12 B",
		2048:    "2.0 KiB",
		3 << 20: "3.0 MiB",
	}
	for n, want := range tests {
		if got := Bytes(n); got != want {
			t.Errorf("Bytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		st   media.State
		want string
	}{
		{media.State{Loading: true}, "-"},
		{media.State{Requested: "a", Loading: true}, "loading"},
		{media.State{Requested: "a", Failed: true}, "error"},
		{media.State{Requested: "a", Retrying: true}, "retrying"},
		{media.State{Requested: "a", Size: 3 << 20}, "3.0 MiB"},
	}

	for _, tt := range tests {
		if got := Preview(tt.st); got != tt.want {
			t.Errorf("Preview(%+v) = %q, want %q", tt.st, got, tt.want)
		}
	}
}
