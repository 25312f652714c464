package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/zfogg/sidechain/reader/pkg/api"
	"github.com/zfogg/sidechain/reader/pkg/media"
)

// Bold highlights post titles in text output
var Bold = color.New(color.Bold)

// Title returns the post title, falling back to its ID
func Title(p api.Post) string {
	if p.Title != "" {
		return p.Title
	}
	return p.ID
}

// Byline returns "Title by @author"
func Byline(p api.Post) string {
	if p.AuthorUsername == "" {
		return Title(p)
	}
	return fmt.Sprintf("%s by @%s", Title(p), p.AuthorUsername)
}

// Stats returns the one-line musical and social summary of a post
func Stats(p api.Post) string {
	parts := []string{Duration(p.Duration)}
	if p.BPM > 0 {
		parts = append(parts, fmt.Sprintf("%d BPM", p.BPM))
	}
	if p.Key != "" {
		parts = append(parts, p.Key)
	}
	if len(p.Genre) > 0 {
		parts = append(parts, strings.Join(p.Genre, "/"))
	}
	parts = append(parts, fmt.Sprintf("♥ %d", p.LikeCount), fmt.Sprintf("▶ %d", p.PlayCount))
	return strings.Join(parts, " | ")
}

// Duration formats seconds as m:ss
func Duration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), seconds%60)
}

// Bytes formats a byte count with binary units
func Bytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// Preview describes a lazy media loader's state
func Preview(st media.State) string {
	switch {
	case st.Requested == "" && !st.Failed:
		return "-"
	case st.Failed:
		return "error"
	case st.Retrying:
		return "retrying"
	case st.Loading:
		return "loading"
	default:
		return Bytes(int64(st.Size))
	}
}
