package cmd

import (
	"testing"

	"github.com/zfogg/sidechain/reader/pkg/config"
	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/visibility"
)

// TestFeedTypeArg validates feed type resolution from args and config
func TestFeedTypeArg(t *testing.T) {
	config.Set("feed.type", "global")

	testCases := []struct {
		args   []string
		expect string
		name   string
	}{
		{nil, "global", "config default"},
		{[]string{"for-you"}, "for-you", "explicit argument"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			feedType, err := feedTypeArg(tc.args)
			if err != nil {
				t.Fatalf("feedTypeArg failed: %v", err)
			}
			if feedType != tc.expect {
				t.Errorf("Expected %s, got %s", tc.expect, feedType)
			}
		})
	}

	if _, err := feedTypeArg([]string{"latest"}); !clierrors.IsType(err, clierrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestPageSizeFlagOverridesConfig(t *testing.T) {
	config.Set("feed.page_size", 15)
	t.Cleanup(func() { feedPageSize = 0 })

	if got := pageSize(); got != 15 {
		t.Errorf("Expected config page size 15, got %d", got)
	}
	feedPageSize = 40
	if got := pageSize(); got != 40 {
		t.Errorf("Expected flag page size 40, got %d", got)
	}
}

func TestCellSizeFromConfig(t *testing.T) {
	config.Set("viewport.cell_width", 10)
	config.Set("viewport.cell_height", 20)

	if got := cellSize(); got != (visibility.CellSize{Width: 10, Height: 20}) {
		t.Errorf("unexpected cell size: %+v", got)
	}
}

func TestMediaFetcherFallsBackToMemory(t *testing.T) {
	// a directory cannot be opened as a bolt file
	config.Set("media.cache_file", t.TempDir())

	fetcher, closeCache := mediaFetcher()
	defer closeCache()
	if fetcher == nil {
		t.Error("Expected a memory-backed fetcher")
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"feed", "browse"},
		{"feed", "dump"},
		{"media", "cache", "stats"},
		{"media", "cache", "clear"},
		{"config", "show"},
		{"version"},
	} {
		found, _, err := rootCmd.Find(path)
		if err != nil {
			t.Errorf("%v: %v", path, err)
			continue
		}
		if found.Name() != path[len(path)-1] {
			t.Errorf("%v resolved to %s", path, found.Name())
		}
	}
}
