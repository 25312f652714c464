package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/sidechain/reader/pkg/api"
	"github.com/zfogg/sidechain/reader/pkg/config"
	"github.com/zfogg/sidechain/reader/pkg/logger"
	"github.com/zfogg/sidechain/reader/pkg/media"
	"github.com/zfogg/sidechain/reader/pkg/scroll"
	"github.com/zfogg/sidechain/reader/pkg/service"
	"github.com/zfogg/sidechain/reader/pkg/tui"
	"github.com/zfogg/sidechain/reader/pkg/visibility"
)

var (
	feedPageSize int
	feedMaxPages int
	feedMedia    bool
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Feed commands",
	Long:  "Browse and export Sidechain feeds",
}

var feedBrowseCmd = &cobra.Command{
	Use:       "browse [timeline|global|trending|for-you]",
	Short:     "Browse a feed interactively",
	Long:      "Open a scrolling reader. Pages load as you reach the end of the list and waveform previews load as posts come into view.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: api.FeedTypes,
	RunE: func(cmd *cobra.Command, args []string) error {
		feedType, err := feedTypeArg(args)
		if err != nil {
			return err
		}

		fetcher, closeCache := mediaFetcher()
		defer closeCache()

		scrollOpts := scroll.DefaultOptions()
		scrollOpts.Threshold = config.GetFloat64("scroll.threshold")
		scrollOpts.RootMargin = config.GetString("scroll.root_margin")

		return tui.Run(cmd.Context(), tui.Options{
			Pager:       service.NewFeedPager(feedType, pageSize(), nil),
			Fetcher:     fetcher,
			Scroll:      scrollOpts,
			MediaMargin: config.GetString("media.root_margin"),
			Cell:        cellSize(),
			Metrics:     collector,
		})
	},
}

var feedDumpCmd = &cobra.Command{
	Use:       "dump [timeline|global|trending|for-you]",
	Short:     "Print a feed without the interactive reader",
	Long:      "Load pages back to back until the feed is exhausted or --max-pages is reached, then print every post.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: api.FeedTypes,
	RunE: func(cmd *cobra.Command, args []string) error {
		feedType, err := feedTypeArg(args)
		if err != nil {
			return err
		}

		opts := []service.Option{service.WithMetrics(collector)}
		if feedMedia {
			fetcher, closeCache := mediaFetcher()
			defer closeCache()
			opts = append(opts, service.WithMediaFetcher(fetcher))
		}

		feedService := service.NewFeedService(opts...)
		result, err := feedService.Dump(cmd.Context(), service.DumpOptions{
			FeedType: feedType,
			PageSize: pageSize(),
			MaxPages: feedMaxPages,
			Media:    feedMedia,
		})
		if result != nil {
			if displayErr := feedService.DisplayDump(result); displayErr != nil {
				return displayErr
			}
		}
		return err
	},
}

func feedTypeArg(args []string) (string, error) {
	feedType := config.GetString("feed.type")
	if len(args) > 0 {
		feedType = args[0]
	}
	if err := api.ValidateFeedType(feedType); err != nil {
		return "", err
	}
	return feedType, nil
}

func pageSize() int {
	if feedPageSize > 0 {
		return feedPageSize
	}
	return config.GetInt("feed.page_size")
}

func cellSize() visibility.CellSize {
	return visibility.CellSize{
		Width:  config.GetInt("viewport.cell_width"),
		Height: config.GetInt("viewport.cell_height"),
	}
}

// mediaFetcher returns the cached HTTP fetcher. If the cache file cannot be
// opened, for example while another reader holds it, previews fall back to a
// memory cache for this run.
func mediaFetcher() (media.Fetcher, func()) {
	cache, err := media.OpenCache(config.GetString("media.cache_file"))
	if err != nil {
		logger.Warn("Media cache unavailable, using memory", "error", err)
		cache, _ = media.OpenCache("")
	}

	fetcher := media.CachedFetcher{
		Cache: cache,
		Next:  media.HTTPFetcher{MaxBytes: config.GetInt64("media.max_bytes")},
	}
	return fetcher, func() {
		if err := cache.Close(); err != nil {
			logger.Warn("Failed to close media cache", "error", err)
		}
	}
}

func init() {
	feedCmd.PersistentFlags().IntVar(&feedPageSize, "page-size", 0, "Posts per page (default: feed.page_size)")

	feedDumpCmd.Flags().IntVar(&feedMaxPages, "max-pages", 0, "Stop after this many pages (0 reads until exhausted)")
	feedDumpCmd.Flags().BoolVar(&feedMedia, "media", false, "Download each post's preview")

	feedCmd.AddCommand(feedBrowseCmd)
	feedCmd.AddCommand(feedDumpCmd)
}
