package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/zfogg/sidechain/reader/pkg/api"
	"github.com/zfogg/sidechain/reader/pkg/formatter"
	"github.com/zfogg/sidechain/reader/pkg/logger"
	"github.com/zfogg/sidechain/reader/pkg/media"
	"github.com/zfogg/sidechain/reader/pkg/metrics"
	"github.com/zfogg/sidechain/reader/pkg/output"
	"github.com/zfogg/sidechain/reader/pkg/scroll"
	"github.com/zfogg/sidechain/reader/pkg/visibility"
)

// mediaConcurrency bounds parallel downloads during a dump
const mediaConcurrency = 4

// FeedService provides headless feed operations
type FeedService struct {
	fetch   FetchFunc
	fetcher media.Fetcher
	metrics *metrics.Collector
}

// Option configures a FeedService
type Option func(*FeedService)

// WithFetchFunc replaces the API page fetch
func WithFetchFunc(f FetchFunc) Option {
	return func(fs *FeedService) { fs.fetch = f }
}

// WithMediaFetcher sets the fetcher used for media previews
func WithMediaFetcher(f media.Fetcher) Option {
	return func(fs *FeedService) { fs.fetcher = f }
}

// WithMetrics records controller and loader activity
func WithMetrics(c *metrics.Collector) Option {
	return func(fs *FeedService) { fs.metrics = c }
}

// NewFeedService creates a new feed service
func NewFeedService(opts ...Option) *FeedService {
	fs := &FeedService{}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// DumpOptions configures Dump
type DumpOptions struct {
	FeedType string
	PageSize int
	// MaxPages stops after this many pages; 0 reads until exhausted
	MaxPages int
	// Media downloads each post's preview
	Media bool
}

// DumpResult is everything a dump loaded
type DumpResult struct {
	FeedType  string
	Posts     []api.Post
	Pages     int
	Exhausted bool
	// Media holds loader state by post ID when previews were requested
	Media map[string]media.State
}

// Dump pages through a feed without a viewport. The detector runs in eager
// mode, so every sentinel counts as visible the moment it is attached and
// the controller loads pages back to back.
func (fs *FeedService) Dump(ctx context.Context, opts DumpOptions) (*DumpResult, error) {
	logger.Debug("Dumping feed", "type", opts.FeedType, "max_pages", opts.MaxPages)

	pager := NewFeedPager(opts.FeedType, opts.PageSize, fs.fetch)
	detector := visibility.NewDetector(nil, visibility.WithMetrics(fs.metrics))

	scrollOpts := scroll.DefaultOptions()
	scrollOpts.Metrics = fs.metrics
	ctl := scroll.New(ctx, detector, pager.Load, scrollOpts)
	defer ctl.Close()

	// One row per post; only the last is ever attached
	var rows []*visibility.Box
	sentinel := func() *visibility.Box {
		for len(rows) < pager.Len() {
			rows = append(rows, visibility.NewBox(visibility.Rect{Y: len(rows), W: 1, H: 1}))
		}
		return rows[len(rows)-1]
	}

	ctl.Retry()
	ctl.Wait()

	for {
		st := ctl.State()
		if st.Err != nil {
			return fs.collect(ctx, pager, st, opts), st.Err
		}
		if !st.HasMore || (opts.MaxPages > 0 && st.Pages >= opts.MaxPages) {
			break
		}
		if err := ctx.Err(); err != nil {
			return fs.collect(ctx, pager, st, opts), err
		}

		before := pager.Len()
		if before == 0 {
			ctl.Retry()
		} else {
			ctl.Attach(sentinel())
		}
		ctl.Wait()

		if pager.Len() == before && ctl.State().Err == nil && ctl.State().HasMore {
			// Nothing new to attach to, and retrying would ask for the same
			// empty page forever
			logger.Warn("Feed returned an empty page but claims more, stopping", "page", ctl.State().Pages)
			break
		}
	}

	return fs.collect(ctx, pager, ctl.State(), opts), nil
}

func (fs *FeedService) collect(ctx context.Context, pager *FeedPager, st scroll.State, opts DumpOptions) *DumpResult {
	result := &DumpResult{
		FeedType:  opts.FeedType,
		Posts:     pager.Posts(),
		Pages:     st.Pages,
		Exhausted: !st.HasMore,
	}
	if opts.Media {
		result.Media = fs.loadMedia(ctx, result.Posts)
	}
	return result
}

// loadMedia requests every preview through eager lazy loaders
func (fs *FeedService) loadMedia(ctx context.Context, posts []api.Post) map[string]media.State {
	detector := visibility.NewDetector(nil, visibility.WithMetrics(fs.metrics))
	sem := make(chan struct{}, mediaConcurrency)
	next := fs.fetcher
	if next == nil {
		next = media.HTTPFetcher{}
	}
	limited := media.FetcherFunc(func(ctx context.Context, src string) ([]byte, error) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		defer func() { <-sem }()
		return next.Fetch(ctx, src)
	})

	opts := media.DefaultLoaderOptions()
	opts.Metrics = fs.metrics

	loaders := make(map[string]*media.Loader, len(posts))
	for i, post := range posts {
		if post.MediaURL() == "" {
			continue
		}
		l := media.NewLoader(ctx, post.MediaURL(), detector, limited, opts)
		l.Attach(visibility.NewBox(visibility.Rect{Y: i, W: 1, H: 1}))
		loaders[post.ID] = l
	}

	states := make(map[string]media.State, len(loaders))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for id, l := range loaders {
		wg.Add(1)
		go func(id string, l *media.Loader) {
			defer wg.Done()
			l.Wait()
			l.Close()
			mu.Lock()
			states[id] = l.State()
			mu.Unlock()
		}(id, l)
	}
	wg.Wait()
	return states
}

// DisplayDump prints a dump in the configured output format
func (fs *FeedService) DisplayDump(result *DumpResult) error {
	switch output.GetOutputFormat() {
	case output.FormatJSON:
		return output.PrintList(result.FeedType, result.Posts, nil)
	case output.FormatTable:
		headers := []string{"#", "ID", "Author", "Title", "BPM", "Key", "Likes"}
		if result.Media != nil {
			headers = append(headers, "Preview")
		}
		rows := make([][]string, 0, len(result.Posts))
		for i, post := range result.Posts {
			row := []string{
				strconv.Itoa(i + 1),
				post.ID,
				post.AuthorUsername,
				post.Title,
				strconv.Itoa(post.BPM),
				post.Key,
				strconv.Itoa(post.LikeCount),
			}
			if result.Media != nil {
				row = append(row, formatter.Preview(result.Media[post.ID]))
			}
			rows = append(rows, row)
		}
		return output.PrintList("", rows, headers)
	default:
		fs.displayFeed(result)
		return nil
	}
}

func (fs *FeedService) displayFeed(result *DumpResult) {
	output.PrintInfo("%s feed", result.FeedType)
	for i, post := range result.Posts {
		formatter.Bold.Printf("%d. %s\n", i+1, formatter.Byline(post))
		fmt.Printf("   %s\n", formatter.Stats(post))
		if result.Media != nil {
			fmt.Printf("   Preview: %s\n", formatter.Preview(result.Media[post.ID]))
		}
		fmt.Println()
	}

	status := "more available"
	if result.Exhausted {
		status = "end of feed"
	}
	fmt.Printf("Showing %d posts from %d pages (%s)\n", len(result.Posts), result.Pages, status)
}
