package service

import (
	"context"
	"sync"

	"github.com/zfogg/sidechain/reader/pkg/api"
	"github.com/zfogg/sidechain/reader/pkg/logger"
)

// FetchFunc retrieves one page of a feed
type FetchFunc func(ctx context.Context, feedType string, page, pageSize int) (*api.FeedResponse, error)

// FeedPager accumulates the pages of one feed. Its Load method is the
// caller-side fetch function of a scroll controller: it appends the next page
// and reports whether another may exist.
type FeedPager struct {
	feedType string
	pageSize int
	fetch    FetchFunc

	mu    sync.Mutex
	posts []api.Post
	seen  map[string]struct{}
	next  int
}

// NewFeedPager creates a pager starting at page 1. A nil fetch uses the API.
func NewFeedPager(feedType string, pageSize int, fetch FetchFunc) *FeedPager {
	if fetch == nil {
		fetch = api.GetFeed
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &FeedPager{
		feedType: feedType,
		pageSize: pageSize,
		fetch:    fetch,
		seen:     make(map[string]struct{}),
		next:     1,
	}
}

// FeedType returns the feed being paged
func (p *FeedPager) FeedType() string {
	return p.feedType
}

// Load fetches the next page. A failed page is not skipped; the next call
// requests it again.
func (p *FeedPager) Load(ctx context.Context) (bool, error) {
	p.mu.Lock()
	page := p.next
	p.mu.Unlock()

	resp, err := p.fetch(ctx, p.feedType, page, p.pageSize)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	added := 0
	for _, post := range resp.Posts {
		// New posts shift offset-based pages, so earlier items can reappear
		if _, dup := p.seen[post.ID]; dup && post.ID != "" {
			continue
		}
		p.seen[post.ID] = struct{}{}
		p.posts = append(p.posts, post)
		added++
	}
	p.next = page + 1
	p.mu.Unlock()

	more := resp.More()
	logger.Debug("Feed page appended", "type", p.feedType, "page", page, "added", added, "has_more", more)
	return more, nil
}

// MaxSkippedPages bounds how many pages LoadFresh reads past that add no posts
const MaxSkippedPages = 3

// LoadFresh loads pages until one adds at least one post, the feed ends or
// fails, or MaxSkippedPages pages in a row added nothing. A scroll sentinel
// only moves when rows are added, so a page made entirely of duplicates would
// otherwise leave it in view with nothing left to trigger the next load.
func (p *FeedPager) LoadFresh(ctx context.Context) (bool, error) {
	for skipped := 0; ; skipped++ {
		before := p.Len()
		more, err := p.Load(ctx)
		if err != nil || !more || p.Len() > before || skipped == MaxSkippedPages {
			return more, err
		}
		logger.Debug("Feed page added no posts, reading the next", "type", p.feedType, "next", p.NextPage())
	}
}

// Posts returns a copy of the posts loaded so far
func (p *FeedPager) Posts() []api.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.Post(nil), p.posts...)
}

// Len returns the number of posts loaded so far
func (p *FeedPager) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts)
}

// NextPage returns the page the next Load requests
func (p *FeedPager) NextPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}
