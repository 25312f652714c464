package media

import (
	"context"

	"github.com/zfogg/sidechain/reader/pkg/api"
	"github.com/zfogg/sidechain/reader/pkg/logger"
)

// Fetcher loads the bytes of a media resource
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, src string) ([]byte, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, src string) ([]byte, error) {
	return f(ctx, src)
}

// HTTPFetcher downloads media through the API client
type HTTPFetcher struct {
	// MaxBytes rejects larger resources; 0 means unlimited
	MaxBytes int64
}

// Fetch implements Fetcher
func (f HTTPFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	return api.DownloadMedia(ctx, src, f.MaxBytes)
}

// CachedFetcher serves resources from a Cache and fills it from Next
type CachedFetcher struct {
	Cache *Cache
	Next  Fetcher
}

// Fetch implements Fetcher
func (f CachedFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if data, ok := f.Cache.Get(src); ok {
		logger.Debug("Media cache hit", "src", src, "bytes", len(data))
		return data, nil
	}

	data, err := f.Next.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	if err := f.Cache.Put(src, data); err != nil {
		logger.Warn("Failed to cache media", "src", src, "error", err)
	}
	return data, nil
}
