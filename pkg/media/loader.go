// Package media defers media downloads until their element nears the
// viewport.
//
// A Loader watches its element once. The first time the element intersects
// the viewport (grown by the root margin) the source is requested; the watch
// is released before that happens and never re-armed. Until the download
// settles the caller shows a placeholder. Failed downloads end loading with
// an error so the placeholder never stalls, and Retry re-issues the request.
package media

import (
	"context"
	"errors"
	"sync"

	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/logger"
	"github.com/zfogg/sidechain/reader/pkg/metrics"
	"github.com/zfogg/sidechain/reader/pkg/visibility"
)

var errEmptySource = errors.New("empty source")

// State is a snapshot of a loader
type State struct {
	// InView flips to true once, on the first intersection
	InView bool
	// Loading is true until the first download settles
	Loading bool
	Failed  bool
	// Retrying is true while a Retry download is in flight
	Retrying bool
	// Requested is the source handed to the fetcher, empty until then
	Requested string
	Size      int
	Err       error
}

// LoaderOptions configures a Loader
type LoaderOptions struct {
	RootMargin string
	// OnChange receives a snapshot after every transition, possibly from the
	// download goroutine
	OnChange func(State)
	Metrics  *metrics.Collector
}

// DefaultLoaderOptions returns the usual media watch settings
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{RootMargin: "50px"}
}

// Loader lazily downloads one media resource
type Loader struct {
	ctx      context.Context
	src      string
	detector *visibility.Detector
	fetcher  Fetcher
	opts     LoaderOptions
	wg       sync.WaitGroup

	mu       sync.Mutex
	state    State
	data     []byte
	fetching bool
	closed   bool
	target   visibility.Element
	sub      *visibility.Subscription
}

// NewLoader creates a loader for src. Nothing is requested until the
// attached element becomes visible.
func NewLoader(ctx context.Context, src string, detector *visibility.Detector, fetcher Fetcher, opts LoaderOptions) *Loader {
	if ctx == nil {
		ctx = context.Background()
	}
	if fetcher == nil {
		fetcher = HTTPFetcher{}
	}
	return &Loader{
		ctx:      ctx,
		src:      src,
		detector: detector,
		fetcher:  fetcher,
		opts:     opts,
		state:    State{Loading: true},
	}
}

// Src returns the source the loader will request
func (l *Loader) Src() string {
	return l.src
}

// Attach watches el. Once the loader has been in view, attaching is a no-op.
func (l *Loader) Attach(el visibility.Element) {
	l.mu.Lock()
	if l.closed || l.state.InView || el == l.target {
		l.mu.Unlock()
		return
	}
	old := l.sub
	l.sub = nil
	l.target = el
	l.mu.Unlock()

	old.Unwatch()
	if el == nil {
		return
	}

	sub := l.detector.Watch(el, visibility.WatchOptions{
		RootMargin: l.opts.RootMargin,
		Once:       true,
	}, l.onVisible)

	l.mu.Lock()
	if l.closed || l.target != el || l.sub != nil || l.state.InView {
		l.mu.Unlock()
		// Already fired or superseded; Unwatch is a no-op if it fired
		sub.Unwatch()
		return
	}
	l.sub = sub
	l.mu.Unlock()
}

// State returns the current snapshot
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Data returns the downloaded bytes, nil until a download succeeds. The
// slice must not be modified.
func (l *Loader) Data() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.data
}

// Retry re-issues a failed download. It returns false if the loader has not
// failed or a download is already running.
func (l *Loader) Retry() bool {
	l.mu.Lock()
	if l.closed || !l.state.Failed || l.fetching || l.src == "" {
		l.mu.Unlock()
		return false
	}
	l.state.Failed = false
	l.state.Err = nil
	l.state.Retrying = true
	snap := l.start()
	l.mu.Unlock()

	logger.Debug("Retrying media", "src", l.src)
	l.notify(snap)
	return true
}

// Close releases the watch. A running download still completes.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	sub := l.sub
	l.sub = nil
	l.target = nil
	l.mu.Unlock()

	sub.Unwatch()
}

// Wait blocks until no download is running
func (l *Loader) Wait() {
	l.wg.Wait()
}

func (l *Loader) onVisible(visible bool) {
	if !visible {
		return
	}

	l.mu.Lock()
	if l.closed || l.state.InView {
		l.mu.Unlock()
		return
	}
	l.state.InView = true
	// The one-shot subscription has already released itself
	l.sub = nil

	if l.src == "" {
		l.state.Loading = false
		l.state.Failed = true
		l.state.Err = clierrors.ResourceLoadError(l.src, errEmptySource)
		snap := l.state
		l.mu.Unlock()

		l.opts.Metrics.MediaLoaded(metrics.ResultError)
		logger.Warn("Media has no source")
		l.notify(snap)
		return
	}

	l.state.Requested = l.src
	snap := l.start()
	l.mu.Unlock()

	logger.Debug("Media in view, requesting", "src", l.src)
	l.notify(snap)
}

// start launches a download; l.mu must be held
func (l *Loader) start() State {
	l.fetching = true
	l.wg.Add(1)
	go l.fetch()
	return l.state
}

func (l *Loader) fetch() {
	defer l.wg.Done()

	data, err := l.fetcher.Fetch(l.ctx, l.src)

	l.mu.Lock()
	l.fetching = false
	l.state.Loading = false
	l.state.Retrying = false
	result := metrics.ResultOK
	if err != nil {
		l.state.Failed = true
		l.state.Err = clierrors.ResourceLoadError(l.src, err)
		result = metrics.ResultError
	} else {
		l.data = data
		l.state.Size = len(data)
	}
	snap := l.state
	l.mu.Unlock()

	l.opts.Metrics.MediaLoaded(result)
	if err != nil {
		logger.Warn("Media load failed", "src", l.src, "error", err)
	} else {
		logger.Debug("Media loaded", "src", l.src, "bytes", len(data))
	}
	l.notify(snap)
}

func (l *Loader) notify(s State) {
	if l.opts.OnChange != nil {
		l.opts.OnChange(s)
	}
}
