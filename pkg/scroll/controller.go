// Package scroll drives paginated loading from the visibility of a sentinel
// element, conventionally the last rendered item of a list.
//
// A Controller issues at most one load at a time and stops for good once a
// load reports there are no more pages. Failed loads clear the in-flight flag
// and keep HasMore, so the next trigger or an explicit Retry tries again.
package scroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/logger"
	"github.com/zfogg/sidechain/reader/pkg/metrics"
	"github.com/zfogg/sidechain/reader/pkg/visibility"
)

// Skip reasons reported to metrics
const (
	skipClosed    = "closed"
	skipInFlight  = "in_flight"
	skipExhausted = "exhausted"
)

// Sentinel watch defaults, applied by New to zero Options fields
const (
	DefaultThreshold  = 0.8
	DefaultRootMargin = "100px"
)

var errNoLoadFunc = errors.New("no load function set")

// LoadFunc fetches the next page and reports whether more pages may exist.
// It must always return, either a hasMore value or an error.
type LoadFunc func(ctx context.Context) (hasMore bool, err error)

// State is a snapshot of a controller's fetch state
type State struct {
	Loading bool
	HasMore bool
	// Pages counts successful loads
	Pages int
	// Err is the failure of the most recent load, cleared when the next starts
	Err error
}

// Options configures a Controller
type Options struct {
	// Threshold is the visible fraction of the sentinel that triggers a load.
	// Zero means DefaultThreshold; any overlap is a small positive value.
	Threshold float64
	// RootMargin grows the viewport before testing; empty means DefaultRootMargin
	RootMargin string
	// OnChange receives a snapshot after every state transition. It may run
	// on the load goroutine; call State for the latest value.
	OnChange func(State)
	// OnError receives each load failure after state has been updated
	OnError func(error)
	Metrics *metrics.Collector
}

// DefaultOptions returns the usual sentinel watch settings
func DefaultOptions() Options {
	return Options{
		Threshold:  DefaultThreshold,
		RootMargin: DefaultRootMargin,
	}
}

// Controller triggers page loads when its sentinel becomes visible
type Controller struct {
	ctx      context.Context
	detector *visibility.Detector
	opts     Options
	load     atomic.Pointer[LoadFunc]
	wg       sync.WaitGroup

	mu     sync.Mutex
	state  State
	closed bool
	target visibility.Element
	sub    *visibility.Subscription
}

// New creates a controller. ctx is handed to every load. A nil load fails
// each trigger with a fetch failure until SetLoadFunc provides one.
func New(ctx context.Context, detector *visibility.Detector, load LoadFunc, opts Options) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.RootMargin == "" {
		opts.RootMargin = DefaultRootMargin
	}
	if load == nil {
		load = func(context.Context) (bool, error) { return false, errNoLoadFunc }
	}
	c := &Controller{
		ctx:      ctx,
		detector: detector,
		opts:     opts,
		state:    State{HasMore: true},
	}
	c.SetLoadFunc(load)
	return c
}

// SetLoadFunc replaces the load function. Triggers already delivered but not
// yet started use the new function.
func (c *Controller) SetLoadFunc(load LoadFunc) {
	if load == nil {
		return
	}
	c.load.Store(&load)
}

// Attach moves the sentinel to el, releasing the watch on the previous one.
// Attaching the current sentinel again is a no-op; nil detaches.
func (c *Controller) Attach(el visibility.Element) {
	c.mu.Lock()
	if c.closed || el == c.target {
		c.mu.Unlock()
		return
	}
	old := c.sub
	c.sub = nil
	c.target = el
	c.mu.Unlock()

	old.Unwatch()
	if el == nil {
		return
	}

	// Watch may deliver synchronously, so no lock is held here
	sub := c.detector.Watch(el, visibility.WatchOptions{
		RootMargin: c.opts.RootMargin,
		Threshold:  c.opts.Threshold,
	}, c.onVisible)

	c.mu.Lock()
	if c.closed || c.target != el || c.sub != nil {
		// Superseded by a concurrent Attach or Close
		c.mu.Unlock()
		sub.Unwatch()
		return
	}
	c.sub = sub
	c.mu.Unlock()
}

// State returns the current fetch state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether a load is in flight
func (c *Controller) Loading() bool {
	return c.State().Loading
}

// HasMore reports whether more pages may exist
func (c *Controller) HasMore() bool {
	return c.State().HasMore
}

// Retry starts a load as if the sentinel had become visible. It returns
// false when a guard rejected it.
func (c *Controller) Retry() bool {
	return c.trigger()
}

// Close releases the sentinel watch. An in-flight load still completes.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.sub = nil
	c.target = nil
	c.mu.Unlock()

	sub.Unwatch()
}

// Wait blocks until no load is in flight
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) onVisible(visible bool) {
	if visible {
		c.trigger()
	}
}

func (c *Controller) trigger() bool {
	c.mu.Lock()
	var reason string
	switch {
	case c.closed:
		reason = skipClosed
	case c.state.Loading:
		reason = skipInFlight
	case !c.state.HasMore:
		reason = skipExhausted
	}
	if reason != "" {
		c.mu.Unlock()
		c.opts.Metrics.TriggerSkipped(reason)
		logger.Debug("Ignoring scroll trigger", "reason", reason)
		return false
	}

	c.state.Loading = true
	c.state.Err = nil
	page := c.state.Pages + 1
	load := *c.load.Load()
	c.wg.Add(1)
	snap := c.state
	c.mu.Unlock()

	logger.Debug("Loading page", "page", page)
	c.notify(snap)
	go c.run(load, page)
	return true
}

func (c *Controller) run(load LoadFunc, page int) {
	defer c.wg.Done()

	start := time.Now()
	hasMore, err := c.call(load)
	elapsed := time.Since(start)

	c.mu.Lock()
	c.state.Loading = false
	result := metrics.ResultMore
	switch {
	case err != nil:
		c.state.Err = clierrors.FetchFailureError(page, err)
		result = metrics.ResultError
	case !hasMore:
		c.state.HasMore = false
		c.state.Pages++
		result = metrics.ResultExhausted
	default:
		c.state.Pages++
	}
	snap := c.state
	c.mu.Unlock()

	c.opts.Metrics.PageFetched(result, elapsed)
	if err != nil {
		logger.Warn("Page load failed", "page", page, "error", err)
	} else {
		logger.Debug("Page loaded", "page", page, "has_more", hasMore, "elapsed", elapsed)
	}

	c.notify(snap)
	if err != nil && c.opts.OnError != nil {
		c.opts.OnError(snap.Err)
	}
}

// call runs load, converting a panic into an error so Loading is never stuck
func (c *Controller) call(load LoadFunc) (hasMore bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("load panicked: %v", r)
		}
	}()
	return load(c.ctx)
}

func (c *Controller) notify(s State) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(s)
	}
}
