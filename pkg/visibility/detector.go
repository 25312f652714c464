// Package visibility reports whether laid-out elements intersect a viewport.
//
// A Detector wraps a Platform, the host's intersection primitive, and hands
// out Subscriptions. Each subscription owns exactly one platform watcher and
// must be released with Unwatch when its element goes away or is replaced.
// When no platform is available the detector degrades to eager mode and
// reports every element as visible.
package visibility

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	clierrors "github.com/zfogg/sidechain/reader/pkg/errors"
	"github.com/zfogg/sidechain/reader/pkg/logger"
	"github.com/zfogg/sidechain/reader/pkg/metrics"
)

// ErrUnavailable is returned by a Platform that cannot observe elements
var ErrUnavailable = errors.New("visibility: observation unavailable")

// Entry is one intersection report for a target
type Entry struct {
	Target       Element
	Intersecting bool
	Ratio        float64
}

// Platform is the host intersection primitive. Observe reports an initial
// entry and then one entry per change of Intersecting. stop releases the
// watcher and must be safe to call more than once.
type Platform interface {
	Observe(target Element, margin Margin, threshold float64, fn func(Entry)) (stop func(), err error)
}

// WatchOptions configures a single subscription
type WatchOptions struct {
	// RootMargin grows (or shrinks) the viewport before testing, e.g. "100px"
	RootMargin string
	// Threshold is the visible fraction of the element required, in [0,1]
	Threshold float64
	// Once releases the subscription after the first visible report
	Once bool
}

// Detector hands out visibility subscriptions over a Platform
type Detector struct {
	platform Platform
	metrics  *metrics.Collector

	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription

	degradeOnce sync.Once
}

// DetectorOption configures a Detector
type DetectorOption func(*Detector)

// WithMetrics reports live subscriptions to c
func WithMetrics(c *metrics.Collector) DetectorOption {
	return func(d *Detector) {
		d.metrics = c
	}
}

// NewDetector creates a detector. A nil platform selects eager mode.
func NewDetector(p Platform, opts ...DetectorOption) *Detector {
	d := &Detector{
		platform: p,
		subs:     make(map[uuid.UUID]*Subscription),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Eager reports whether the detector treats every element as visible
func (d *Detector) Eager() bool {
	return d.platform == nil
}

// Active returns the number of live subscriptions
func (d *Detector) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}

// Watch starts observing el and calls fn with each intersection change.
// fn may run before Watch returns and must not be invoked with locks held
// that Unwatch or Watch also take.
func (d *Detector) Watch(el Element, opts WatchOptions, fn func(visible bool)) *Subscription {
	margin, err := ParseMargin(opts.RootMargin)
	if err != nil {
		logger.Warn("Invalid root margin, using 0px", "margin", opts.RootMargin, "error", err)
		margin = Margin{}
	}
	threshold := min(max(opts.Threshold, 0), 1)

	sub := &Subscription{
		ID:       uuid.New(),
		detector: d,
		once:     opts.Once,
		fn:       fn,
	}
	d.register(sub)

	if d.platform == nil {
		d.degrade(nil)
		sub.deliver(true)
		return sub
	}

	stop, err := d.platform.Observe(el, margin, threshold, func(e Entry) {
		sub.deliver(e.Intersecting)
	})
	if err != nil {
		d.degrade(err)
		sub.deliver(true)
		return sub
	}
	sub.attach(stop)

	logger.Debug("Watching element", "subscription", sub.ID, "margin", margin.String(), "threshold", threshold, "once", opts.Once)
	return sub
}

func (d *Detector) degrade(cause error) {
	d.degradeOnce.Do(func() {
		logger.Warn("Visibility detector degraded to eager loading", "error", clierrors.WatcherUnavailableError(cause))
	})
}

func (d *Detector) register(s *Subscription) {
	d.mu.Lock()
	d.subs[s.ID] = s
	d.mu.Unlock()
	d.metrics.WatcherAdded()
}

func (d *Detector) unregister(s *Subscription) {
	d.mu.Lock()
	_, ok := d.subs[s.ID]
	delete(d.subs, s.ID)
	d.mu.Unlock()
	if ok {
		d.metrics.WatcherRemoved()
	}
}

// Subscription is a live watch on one element
type Subscription struct {
	ID uuid.UUID

	detector *Detector
	once     bool
	fn       func(bool)

	mu     sync.Mutex
	stop   func()
	closed bool
}

// Unwatch stops observation and releases the platform watcher. It is safe
// to call any number of times, from any goroutine.
func (s *Subscription) Unwatch() {
	if s == nil {
		return
	}
	stop, ok := s.close()
	if !ok {
		return
	}
	if stop != nil {
		stop()
	}
	s.detector.unregister(s)
}

// Closed reports whether the subscription has been released
func (s *Subscription) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Subscription) close() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.closed = true
	stop := s.stop
	s.stop = nil
	return stop, true
}

// attach stores the platform stop func. If Unwatch already ran (a one-shot
// that fired during Observe), the watcher is released right away.
func (s *Subscription) attach(stop func()) {
	s.mu.Lock()
	if !s.closed {
		s.stop = stop
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Subscription) deliver(visible bool) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	if s.once {
		if !visible {
			return
		}
		// Whoever releases the one-shot first owns the only delivery
		stop, ok := s.close()
		if !ok {
			return
		}
		if stop != nil {
			stop()
		}
		s.detector.unregister(s)
	}

	if s.fn != nil {
		s.fn(visible)
	}
}
