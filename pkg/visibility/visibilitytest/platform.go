// Package visibilitytest provides a hand-driven visibility Platform for tests.
package visibilitytest

import (
	"sync"

	"github.com/zfogg/sidechain/reader/pkg/visibility"
)

// Platform records Observe/stop calls and delivers entries only when told to
type Platform struct {
	// InitialVisible is reported as the initial entry of every observation
	InitialVisible bool
	// Fail, when set, is returned from Observe
	Fail error

	mu           sync.Mutex
	next         int
	watches      map[int]*watch
	subscribes   int
	unsubscribes int
	lastMargin   visibility.Margin
	lastThresh   float64
}

type watch struct {
	target visibility.Element
	fn     func(visibility.Entry)
}

// New creates an empty platform
func New() *Platform {
	return &Platform{watches: make(map[int]*watch)}
}

// Observe implements visibility.Platform
func (p *Platform) Observe(target visibility.Element, margin visibility.Margin, threshold float64, fn func(visibility.Entry)) (func(), error) {
	p.mu.Lock()
	if p.Fail != nil {
		err := p.Fail
		p.mu.Unlock()
		return nil, err
	}
	id := p.next
	p.next++
	p.watches[id] = &watch{target: target, fn: fn}
	p.subscribes++
	p.lastMargin = margin
	p.lastThresh = threshold
	initial := p.InitialVisible
	p.mu.Unlock()

	fn(visibility.Entry{Target: target, Intersecting: initial, Ratio: ratio(initial)})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.watches, id)
			p.unsubscribes++
			p.mu.Unlock()
		})
	}, nil
}

// Emit reports visible for every live watch on target and returns how many were notified
func (p *Platform) Emit(target visibility.Element, visible bool) int {
	p.mu.Lock()
	var fns []func(visibility.Entry)
	for _, w := range p.watches {
		if w.target == target {
			fns = append(fns, w.fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(visibility.Entry{Target: target, Intersecting: visible, Ratio: ratio(visible)})
	}
	return len(fns)
}

// Subscribes returns the number of Observe calls that succeeded
func (p *Platform) Subscribes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribes
}

// Unsubscribes returns the number of watchers released
func (p *Platform) Unsubscribes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unsubscribes
}

// Active returns the number of live watchers
func (p *Platform) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}

// Watching reports whether target has a live watcher
func (p *Platform) Watching(target visibility.Element) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, w := range p.watches {
		if w.target == target {
			return true
		}
	}
	return false
}

// LastOptions returns the margin and threshold of the most recent Observe
func (p *Platform) LastOptions() (visibility.Margin, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastMargin, p.lastThresh
}

func ratio(visible bool) float64 {
	if visible {
		return 1
	}
	return 0
}
