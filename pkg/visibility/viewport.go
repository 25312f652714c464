package visibility

import (
	"sync"
	"sync/atomic"
)

// Viewport is a Platform for a terminal window scrolling over laid-out
// content. The visible root is rows [Top, Top+Height) and columns [0, Width).
//
// Scrolling, resizing and Refresh recompute every observation and report the
// ones whose intersection changed. Callbacks run after the viewport lock is
// released, in the order observations were registered.
type Viewport struct {
	mu     sync.Mutex
	top    int
	width  int
	height int
	cell   CellSize

	observations []*observation
}

type observation struct {
	target    Element
	margin    Margin
	threshold float64
	fn        func(Entry)
	last      Entry
	stopped   atomic.Bool
}

type delivery struct {
	obs   *observation
	entry Entry
}

// NewViewport creates a viewport of the given size in cells
func NewViewport(width, height int, cell CellSize) *Viewport {
	if cell.Width <= 0 || cell.Height <= 0 {
		cell = DefaultCellSize
	}
	return &Viewport{
		width:  max(width, 0),
		height: max(height, 0),
		cell:   cell,
	}
}

// Observe implements Platform
func (v *Viewport) Observe(target Element, margin Margin, threshold float64, fn func(Entry)) (func(), error) {
	o := &observation{
		target:    target,
		margin:    margin,
		threshold: threshold,
		fn:        fn,
	}

	v.mu.Lock()
	o.last = v.measure(o)
	v.observations = append(v.observations, o)
	initial := o.last
	v.mu.Unlock()

	fn(initial)

	return func() { v.remove(o) }, nil
}

func (v *Viewport) remove(o *observation) {
	if o.stopped.Swap(true) {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, cur := range v.observations {
		if cur == o {
			v.observations = append(v.observations[:i], v.observations[i+1:]...)
			return
		}
	}
}

// Root returns the visible window in content coordinates
func (v *Viewport) Root() Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.root()
}

func (v *Viewport) root() Rect {
	return Rect{X: 0, Y: v.top, W: v.width, H: v.height}
}

// Top returns the first visible row
func (v *Viewport) Top() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.top
}

// Observed returns the number of live observations
func (v *Viewport) Observed() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.observations)
}

// ScrollTo moves the first visible row to top
func (v *Viewport) ScrollTo(top int) {
	v.mu.Lock()
	v.top = max(top, 0)
	pending := v.recompute()
	v.mu.Unlock()
	v.emit(pending)
}

// ScrollBy moves the window by delta rows
func (v *Viewport) ScrollBy(delta int) {
	v.mu.Lock()
	v.top = max(v.top+delta, 0)
	pending := v.recompute()
	v.mu.Unlock()
	v.emit(pending)
}

// Resize changes the window size
func (v *Viewport) Resize(width, height int) {
	v.mu.Lock()
	v.width = max(width, 0)
	v.height = max(height, 0)
	pending := v.recompute()
	v.mu.Unlock()
	v.emit(pending)
}

// Refresh re-measures every observation after element bounds changed
func (v *Viewport) Refresh() {
	v.mu.Lock()
	pending := v.recompute()
	v.mu.Unlock()
	v.emit(pending)
}

func (v *Viewport) measure(o *observation) Entry {
	root := v.root()
	top, right, bottom, left := o.margin.Resolve(root, v.cell)
	ratio, overlaps := measure(root.Expand(top, right, bottom, left), o.target.Bounds())
	return Entry{
		Target:       o.target,
		Intersecting: overlaps && ratio >= o.threshold,
		Ratio:        ratio,
	}
}

func (v *Viewport) recompute() []delivery {
	var pending []delivery
	for _, o := range v.observations {
		e := v.measure(o)
		changed := e.Intersecting != o.last.Intersecting
		o.last = e
		if changed {
			pending = append(pending, delivery{obs: o, entry: e})
		}
	}
	return pending
}

func (v *Viewport) emit(pending []delivery) {
	for _, d := range pending {
		// An earlier callback may have released this watcher
		if d.obs.stopped.Load() {
			continue
		}
		d.obs.fn(d.entry)
	}
}
