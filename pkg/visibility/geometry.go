package visibility

import "sync"

// Rect is a region in terminal cells. Y grows downward through the whole
// laid-out content, not just the visible window.
type Rect struct {
	X, Y int
	W, H int
}

// Empty reports whether r has no area
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Area returns the number of cells covered by r
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Intersect returns the overlap of r and o, or a zero Rect if they do not overlap
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ContainsPoint reports whether (x, y) lies inside r, edges included
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Expand grows r by the given amounts on each side. Negative values shrink it.
func (r Rect) Expand(top, right, bottom, left int) Rect {
	return Rect{
		X: r.X - left,
		Y: r.Y - top,
		W: r.W + left + right,
		H: r.H + top + bottom,
	}
}

// Element is anything with layout bounds that can be observed.
// Implementations must be comparable; pointer types are expected.
type Element interface {
	Bounds() Rect
}

// Box is a mutable Element. Renderers update its bounds on every layout pass.
type Box struct {
	mu   sync.RWMutex
	rect Rect
}

// NewBox creates a box with the given bounds
func NewBox(r Rect) *Box {
	return &Box{rect: r}
}

// Bounds implements Element
func (b *Box) Bounds() Rect {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rect
}

// SetBounds moves or resizes the box
func (b *Box) SetBounds(r Rect) {
	b.mu.Lock()
	b.rect = r
	b.mu.Unlock()
}

// measure returns the fraction of target inside root and whether they intersect.
// Zero-area targets intersect when their origin lies within root.
func measure(root, target Rect) (ratio float64, intersecting bool) {
	if target.Empty() {
		if root.ContainsPoint(target.X, target.Y) {
			return 1, true
		}
		return 0, false
	}
	overlap := root.Intersect(target)
	if overlap.Empty() {
		return 0, false
	}
	return float64(overlap.Area()) / float64(target.Area()), true
}
