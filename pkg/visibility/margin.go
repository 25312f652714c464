package visibility

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Length is one side of a root margin, in pixels or percent of the root
type Length struct {
	Value   float64
	Percent bool
}

func (l Length) String() string {
	if l.Percent {
		return strconv.FormatFloat(l.Value, 'f', -1, 64) + "%"
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + "px"
}

// Margin grows or shrinks the root before intersection is tested
type Margin struct {
	Top, Right, Bottom, Left Length
}

func (m Margin) String() string {
	return strings.Join([]string{m.Top.String(), m.Right.String(), m.Bottom.String(), m.Left.String()}, " ")
}

// CellSize is the pixel size of one terminal cell, used to turn px margins into rows and columns
type CellSize struct {
	Width, Height int
}

// DefaultCellSize matches a common 8x16 terminal font
var DefaultCellSize = CellSize{Width: 8, Height: 16}

// ParseMargin parses a CSS-like margin: one to four lengths in px or %.
// An empty string is a zero margin.
func ParseMargin(s string) (Margin, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Margin{}, nil
	}
	if len(fields) > 4 {
		return Margin{}, fmt.Errorf("root margin %q: expected 1-4 values, got %d", s, len(fields))
	}

	lengths := make([]Length, len(fields))
	for i, f := range fields {
		l, err := parseLength(f)
		if err != nil {
			return Margin{}, fmt.Errorf("root margin %q: %w", s, err)
		}
		lengths[i] = l
	}

	switch len(lengths) {
	case 1:
		return Margin{lengths[0], lengths[0], lengths[0], lengths[0]}, nil
	case 2:
		return Margin{lengths[0], lengths[1], lengths[0], lengths[1]}, nil
	case 3:
		return Margin{lengths[0], lengths[1], lengths[2], lengths[1]}, nil
	default:
		return Margin{lengths[0], lengths[1], lengths[2], lengths[3]}, nil
	}
}

// maxLength bounds a margin side so resolving it stays well inside int range
const maxLength = 1e6

func parseLength(s string) (Length, error) {
	switch {
	case s == "0":
		return Length{}, nil
	case strings.HasSuffix(s, "px"):
		v, err := parseValue(s, strings.TrimSuffix(s, "px"))
		return Length{Value: v}, err
	case strings.HasSuffix(s, "%"):
		v, err := parseValue(s, strings.TrimSuffix(s, "%"))
		return Length{Value: v, Percent: true}, err
	default:
		return Length{}, fmt.Errorf("length %q must be in px or %%", s)
	}
}

func parseValue(length, num string) (float64, error) {
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", length)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxLength {
		return 0, fmt.Errorf("length %q out of range", length)
	}
	return v, nil
}

// Resolve converts the margin to whole cells for the given root
func (m Margin) Resolve(root Rect, cell CellSize) (top, right, bottom, left int) {
	if cell.Width <= 0 || cell.Height <= 0 {
		cell = DefaultCellSize
	}
	vertical := func(l Length) int {
		if l.Percent {
			return int(math.Trunc(l.Value / 100 * float64(root.H)))
		}
		return int(math.Trunc(l.Value / float64(cell.Height)))
	}
	horizontal := func(l Length) int {
		if l.Percent {
			return int(math.Trunc(l.Value / 100 * float64(root.W)))
		}
		return int(math.Trunc(l.Value / float64(cell.Width)))
	}
	return vertical(m.Top), horizontal(m.Right), vertical(m.Bottom), horizontal(m.Left)
}
