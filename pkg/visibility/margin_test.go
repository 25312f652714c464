package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMargin(t *testing.T) {
	px := func(v float64) Length { return Length{Value: v} }
	pct := func(v float64) Length { return Length{Value: v, Percent: true} }

	tests := []struct {
		input string
		want  Margin
	}{
		{"", Margin{}},
		{"0", Margin{}},
		{"100px", Margin{px(100), px(100), px(100), px(100)}},
		{"10px 20px", Margin{px(10), px(20), px(10), px(20)}},
		{"1px 2px 3px", Margin{px(1), px(2), px(3), px(2)}},
		{"1px 2px 3px 4px", Margin{px(1), px(2), px(3), px(4)}},
		{"-16px 0", Margin{px(-16), Length{}, px(-16), Length{}}},
		{"25%", Margin{pct(25), pct(25), pct(25), pct(25)}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMargin(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMarginErrors(t *testing.T) {
	for _, input := range []string{
		"100", "10em", "px", "1px 2px 3px 4px 5px", "abc%",
		"NaNpx", "Infpx", "-Infpx", "1e30px", "NaN%", "+Inf%", "2000000px",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseMargin(input)
			assert.Error(t, err)
		})
	}
}

func TestMarginResolve(t *testing.T) {
	root := Rect{W: 80, H: 24}

	m, err := ParseMargin("100px")
	require.NoError(t, err)
	top, right, bottom, left := m.Resolve(root, DefaultCellSize)
	assert.Equal(t, []int{6, 12, 6, 12}, []int{top, right, bottom, left})

	m, err = ParseMargin("50% 0")
	require.NoError(t, err)
	top, right, bottom, left = m.Resolve(root, CellSize{})
	assert.Equal(t, []int{12, 0, 12, 0}, []int{top, right, bottom, left})
}

func TestMarginString(t *testing.T) {
	m, err := ParseMargin("50px 10%")
	require.NoError(t, err)
	assert.Equal(t, "50px 10% 50px 10%", m.String())
}
