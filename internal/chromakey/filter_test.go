package chromakey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroRadiusIsIdentity(t *testing.T) {
	values := []byte{0, 17, 255, 3, 128, 64}

	assert.Equal(t, values, BoxBlur1D(values, 0))
	assert.Equal(t, values, Erode1D(values, 0))
	assert.Equal(t, values, Blur2D(values, 3, 2, 0))
	assert.Equal(t, values, Erode2D(values, 3, 2, 0))
}

func TestBoxBlur1DReplicatesEdges(t *testing.T) {
	// window of 3; position 0 sees [0, 0, 255] -> 85
	got := BoxBlur1D([]byte{0, 255, 255, 255}, 1)
	assert.Equal(t, []byte{85, 170, 255, 255}, got)
}

func TestBoxBlur1DRoundsToNearest(t *testing.T) {
	// (1 + 1 + 2) / 3 = 1.33 -> 1; (1 + 2 + 2) / 3 = 1.67 -> 2
	got := BoxBlur1D([]byte{1, 2}, 1)
	assert.Equal(t, []byte{1, 2}, got)
}

func TestBoxBlur1DRadiusLargerThanLine(t *testing.T) {
	// r = 5 over 2 samples: window holds 6 copies of 0 and 5 copies of 110 for
	// position 0, so 550/11 = 50.
	got := BoxBlur1D([]byte{0, 110}, 5)
	assert.Equal(t, []byte{50, 60}, got)
}

func TestErode1D(t *testing.T) {
	got := Erode1D([]byte{255, 255, 0, 255, 255, 255}, 1)
	assert.Equal(t, []byte{255, 0, 0, 0, 255, 255}, got)
}

func TestErode1DRadiusLargerThanLine(t *testing.T) {
	got := Erode1D([]byte{200, 100, 255}, 10)
	assert.Equal(t, []byte{100, 100, 100}, got)
}

func TestFilters2DStayInBounds(t *testing.T) {
	cases := []struct {
		name          string
		width, height int
	}{
		{"1x1", 1, 1},
		{"1xN", 1, 7},
		{"Nx1", 7, 1},
		{"empty", 0, 0},
		{"zero height", 4, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mask := make([]byte, tc.width*tc.height)
			for i := range mask {
				mask[i] = byte(i * 37)
			}
			for _, r := range []int{1, 2, 50} {
				assert.NotPanics(t, func() {
					assert.Len(t, Blur2D(mask, tc.width, tc.height, r), len(mask))
					assert.Len(t, Erode2D(mask, tc.width, tc.height, r), len(mask))
				})
			}
		})
	}
}

func TestBlur2DSingleton(t *testing.T) {
	assert.Equal(t, []byte{77}, Blur2D([]byte{77}, 1, 1, 3))
	assert.Equal(t, []byte{77}, Erode2D([]byte{77}, 1, 1, 3))
}

func TestErode2DShrinksOpaqueRegion(t *testing.T) {
	// 5x5 opaque square with a transparent centre pixel
	mask := make([]byte, 25)
	for i := range mask {
		mask[i] = 255
	}
	mask[12] = 0

	got := Erode2D(mask, 5, 5, 1)

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			want := byte(255)
			if x >= 1 && x <= 3 && y >= 1 && y <= 3 {
				want = 0
			}
			assert.Equal(t, want, got[y*5+x], "pixel (%d,%d)", x, y)
		}
	}
}

func TestBlur2DIsRowsThenColumns(t *testing.T) {
	mask := []byte{
		0, 255, 0,
		255, 0, 255,
	}
	rows := make([]byte, 0, len(mask))
	rows = append(rows, BoxBlur1D(mask[0:3], 1)...)
	rows = append(rows, BoxBlur1D(mask[3:6], 1)...)

	want := make([]byte, len(mask))
	for x := 0; x < 3; x++ {
		col := BoxBlur1D([]byte{rows[x], rows[3+x]}, 1)
		want[x] = col[0]
		want[3+x] = col[1]
	}

	assert.Equal(t, want, Blur2D(mask, 3, 2, 1))
}

func TestRadius(t *testing.T) {
	assert.Equal(t, 0, Radius(-3))
	assert.Equal(t, 0, Radius(0.9))
	assert.Equal(t, 2, Radius(2.99))
	assert.Equal(t, 4, Radius(4))
}
