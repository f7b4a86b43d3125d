package spritesheet

import (
	"testing"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, v byte) *entity.PixelBuffer {
	buf := entity.NewPixelBuffer(w, h)
	for i := range buf.Pix {
		buf.Pix[i] = v
	}
	return buf
}

func pixel(buf *entity.PixelBuffer, x, y int) []byte {
	i := (y*buf.Width + x) * 4
	return buf.Pix[i : i+4]
}

func TestComposePlacesFramesInCells(t *testing.T) {
	frames := []*entity.PixelBuffer{solid(2, 2, 10), solid(2, 2, 20), solid(2, 2, 30)}
	l := CalculateLayout(2, 2, len(frames), 2, 1, 1)

	sheet, err := Compose(l, frames)
	require.NoError(t, err)

	assert.Equal(t, 5, sheet.Width)
	assert.Equal(t, 5, sheet.Height)
	assert.Equal(t, []byte{10, 10, 10, 10}, pixel(sheet, 1, 1))
	assert.Equal(t, []byte{20, 20, 20, 20}, pixel(sheet, 3, 0))
	assert.Equal(t, []byte{30, 30, 30, 30}, pixel(sheet, 0, 4))
	// padding and the unused cell stay transparent
	assert.Equal(t, []byte{0, 0, 0, 0}, pixel(sheet, 2, 0))
	assert.Equal(t, []byte{0, 0, 0, 0}, pixel(sheet, 4, 4))
}

func TestComposeClipsOversizedFrames(t *testing.T) {
	frames := []*entity.PixelBuffer{solid(3, 3, 50), solid(2, 2, 60)}
	l := CalculateLayout(2, 2, 2, 2, 1, 0)

	sheet, err := Compose(l, frames)
	require.NoError(t, err)

	assert.Equal(t, []byte{50, 50, 50, 50}, pixel(sheet, 1, 1))
	assert.Equal(t, []byte{60, 60, 60, 60}, pixel(sheet, 2, 0))
}

func TestComposeRejectsMoreFramesThanCells(t *testing.T) {
	l := CalculateLayout(2, 2, 1, 1, 1, 0)

	_, err := Compose(l, []*entity.PixelBuffer{solid(2, 2, 1), solid(2, 2, 1)})
	assert.Error(t, err)
}
