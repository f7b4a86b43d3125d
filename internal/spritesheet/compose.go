package spritesheet

import (
	"fmt"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
)

// Compose copies each frame into its cell of a transparent sheet. Frames larger
// than their cell are clipped to it so neighbouring cells are never overwritten;
// smaller frames are anchored at the cell's top-left corner.
func Compose(l Layout, frames []*entity.PixelBuffer) (*entity.PixelBuffer, error) {
	if len(frames) > len(l.Cells) {
		return nil, fmt.Errorf("compose sheet: %d frames for %d cells", len(frames), len(l.Cells))
	}
	sheet := entity.NewPixelBuffer(l.SheetWidth, l.SheetHeight)
	for i, f := range frames {
		if !f.Valid() {
			return nil, fmt.Errorf("compose sheet: frame %d is malformed", i)
		}
		blit(sheet, f, l.Cells[i])
	}
	return sheet, nil
}

func blit(dst, src *entity.PixelBuffer, cell entity.Rect) {
	w := min(src.Width, cell.Width, dst.Width-cell.X)
	h := min(src.Height, cell.Height, dst.Height-cell.Y)
	if w <= 0 || h <= 0 {
		return
	}
	for y := 0; y < h; y++ {
		s := y * src.Width * 4
		d := ((cell.Y+y)*dst.Width + cell.X) * 4
		copy(dst.Pix[d:d+w*4], src.Pix[s:s+w*4])
	}
}
