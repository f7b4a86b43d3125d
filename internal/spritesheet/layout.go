// Package spritesheet arranges equally sized frames in a padded grid and
// renders them into a single sheet.
package spritesheet

import "github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"

type Layout struct {
	SheetWidth  int           `json:"sheet_width"`
	SheetHeight int           `json:"sheet_height"`
	Columns     int           `json:"columns"`
	Rows        int           `json:"rows"`
	Cells       []entity.Rect `json:"cells"`
}

// CalculateLayout places frameCount frames of frameWidth x frameHeight row-major
// in a grid. The requested rows are a minimum: the grid grows downward rather
// than dropping frames. Padding separates cells only, never the outer border.
func CalculateLayout(frameWidth, frameHeight, frameCount, columns, rows, padding int) Layout {
	columns = max(1, columns)
	rows = max(1, rows)
	padding = max(0, padding)
	frameCount = max(0, frameCount)
	rows = max(rows, (frameCount+columns-1)/columns)

	l := Layout{
		SheetWidth:  columns*frameWidth + (columns-1)*padding,
		SheetHeight: rows*frameHeight + (rows-1)*padding,
		Columns:     columns,
		Rows:        rows,
		Cells:       make([]entity.Rect, 0, frameCount),
	}
	for i := 0; i < frameCount; i++ {
		col, row := i%columns, i/columns
		l.Cells = append(l.Cells, entity.Rect{
			X:      col * (frameWidth + padding),
			Y:      row * (frameHeight + padding),
			Width:  frameWidth,
			Height: frameHeight,
		})
	}
	return l
}
