package entity

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// CropInsets trims pixels from each edge of a processed frame.
type CropInsets struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

func (c CropInsets) IsZero() bool {
	return c == CropInsets{}
}

// Rect returns the region kept from a width x height frame. Left and top are
// clamped first, then right and bottom against what remains; the result is at
// least 1x1.
func (c CropInsets) Rect(width, height int) Rect {
	left := clampInt(c.Left, 0, max(0, width-1))
	right := clampInt(c.Right, 0, max(0, width-1-left))
	top := clampInt(c.Top, 0, max(0, height-1))
	bottom := clampInt(c.Bottom, 0, max(0, height-1-top))
	return Rect{
		X:      left,
		Y:      top,
		Width:  max(1, width-left-right),
		Height: max(1, height-top-bottom),
	}
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
