package entity

// PixelBuffer is a decoded frame: row-major RGBA, 4 bytes per pixel, straight
// (non-premultiplied) alpha.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelBuffer{Width: width, Height: height, Pix: make([]byte, width*height*4)}
}

// Valid reports whether Pix holds exactly Width*Height pixels.
func (p *PixelBuffer) Valid() bool {
	return p != nil && p.Width >= 0 && p.Height >= 0 && len(p.Pix) == p.Width*p.Height*4
}

func (p *PixelBuffer) Empty() bool {
	return p.Width == 0 || p.Height == 0
}

func (p *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]byte, len(p.Pix))
	copy(pix, p.Pix)
	return &PixelBuffer{Width: p.Width, Height: p.Height, Pix: pix}
}

// Alpha returns the alpha byte of pixel (x, y).
func (p *PixelBuffer) Alpha(x, y int) uint8 {
	return p.Pix[(y*p.Width+x)*4+3]
}

// FrameID identifies a source frame within a working set.
type FrameID string
