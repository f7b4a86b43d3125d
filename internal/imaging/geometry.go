package imaging

import "github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"

// Crop copies the region kept by insets into a new buffer. Zero insets return
// buf itself.
func Crop(buf *entity.PixelBuffer, insets entity.CropInsets) *entity.PixelBuffer {
	if insets.IsZero() || buf.Empty() {
		return buf
	}
	r := insets.Rect(buf.Width, buf.Height)
	out := entity.NewPixelBuffer(r.Width, r.Height)
	for y := 0; y < r.Height; y++ {
		s := ((r.Y+y)*buf.Width + r.X) * 4
		copy(out.Pix[y*r.Width*4:(y+1)*r.Width*4], buf.Pix[s:s+r.Width*4])
	}
	return out
}

// CompositeOver draws fg over bg (source-over, straight alpha) into a new
// buffer of fg's size. bg is stretched nearest-neighbour to fg's size; a nil
// bg leaves the result equal to fg.
func CompositeOver(fg, bg *entity.PixelBuffer) *entity.PixelBuffer {
	out := fg.Clone()
	if bg == nil || bg.Empty() || fg.Empty() {
		return out
	}
	for y := 0; y < fg.Height; y++ {
		by := y * bg.Height / fg.Height
		for x := 0; x < fg.Width; x++ {
			bx := x * bg.Width / fg.Width
			d := (y*fg.Width + x) * 4
			s := (by*bg.Width + bx) * 4
			over(out.Pix[d:d+4], bg.Pix[s:s+4])
		}
	}
	return out
}

// over blends px (foreground) onto under and stores the result in px.
func over(px, under []byte) {
	fa := int(px[3])
	ba := int(under[3])
	// alpha scaled by 255*255 to stay in integers
	outA := fa*255 + ba*(255-fa)
	if outA == 0 {
		px[0], px[1], px[2], px[3] = 0, 0, 0, 0
		return
	}
	for c := 0; c < 3; c++ {
		num := int(px[c])*fa*255 + int(under[c])*ba*(255-fa)
		px[c] = byte((num + outA/2) / outA)
	}
	px[3] = byte((outA + 127) / 255)
}
