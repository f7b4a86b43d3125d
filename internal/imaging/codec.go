// Package imaging converts between encoded images and PixelBuffers and holds
// the per-frame geometry operations applied after keying.
package imaging

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
)

// FromImage copies img into a straight-alpha RGBA buffer anchored at (0, 0).
func FromImage(img image.Image) *entity.PixelBuffer {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return &entity.PixelBuffer{Width: b.Dx(), Height: b.Dy(), Pix: nrgba.Pix}
}

// ToImage wraps buf without copying.
func ToImage(buf *entity.PixelBuffer) *image.NRGBA {
	return &image.NRGBA{
		Pix:    buf.Pix,
		Stride: buf.Width * 4,
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}
}

func DecodePNG(r io.Reader) (*entity.PixelBuffer, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return FromImage(img), nil
}

func EncodePNG(w io.Writer, buf *entity.PixelBuffer) error {
	if !buf.Valid() {
		return fmt.Errorf("encode png: malformed %dx%d buffer", buf.Width, buf.Height)
	}
	if err := png.Encode(w, ToImage(buf)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func ReadPNGFile(path string) (*entity.PixelBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePNG(f)
}

func WritePNGFile(path string, buf *entity.PixelBuffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodePNG(f, buf); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
