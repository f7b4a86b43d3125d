// Package chromakey removes key colours from decoded RGBA frames by building an
// alpha mask, refining it with erosion and blur passes, and writing it back into
// the frame's alpha channel.
package chromakey

import (
	"errors"
	"fmt"
	"math"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
)

var ErrMalformedBuffer = errors.New("malformed pixel buffer")

// masks holds every intermediate stage of one keying pass.
type masks struct {
	classified []byte
	choked     []byte
	feathered  []byte
	smoothed   []byte
	final      []byte
}

// Apply keys buf in place: the alpha byte of every pixel is rewritten, RGB is
// left untouched, and buf itself is returned. Callers that need the original
// frame must Clone it first. An empty colour set leaves buf unmodified.
func Apply(buf *entity.PixelBuffer, settings entity.ChromaKeySettings) (*entity.PixelBuffer, error) {
	if !buf.Valid() {
		if buf == nil {
			return nil, fmt.Errorf("%w: nil buffer", ErrMalformedBuffer)
		}
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrMalformedBuffer, buf.Width, buf.Height, len(buf.Pix))
	}
	if len(settings.Colors) == 0 || buf.Empty() {
		return buf, nil
	}

	m := compute(buf, settings)
	for i, a := range m.final {
		buf.Pix[i*4+3] = a
	}
	return buf, nil
}

func compute(buf *entity.PixelBuffer, settings entity.ChromaKeySettings) masks {
	w, h := buf.Width, buf.Height
	var m masks
	m.classified = classify(buf, settings.Colors, settings.ClampedTolerance())
	m.choked = Erode2D(m.classified, w, h, Radius(settings.Choke))
	m.feathered = Blur2D(m.choked, w, h, Radius(settings.Feather))
	m.smoothed = Blur2D(m.feathered, w, h, Radius(settings.Smoothing))
	m.final = combine(settings.Direction(), m.choked, m.smoothed)
	return m
}

// classify marks a pixel transparent when its nearest key colour lies within
// tolerance, opaque otherwise.
func classify(buf *entity.PixelBuffer, colors []entity.KeyColor, tolerance float64) []byte {
	mask := make([]byte, buf.Width*buf.Height)
	for i := range mask {
		p := buf.Pix[i*4 : i*4+3 : i*4+3]
		best := math.MaxInt
		for _, c := range colors {
			dr := int(p[0]) - int(c.R)
			dg := int(p[1]) - int(c.G)
			db := int(p[2]) - int(c.B)
			if d := dr*dr + dg*dg + db*db; d < best {
				best = d
			}
		}
		if math.Sqrt(float64(best)) <= tolerance {
			mask[i] = 0
		} else {
			mask[i] = 255
		}
	}
	return mask
}

func combine(dir entity.FeatherDirection, choked, smoothed []byte) []byte {
	if dir != entity.FeatherTowardSubject {
		return smoothed
	}
	out := make([]byte, len(smoothed))
	for i := range out {
		out[i] = max(choked[i], smoothed[i])
	}
	return out
}
