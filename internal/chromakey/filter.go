package chromakey

import "math"

// line is a strided view over one row or column of a width x height mask.
// Reads outside [0, n-1] are clamped to the nearest sample (edge replication).
type line struct {
	buf    []byte
	off    int
	stride int
	n      int
}

func (l line) at(i int) int {
	if i < 0 {
		i = 0
	} else if i >= l.n {
		i = l.n - 1
	}
	return int(l.buf[l.off+i*l.stride])
}

func (l line) set(i int, v int) {
	l.buf[l.off+i*l.stride] = byte(v)
}

// reducer writes into dst the value of the 2r+1 sample window of src centred
// on each position.
type reducer func(src, dst line, r int)

// averageLine keeps a running sum; the cost per sample is constant in r.
func averageLine(src, dst line, r int) {
	window := 2*r + 1
	// samples left of 0 replicate the first one, samples past n-1 the last
	sum := r * src.at(0)
	for i := 0; i <= r; i++ {
		if i >= src.n {
			sum += (r - i + 1) * src.at(src.n-1)
			break
		}
		sum += src.at(i)
	}
	for i := 0; i < src.n; i++ {
		// round half up: floor(sum/window + 1/2)
		dst.set(i, (2*sum+window)/(2*window))
		sum += src.at(i+r+1) - src.at(i-r)
	}
}

// minimumLine rescans each window. Replicated edge samples never lower the
// minimum below the nearest real sample, so the scan is limited to [0, n-1].
func minimumLine(src, dst line, r int) {
	for i := 0; i < src.n; i++ {
		m := 255
		for k := max(0, i-r); k <= min(src.n-1, i+r); k++ {
			if v := src.at(k); v < m {
				m = v
			}
		}
		dst.set(i, m)
	}
}

// Radius truncates a tuning value to a non-negative window half-width.
func Radius(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}

// separable runs reduce over every row, then over every column of the row
// result. r == 0 or an empty mask returns mask itself.
func separable(mask []byte, width, height, r int, reduce reducer) []byte {
	if r <= 0 || width == 0 || height == 0 {
		return mask
	}
	tmp := make([]byte, len(mask))
	out := make([]byte, len(mask))
	for y := 0; y < height; y++ {
		reduce(
			line{buf: mask, off: y * width, stride: 1, n: width},
			line{buf: tmp, off: y * width, stride: 1, n: width},
			r,
		)
	}
	for x := 0; x < width; x++ {
		reduce(
			line{buf: tmp, off: x, stride: width, n: height},
			line{buf: out, off: x, stride: width, n: height},
			r,
		)
	}
	return out
}

func pass1D(values []byte, r int, reduce reducer) []byte {
	if r <= 0 || len(values) == 0 {
		return values
	}
	out := make([]byte, len(values))
	reduce(line{buf: values, stride: 1, n: len(values)}, line{buf: out, stride: 1, n: len(values)}, r)
	return out
}

// BoxBlur1D averages each sample with its r neighbours on either side.
func BoxBlur1D(values []byte, r int) []byte {
	return pass1D(values, r, averageLine)
}

// Erode1D replaces each sample with the minimum of its r neighbours on either side.
func Erode1D(values []byte, r int) []byte {
	return pass1D(values, r, minimumLine)
}

// Blur2D approximates a (2r+1)^2 box blur with a horizontal then a vertical pass.
func Blur2D(mask []byte, width, height, r int) []byte {
	return separable(mask, width, height, r, averageLine)
}

// Erode2D approximates a (2r+1)^2 minimum filter with a horizontal then a vertical pass.
func Erode2D(mask []byte, width, height, r int) []byte {
	return separable(mask, width, height, r, minimumLine)
}
