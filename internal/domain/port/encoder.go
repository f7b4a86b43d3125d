package port

import "context"

type GIFEncoder interface {
	// EncodeGIF assembles the PNG frames matching pattern (printf style, 1-based)
	// into an animated GIF played at fps.
	EncodeGIF(ctx context.Context, pattern string, fps int, outputPath string) error
}

type Zipper interface {
	CreateZip(ctx context.Context, filePaths []string, outputPath string) error
}
