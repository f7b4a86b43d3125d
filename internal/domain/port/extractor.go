package port

import "context"

type VideoProbe struct {
	FPS      float64
	Duration float64
}

type FrameExtractor interface {
	Probe(ctx context.Context, videoPath string) (*VideoProbe, error)
	// ExtractFrame decodes the frame shown at timestamp seconds into a PNG at outputFile.
	ExtractFrame(ctx context.Context, videoPath string, timestamp float64, outputFile string) error
}
