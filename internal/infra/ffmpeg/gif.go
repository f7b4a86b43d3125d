package ffmpeg

import (
	"bytes"
	"context"
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

// paletteFilter builds a per-animation palette with one transparent slot and
// maps pixels below half opacity to it.
const paletteFilter = "split[a][b];[a]palettegen=reserve_transparent=1[p];[b][p]paletteuse=alpha_threshold=128"

type GIFEncoder struct {
	logger *zap.Logger
}

func NewGIFEncoder(logger *zap.Logger) *GIFEncoder {
	return &GIFEncoder{logger: logger}
}

func (g *GIFEncoder) EncodeGIF(ctx context.Context, pattern string, fps int, outputPath string) error {
	if fps <= 0 {
		fps = 1
	}
	var stderr bytes.Buffer
	stream := ffmpeg.Input(pattern, ffmpeg.KwArgs{
		"framerate":    fps,
		"start_number": 1,
	}).
		Output(outputPath, ffmpeg.KwArgs{
			"filter_complex": paletteFilter,
			"loop":           0,
		}).
		OverWriteOutput().
		WithErrorOutput(&stderr)
	stream.Context = ctx

	if err := stream.Run(); err != nil {
		return fmt.Errorf("ffmpeg gif error: %w, output: %s", err, stderr.String())
	}

	g.logger.Info("gif encoded", zap.Int("fps", fps), zap.String("output", outputPath))
	return nil
}
