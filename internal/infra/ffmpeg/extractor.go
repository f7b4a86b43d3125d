package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/port"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (e *Extractor) Probe(ctx context.Context, videoPath string) (*port.VideoProbe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(raw)
}

func parseProbe(raw string) (*port.VideoProbe, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	probe := &port.VideoProbe{}
	if d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil {
		probe.Duration = d
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		probe.FPS = parseRate(s.AvgFrameRate)
		if probe.FPS == 0 {
			probe.FPS = parseRate(s.RFrameRate)
		}
		return probe, nil
	}
	return nil, fmt.Errorf("no video stream found")
}

// parseRate reads ffprobe rationals such as "30000/1001"; "0/0" and garbage yield 0.
func parseRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		v, _ := strconv.ParseFloat(rate, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func (e *Extractor) ExtractFrame(ctx context.Context, videoPath string, timestamp float64, outputFile string) error {
	var stderr bytes.Buffer
	stream := ffmpeg.Input(videoPath, ffmpeg.KwArgs{
		"ss": strconv.FormatFloat(timestamp, 'f', 3, 64),
	}).
		Output(outputFile, ffmpeg.KwArgs{
			"frames:v": 1,
			"pix_fmt":  "rgba",
		}).
		OverWriteOutput().
		WithErrorOutput(&stderr)
	stream.Context = ctx

	if err := stream.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %w, output: %s", err, stderr.String())
	}

	e.logger.Debug("frame extracted",
		zap.Float64("timestamp", timestamp),
		zap.String("output", outputFile),
	)
	return nil
}
