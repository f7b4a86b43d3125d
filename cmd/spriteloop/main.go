// Command spriteloop keys and packs frames on the local machine, without the
// queue, database or object store the worker depends on.
//
// Usage examples:
//
// # Key a directory of PNG frames against green and build a 4-column sheet
// ./spriteloop -in frames/ -out build/ -key 00ff00 -columns 4
//
// # Mark every 5th frame of a clip and write only the keyed frames
// ./spriteloop -video clip.mp4 -every 5 -end 60 -out build/ -key 00ff00 -sheet=false
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/imaging"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/ffmpeg"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/spritesheet"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/usecase"
	"github.com/perezbalen/Sprite-Sheet-Maker/pkg/logger"
	"go.uber.org/zap"
)

type options struct {
	inDir    string
	video    string
	outDir   string
	everyN   int
	start    int
	end      int
	settings entity.ChromaKeySettings
	crop     entity.CropInsets
	columns  int
	rows     int
	pad      int
	sheet    bool
	frames   bool
	parallel int
}

func main() {
	var (
		opts      options
		keyColors string
		cropStr   string
		dirStr    string
		logLevel  string
		tolerance float64
		feather   float64
		choke     float64
		smoothing float64
	)

	flag.StringVar(&opts.inDir, "in", "", "Directory of PNG frames, processed in name order")
	flag.StringVar(&opts.video, "video", "", "Video file to mark frames from (instead of -in)")
	flag.IntVar(&opts.everyN, "every", 1, "Mark every Nth frame of -video")
	flag.IntVar(&opts.start, "start", 0, "First frame index to mark")
	flag.IntVar(&opts.end, "end", 0, "Last frame index to mark (inclusive)")
	flag.StringVar(&opts.outDir, "out", "spriteloop-out", "Output directory")
	flag.StringVar(&keyColors, "key", "00ff00", "Comma separated hex key colours")
	flag.Float64Var(&tolerance, "tolerance", 40, "Colour distance keyed out (0-442)")
	flag.Float64Var(&feather, "feather", 4, "Feather radius in pixels")
	flag.Float64Var(&choke, "choke", 0, "Choke radius in pixels")
	flag.Float64Var(&smoothing, "smoothing", 0, "Smoothing radius in pixels")
	flag.StringVar(&dirStr, "direction", "background", "Feather direction: 'background' or 'subject'")
	flag.StringVar(&cropStr, "crop", "", "Crop insets as top,right,bottom,left")
	flag.IntVar(&opts.columns, "columns", 0, "Sprite sheet columns (0 = one row)")
	flag.IntVar(&opts.rows, "rows", 0, "Minimum sprite sheet rows")
	flag.IntVar(&opts.pad, "padding", 0, "Pixels between sprite sheet cells")
	flag.BoolVar(&opts.sheet, "sheet", true, "Write sprite_sheet.png and sprite_sheet.json")
	flag.BoolVar(&opts.frames, "frames", true, "Write keyed frames as frame_0001.png...")
	flag.IntVar(&opts.parallel, "parallel", 4, "Frames keyed concurrently")
	flag.StringVar(&logLevel, "log-level", "info", "Log level")
	flag.Parse()

	if (opts.inDir == "") == (opts.video == "") {
		fmt.Fprintln(os.Stderr, "Usage: spriteloop (-in <dir> | -video <file>) [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log, err := logger.New(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	colors, err := parseKeyColors(keyColors)
	exitOnErr(log, err, "parse -key")
	direction, err := parseDirection(dirStr)
	exitOnErr(log, err, "parse -direction")
	opts.crop, err = parseCrop(cropStr)
	exitOnErr(log, err, "parse -crop")
	opts.settings = entity.ChromaKeySettings{
		Colors:           colors,
		Tolerance:        tolerance,
		Feather:          feather,
		Choke:            choke,
		Smoothing:        smoothing,
		FeatherDirection: direction,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitOnErr(log, run(ctx, opts, log), "spriteloop")
}

func run(ctx context.Context, opts options, log *zap.Logger) error {
	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	sources, err := loadSources(ctx, opts, log)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return entity.ErrNoFrames
	}
	log.Info("frames loaded", zap.Int("count", len(sources)), zap.String("settings", string(opts.settings.Fingerprint())))

	keyer := usecase.NewFrameKeyer(opts.parallel, log)
	keyer.SetSettings(opts.settings)
	keyed, err := keyer.KeyAll(ctx, sources)
	if err != nil {
		return err
	}
	frames := make([]*entity.PixelBuffer, len(keyed))
	for i, buf := range keyed {
		frames[i] = imaging.Crop(buf, opts.crop)
	}

	if opts.frames {
		for i, f := range frames {
			if err := imaging.WritePNGFile(filepath.Join(opts.outDir, fmt.Sprintf("frame_%04d.png", i+1)), f); err != nil {
				return err
			}
		}
		log.Info("keyed frames written", zap.String("dir", opts.outDir))
	}

	if opts.sheet {
		if err := writeSheet(opts, frames, log); err != nil {
			return err
		}
	}
	return nil
}

func writeSheet(opts options, frames []*entity.PixelBuffer, log *zap.Logger) error {
	columns := opts.columns
	if columns <= 0 {
		columns = len(frames)
	}
	layout := spritesheet.CalculateLayout(frames[0].Width, frames[0].Height, len(frames), columns, opts.rows, opts.pad)
	sheet, err := spritesheet.Compose(layout, frames)
	if err != nil {
		return err
	}
	if err := imaging.WritePNGFile(filepath.Join(opts.outDir, "sprite_sheet.png"), sheet); err != nil {
		return err
	}
	atlas, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal atlas: %w", err)
	}
	if err := os.WriteFile(filepath.Join(opts.outDir, "sprite_sheet.json"), atlas, 0644); err != nil {
		return fmt.Errorf("write atlas: %w", err)
	}
	log.Info("sprite sheet written",
		zap.Int("columns", layout.Columns),
		zap.Int("rows", layout.Rows),
		zap.Int("width", layout.SheetWidth),
		zap.Int("height", layout.SheetHeight),
	)
	return nil
}

func loadSources(ctx context.Context, opts options, log *zap.Logger) ([]usecase.SourceFrame, error) {
	if opts.video != "" {
		return extractSources(ctx, opts, log)
	}

	entries, err := os.ReadDir(opts.inDir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	sources := make([]usecase.SourceFrame, 0, len(names))
	for _, name := range names {
		buf, err := imaging.ReadPNGFile(filepath.Join(opts.inDir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sources = append(sources, usecase.SourceFrame{ID: entity.FrameID(name), Buffer: buf})
	}
	return sources, nil
}

func extractSources(ctx context.Context, opts options, log *zap.Logger) ([]usecase.SourceFrame, error) {
	extractor := ffmpeg.NewExtractor(log)

	fps := entity.DefaultFPS
	if probe, err := extractor.Probe(ctx, opts.video); err != nil {
		log.Warn("probe failed, assuming default frame rate", zap.Error(err), zap.Float64("fps", fps))
	} else {
		fps = probe.FPS
	}

	tmp, err := os.MkdirTemp("", "spriteloop-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	marking := entity.FrameMarking{EveryN: opts.everyN, StartFrame: opts.start, EndFrame: opts.end}
	timestamps := entity.MarkTimestamps(marking, fps, nil)

	sources := make([]usecase.SourceFrame, 0, len(timestamps))
	for i, ts := range timestamps {
		path := filepath.Join(tmp, fmt.Sprintf("source_%04d.png", i+1))
		if err := extractor.ExtractFrame(ctx, opts.video, ts, path); err != nil {
			return nil, err
		}
		buf, err := imaging.ReadPNGFile(path)
		if err != nil {
			return nil, fmt.Errorf("frame at %.3fs: %w", ts, err)
		}
		sources = append(sources, usecase.SourceFrame{ID: entity.FrameID(fmt.Sprintf("%.6f", ts)), Buffer: buf})
	}
	return sources, nil
}

func exitOnErr(log *zap.Logger, err error, msg string) {
	if err != nil {
		log.Error(msg, zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}
