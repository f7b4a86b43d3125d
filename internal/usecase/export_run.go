package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/perezbalen/Sprite-Sheet-Maker/internal/chromakey"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/imaging"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/metrics"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/spritesheet"
	"go.uber.org/zap"
)

// framePattern names exported frames; GIF encoding relies on the 1-based sequence.
const framePattern = "frame_%04d.png"

// exportRun carries the state of one job attempt across its output stages.
// Every stage reads keyed frames through the same keyer, so each frame is keyed
// once no matter how many outputs are requested.
type exportRun struct {
	uc      *ProcessExportUseCase
	job     *entity.ExportJob
	msg     entity.ExportRequestMessage
	log     *zap.Logger
	workDir string
	keyer   *FrameKeyer

	sources    []SourceFrame
	framePaths []string
}

func (r *exportRun) execute(ctx context.Context) (entity.Artifacts, error) {
	var artifacts entity.Artifacts

	videoPath := filepath.Join(r.workDir, "input"+videoExt(r.msg.VideoKey))
	err := stage(ctx, "download", func(ctx context.Context) error {
		return r.uc.storage.DownloadVideo(ctx, r.msg.VideoKey, videoPath)
	})
	if err != nil {
		return artifacts, fmt.Errorf("download_video: %w", err)
	}

	timestamps := r.uc.markedTimestamps(ctx, r.msg, videoPath, r.log)
	if len(timestamps) == 0 {
		return artifacts, permanent(entity.ErrNoFrames)
	}

	if err := stage(ctx, "extract", func(ctx context.Context) error {
		return r.extract(ctx, videoPath, timestamps)
	}); err != nil {
		return artifacts, fmt.Errorf("extract_frames: %w", err)
	}
	defer r.release()

	done := make(map[entity.OutputKind]bool)
	for _, kind := range r.msg.WantedOutputs() {
		if done[kind] {
			continue
		}
		done[kind] = true

		err := stage(ctx, string(kind), func(ctx context.Context) error {
			var err error
			switch kind {
			case entity.OutputFrames:
				artifacts.FramesKey, err = r.exportFrames(ctx)
			case entity.OutputSpriteSheet:
				artifacts.SpriteSheetKey, err = r.exportSpriteSheet(ctx)
			case entity.OutputGIF:
				artifacts.GIFKey, err = r.exportGIF(ctx)
			case entity.OutputPreview:
				artifacts.PreviewKey, err = r.exportPreview(ctx)
			default:
				err = permanent(fmt.Errorf("%w: %q", entity.ErrUnknownOutput, kind))
			}
			return err
		})
		if err != nil {
			return artifacts, fmt.Errorf("export %s: %w", kind, err)
		}
	}
	return artifacts, nil
}

func (r *exportRun) extract(ctx context.Context, videoPath string, timestamps []float64) error {
	dir := filepath.Join(r.workDir, "source")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}

	r.sources = make([]SourceFrame, 0, len(timestamps))
	for i, ts := range timestamps {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("source_%04d.png", i+1))
		if err := r.uc.extractor.ExtractFrame(ctx, videoPath, ts, path); err != nil {
			return fmt.Errorf("frame at %.3fs: %w", ts, err)
		}
		buf, err := imaging.ReadPNGFile(path)
		if err != nil {
			return fmt.Errorf("frame at %.3fs: %w", ts, err)
		}
		r.sources = append(r.sources, SourceFrame{
			ID:     entity.FrameID(r.job.ID.String() + "@" + strconv.FormatFloat(ts, 'f', -1, 64)),
			Buffer: buf,
		})
	}
	metrics.FramesExtractedTotal.Add(float64(len(r.sources)))
	return nil
}

func (r *exportRun) release() {
	ids := make([]entity.FrameID, len(r.sources))
	for i, s := range r.sources {
		ids[i] = s.ID
	}
	r.keyer.Drop(ids...)
}

// processed returns every marked frame keyed and cropped, in timestamp order.
func (r *exportRun) processed(ctx context.Context) ([]*entity.PixelBuffer, error) {
	keyed, err := r.keyer.KeyAll(ctx, r.sources)
	if err != nil {
		if errors.Is(err, chromakey.ErrMalformedBuffer) {
			return nil, permanent(err)
		}
		return nil, err
	}
	out := make([]*entity.PixelBuffer, len(keyed))
	for i, buf := range keyed {
		out[i] = imaging.Crop(buf, r.msg.Crop)
	}
	return out, nil
}

// frameFiles writes the processed frames as a numbered PNG sequence once and
// returns the paths on every later call.
func (r *exportRun) frameFiles(ctx context.Context) ([]string, error) {
	if r.framePaths != nil {
		return r.framePaths, nil
	}
	frames, err := r.processed(ctx)
	if err != nil {
		return nil, err
	}
	dir := r.framesDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}
	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = filepath.Join(dir, fmt.Sprintf(framePattern, i+1))
		if err := imaging.WritePNGFile(paths[i], f); err != nil {
			return nil, err
		}
	}
	r.framePaths = paths
	return paths, nil
}

func (r *exportRun) framesDir() string {
	return filepath.Join(r.workDir, "frames")
}

func (r *exportRun) exportFrames(ctx context.Context) (string, error) {
	paths, err := r.frameFiles(ctx)
	if err != nil {
		return "", err
	}
	zipPath := filepath.Join(r.workDir, "frames.zip")
	if err := r.uc.zipper.CreateZip(ctx, paths, zipPath); err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	return r.uploadFile(ctx, entity.OutputFrames, "frames.zip", zipPath, "application/zip")
}

func (r *exportRun) exportSpriteSheet(ctx context.Context) (string, error) {
	frames, err := r.processed(ctx)
	if err != nil {
		return "", err
	}
	opts := r.msg.SpriteSheet
	columns := opts.Columns
	if columns <= 0 {
		columns = len(frames)
	}
	layout := spritesheet.CalculateLayout(frames[0].Width, frames[0].Height, len(frames), columns, opts.Rows, opts.Padding)
	sheet, err := spritesheet.Compose(layout, frames)
	if err != nil {
		return "", permanent(err)
	}

	sheetPath := filepath.Join(r.workDir, "sprite_sheet.png")
	if err := imaging.WritePNGFile(sheetPath, sheet); err != nil {
		return "", err
	}
	key, err := r.uploadFile(ctx, entity.OutputSpriteSheet, "sprite_sheet.png", sheetPath, "image/png")
	if err != nil {
		return "", err
	}

	atlas, err := json.Marshal(layout)
	if err != nil {
		return "", fmt.Errorf("marshal atlas: %w", err)
	}
	if _, err := r.uploadBytes(ctx, "sprite_sheet_atlas", "sprite_sheet.json", atlas, "application/json"); err != nil {
		return "", err
	}

	r.log.Debug("sprite sheet composed",
		zap.Int("columns", layout.Columns),
		zap.Int("rows", layout.Rows),
		zap.Int("width", layout.SheetWidth),
		zap.Int("height", layout.SheetHeight),
	)
	return key, nil
}

func (r *exportRun) exportGIF(ctx context.Context) (string, error) {
	if _, err := r.frameFiles(ctx); err != nil {
		return "", err
	}
	fps := r.msg.GIFFPS
	if fps <= 0 {
		fps = r.uc.cfg.GIFFPS
	}
	gifPath := filepath.Join(r.workDir, "animation.gif")
	pattern := filepath.Join(r.framesDir(), framePattern)
	if err := r.uc.encoder.EncodeGIF(ctx, pattern, fps, gifPath); err != nil {
		return "", fmt.Errorf("encode gif: %w", err)
	}
	return r.uploadFile(ctx, entity.OutputGIF, "animation.gif", gifPath, "image/gif")
}

func (r *exportRun) exportPreview(ctx context.Context) (string, error) {
	frames, err := r.processed(ctx)
	if err != nil {
		return "", err
	}

	var background *entity.PixelBuffer
	if r.msg.BackgroundKey != "" {
		background, err = r.loadBackground(ctx)
		if err != nil {
			return "", err
		}
	}

	preview := imaging.CompositeOver(frames[0], background)
	previewPath := filepath.Join(r.workDir, "preview.png")
	if err := imaging.WritePNGFile(previewPath, preview); err != nil {
		return "", err
	}
	return r.uploadFile(ctx, entity.OutputPreview, "preview.png", previewPath, "image/png")
}

func (r *exportRun) loadBackground(ctx context.Context) (*entity.PixelBuffer, error) {
	rc, err := r.uc.storage.OpenUpload(ctx, r.msg.BackgroundKey)
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer rc.Close()

	bg, err := imaging.DecodePNG(rc)
	if err != nil {
		return nil, permanent(fmt.Errorf("background %s: %w", r.msg.BackgroundKey, err))
	}
	return bg, nil
}

func (r *exportRun) artifactKey(name string) string {
	return fmt.Sprintf("%s/%s/%s", r.msg.UserID, r.job.ID.String(), name)
}

func (r *exportRun) uploadFile(ctx context.Context, kind entity.OutputKind, name, path, contentType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", name, err)
	}

	key := r.artifactKey(name)
	if err := r.uc.storage.UploadArtifact(ctx, key, f, stat.Size(), contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	metrics.ArtifactsUploadedTotal.WithLabelValues(string(kind)).Inc()
	return key, nil
}

func (r *exportRun) uploadBytes(ctx context.Context, kind, name string, data []byte, contentType string) (string, error) {
	key := r.artifactKey(name)
	if err := r.uc.storage.UploadArtifact(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	metrics.ArtifactsUploadedTotal.WithLabelValues(kind).Inc()
	return key, nil
}

func videoExt(key string) string {
	if ext := filepath.Ext(key); ext != "" {
		return ext
	}
	return ".mp4"
}
