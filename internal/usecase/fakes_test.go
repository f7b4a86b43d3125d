package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/port"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/imaging"
)

var (
	green = entity.KeyColor{R: 0, G: 255, B: 0}
	red   = [4]byte{255, 0, 0, 255}
)

// subjectFrame is an 8x8 green frame with a red 4x4 square at (2,2).
func subjectFrame() *entity.PixelBuffer {
	buf := entity.NewPixelBuffer(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			px := [4]byte{0, 255, 0, 255}
			if x >= 2 && x < 6 && y >= 2 && y < 6 {
				px = red
			}
			copy(buf.Pix[(y*8+x)*4:], px[:])
		}
	}
	return buf
}

func solidFrame(w, h int, px [4]byte) *entity.PixelBuffer {
	buf := entity.NewPixelBuffer(w, h)
	for i := 0; i < len(buf.Pix); i += 4 {
		copy(buf.Pix[i:], px[:])
	}
	return buf
}

func pngBytes(buf *entity.PixelBuffer) []byte {
	var b bytes.Buffer
	if err := imaging.EncodePNG(&b, buf); err != nil {
		panic(err)
	}
	return b.Bytes()
}

type fakeRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.ExportJob
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: make(map[uuid.UUID]entity.ExportJob)}
}

func (r *fakeRepo) Create(_ context.Context, job *entity.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *entity.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return entity.ErrJobNotFound
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("find %s: %w", id, entity.ErrJobNotFound)
	}
	return &job, nil
}

func (r *fakeRepo) get(id uuid.UUID) entity.ExportJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

type storedObject struct {
	data        []byte
	contentType string
}

type fakeStorage struct {
	mu          sync.Mutex
	downloadErr error
	downloads   int
	uploads     map[string][]byte
	artifacts   map[string]storedObject
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		uploads:   make(map[string][]byte),
		artifacts: make(map[string]storedObject),
	}
}

func (s *fakeStorage) DownloadVideo(_ context.Context, _ string, destPath string) error {
	s.mu.Lock()
	s.downloads++
	s.mu.Unlock()
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, []byte("video"), 0644)
}

func (s *fakeStorage) OpenUpload(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.uploads[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStorage) UploadArtifact(_ context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: got %d want %d", len(data), size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[key] = storedObject{data: data, contentType: contentType}
	return nil
}

type fakeExtractor struct {
	fps        float64
	probeErr   error
	frame      func() *entity.PixelBuffer
	timestamps []float64
}

func (e *fakeExtractor) Probe(context.Context, string) (*port.VideoProbe, error) {
	if e.probeErr != nil {
		return nil, e.probeErr
	}
	return &port.VideoProbe{FPS: e.fps, Duration: 10}, nil
}

func (e *fakeExtractor) ExtractFrame(_ context.Context, _ string, timestamp float64, outputFile string) error {
	e.timestamps = append(e.timestamps, timestamp)
	frame := subjectFrame
	if e.frame != nil {
		frame = e.frame
	}
	return imaging.WritePNGFile(outputFile, frame())
}

type fakeEncoder struct {
	pattern string
	fps     int
	frames  int
}

func (e *fakeEncoder) EncodeGIF(_ context.Context, pattern string, fps int, outputPath string) error {
	e.pattern, e.fps = pattern, fps
	for i := 1; ; i++ {
		if _, err := os.Stat(fmt.Sprintf(pattern, i)); err != nil {
			break
		}
		e.frames++
	}
	if e.frames == 0 {
		return errors.New("no input frames")
	}
	return os.WriteFile(outputPath, []byte("GIF89a"), 0644)
}

type fakeZipper struct {
	paths []string
}

func (z *fakeZipper) CreateZip(_ context.Context, filePaths []string, outputPath string) error {
	z.paths = append([]string(nil), filePaths...)
	return os.WriteFile(outputPath, []byte("PK"), 0644)
}

type fakeStatusPublisher struct {
	mu       sync.Mutex
	messages []entity.VideoStatusMessage
}

func (p *fakeStatusPublisher) PublishStatus(_ context.Context, msg []byte) error {
	var status entity.VideoStatusMessage
	if err := json.Unmarshal(msg, &status); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, status)
	return nil
}

func (p *fakeStatusPublisher) last() entity.VideoStatusMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) == 0 {
		return entity.VideoStatusMessage{}
	}
	return p.messages[len(p.messages)-1]
}

type dlqEntry struct {
	body   []byte
	reason string
}

type fakeDLQ struct {
	entries []dlqEntry
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	d.entries = append(d.entries, dlqEntry{body: msg, reason: reason})
	return nil
}

type notification struct {
	email, jobID, videoKey, errMsg string
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, userEmail, jobID, videoKey, errorMsg string) error {
	n.sent = append(n.sent, notification{userEmail, jobID, videoKey, errorMsg})
	return nil
}
