package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/port"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/metrics"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/infra/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultGIFFPS = 12

type ProcessExportUseCase struct {
	repo      port.ExportJobRepository
	storage   port.ObjectStorage
	extractor port.FrameExtractor
	encoder   port.GIFEncoder
	zipper    port.Zipper
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       ProcessExportConfig
}

type ProcessExportConfig struct {
	TempDir           string
	MaxRetries        int
	KeyingParallelism int
	// Defaults fill the settings fields a request leaves unset.
	Defaults entity.ChromaKeySettings
	GIFFPS   int
}

func NewProcessExportUseCase(
	repo port.ExportJobRepository,
	storage port.ObjectStorage,
	extractor port.FrameExtractor,
	encoder port.GIFEncoder,
	zipper port.Zipper,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessExportConfig,
) *ProcessExportUseCase {
	if cfg.GIFFPS <= 0 {
		cfg.GIFFPS = defaultGIFFPS
	}
	return &ProcessExportUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		encoder:   encoder,
		zipper:    zipper,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

// permanentError marks failures that a retry cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

func (uc *ProcessExportUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	ctx, span := tracing.Tracer("usecase").Start(ctx, "ProcessExportUseCase.Execute")
	defer span.End()

	start := time.Now()

	var msg entity.ExportRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.loadJob(ctx, msg)
	if err != nil {
		log.Error("failed to load job record", zap.Error(err))
		return err
	}

	if err := msg.Validate(); err != nil {
		log.Warn("rejecting invalid export request", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "invalid_request: "+err.Error())
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
	}

	settings := msg.Settings.Resolve(uc.cfg.Defaults)
	job.MarkProcessing(settings.Fingerprint())
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	return uc.exportPipeline(ctx, job, msg, settings, rawMsg, start, log)
}

func (uc *ProcessExportUseCase) loadJob(ctx context.Context, msg entity.ExportRequestMessage) (*entity.ExportJob, error) {
	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, entity.ErrJobNotFound) {
		return nil, fmt.Errorf("find job: %w", err)
	}

	job = entity.NewExportJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.cfg.MaxRetries)
	if msg.JobID != uuid.Nil {
		job.ID = msg.JobID
	}
	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (uc *ProcessExportUseCase) exportPipeline(
	ctx context.Context,
	job *entity.ExportJob,
	msg entity.ExportRequestMessage,
	settings entity.ChromaKeySettings,
	rawMsg []byte,
	start time.Time,
	log *zap.Logger,
) error {
	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	keyer := NewFrameKeyer(uc.cfg.KeyingParallelism, log)
	keyer.SetSettings(settings)

	run := &exportRun{uc: uc, job: job, msg: msg, log: log, workDir: workDir, keyer: keyer}
	artifacts, err := run.execute(ctx)
	if err != nil {
		log.Error("export failed", zap.Error(err))
		var perm *permanentError
		if errors.As(err, &perm) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, err.Error(), log)
	}

	job.MarkCompleted(artifacts, len(run.sources))
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())

	log.Info("export completed successfully",
		zap.Int("frame_count", job.FrameCount),
		zap.String("settings", string(job.Settings)),
		zap.Any("artifacts", artifacts),
	)
	return nil
}

func (uc *ProcessExportUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.ExportJob,
	msg entity.ExportRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessExportUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.ExportJob,
	msg entity.ExportRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ProcessExportUseCase) publishStatus(ctx context.Context, job *entity.ExportJob, log *zap.Logger) {
	statusMsg := entity.VideoStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		VideoKey:     job.VideoKey,
		Artifacts:    job.Artifacts,
		FrameCount:   job.FrameCount,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

// stage runs fn inside its own span and records its duration under name.
func stage(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.Tracer("usecase").Start(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	metrics.JobProcessingDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return nil
}

// markedTimestamps merges the explicit timestamps with the every-N marking,
// probing the video for its frame rate when the request does not carry one.
func (uc *ProcessExportUseCase) markedTimestamps(ctx context.Context, msg entity.ExportRequestMessage, videoPath string, log *zap.Logger) []float64 {
	ts := slices.Clone(msg.Timestamps)
	if m := msg.Marking; m != nil && m.EveryN > 0 {
		fps := m.FPS
		if fps <= 0 {
			probe, err := uc.extractor.Probe(ctx, videoPath)
			if err != nil {
				log.Warn("probe failed, assuming default frame rate", zap.Error(err), zap.Float64("fps", entity.DefaultFPS))
			} else {
				fps = probe.FPS
			}
		}
		ts = append(ts, entity.MarkTimestamps(*m, fps, ts)...)
	}
	slices.Sort(ts)
	return ts
}
