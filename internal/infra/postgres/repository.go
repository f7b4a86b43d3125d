package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
)

type ExportJobRepository struct {
	pool *pgxpool.Pool
}

func NewExportJobRepository(pool *pgxpool.Pool) *ExportJobRepository {
	return &ExportJobRepository{pool: pool}
}

func (r *ExportJobRepository) Create(ctx context.Context, job *entity.ExportJob) error {
	query := `
		INSERT INTO export_jobs (
			id, user_id, video_key, status, frame_count, file_size,
			settings_fingerprint, frames_key, sprite_sheet_key, gif_key, preview_key,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, string(job.Status), job.FrameCount, job.FileSize,
		string(job.Settings), job.Artifacts.FramesKey, job.Artifacts.SpriteSheetKey,
		job.Artifacts.GIFKey, job.Artifacts.PreviewKey,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export job: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) Update(ctx context.Context, job *entity.ExportJob) error {
	query := `
		UPDATE export_jobs SET
			status=$2, frame_count=$3, settings_fingerprint=$4,
			frames_key=$5, sprite_sheet_key=$6, gif_key=$7, preview_key=$8,
			attempt=$9, error_message=$10, updated_at=$11, completed_at=$12
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.FrameCount, string(job.Settings),
		job.Artifacts.FramesKey, job.Artifacts.SpriteSheetKey,
		job.Artifacts.GIFKey, job.Artifacts.PreviewKey,
		job.Attempt, job.ErrorMessage, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update export job %s: %w", job.ID, entity.ErrJobNotFound)
	}
	return nil
}

func (r *ExportJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.ExportJob, error) {
	query := `
		SELECT id, user_id, video_key, status, frame_count, file_size,
			settings_fingerprint, frames_key, sprite_sheet_key, gif_key, preview_key,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		FROM export_jobs WHERE id=$1`

	job := &entity.ExportJob{}
	var status, fingerprint string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &status, &job.FrameCount, &job.FileSize,
		&fingerprint, &job.Artifacts.FramesKey, &job.Artifacts.SpriteSheetKey,
		&job.Artifacts.GIFKey, &job.Artifacts.PreviewKey,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, entity.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find export job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	job.Settings = entity.SettingsFingerprint(fingerprint)
	return job, nil
}
