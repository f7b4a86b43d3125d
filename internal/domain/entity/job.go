package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("export job not found")

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Artifacts holds the object keys of everything a job uploaded.
type Artifacts struct {
	FramesKey      string `json:"frames_key,omitempty"`
	SpriteSheetKey string `json:"sprite_sheet_key,omitempty"`
	GIFKey         string `json:"gif_key,omitempty"`
	PreviewKey     string `json:"preview_key,omitempty"`
}

type ExportJob struct {
	ID           uuid.UUID
	UserID       string
	VideoKey     string
	Status       JobStatus
	Artifacts    Artifacts
	FrameCount   int
	FileSize     int64
	Settings     SettingsFingerprint
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewExportJob(userID, videoKey string, fileSize int64, maxAttempts int) *ExportJob {
	now := time.Now().UTC()
	return &ExportJob{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *ExportJob) MarkProcessing(fp SettingsFingerprint) {
	j.Status = JobStatusProcessing
	j.Settings = fp
	j.Attempt++
	j.ErrorMessage = ""
	j.UpdatedAt = time.Now().UTC()
}

func (j *ExportJob) MarkCompleted(artifacts Artifacts, frameCount int) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.Artifacts = artifacts
	j.FrameCount = frameCount
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *ExportJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *ExportJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
