package entity

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

type OutputKind string

const (
	OutputFrames      OutputKind = "frames"
	OutputSpriteSheet OutputKind = "sprite_sheet"
	OutputGIF         OutputKind = "gif"
	OutputPreview     OutputKind = "preview"
)

var DefaultOutputs = []OutputKind{OutputFrames, OutputSpriteSheet, OutputGIF}

var (
	ErrNoFrames      = errors.New("no frames marked for export")
	ErrUnknownOutput = errors.New("unknown output kind")
)

// FrameMarking generates marks every N frames between two frame indices
// instead of listing timestamps explicitly.
type FrameMarking struct {
	EveryN     int     `json:"every_n"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	FPS        float64 `json:"fps,omitempty"`
}

type SpriteSheetOptions struct {
	Columns int `json:"columns,omitempty"`
	Rows    int `json:"rows,omitempty"`
	Padding int `json:"padding,omitempty"`
}

// ExportRequestMessage is the inbound message from the video.export queue.
type ExportRequestMessage struct {
	JobID         uuid.UUID          `json:"job_id"`
	UserID        string             `json:"user_id"`
	UserEmail     string             `json:"user_email"`
	VideoKey      string             `json:"video_key"`
	FileSize      int64              `json:"file_size"`
	Timestamps    []float64          `json:"timestamps,omitempty"`
	Marking       *FrameMarking      `json:"marking,omitempty"`
	Settings      SettingsRequest    `json:"settings"`
	Crop          CropInsets         `json:"crop"`
	Outputs       []OutputKind       `json:"outputs,omitempty"`
	SpriteSheet   SpriteSheetOptions `json:"sprite_sheet"`
	GIFFPS        int                `json:"gif_fps,omitempty"`
	BackgroundKey string             `json:"background_key,omitempty"`
}

// Validate rejects requests that can never succeed, however often retried.
func (m ExportRequestMessage) Validate() error {
	if m.VideoKey == "" {
		return errors.New("video_key is required")
	}
	if len(m.Timestamps) == 0 && (m.Marking == nil || m.Marking.EveryN <= 0) {
		return ErrNoFrames
	}
	for _, ts := range m.Timestamps {
		if ts < 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
			return fmt.Errorf("invalid timestamp %v", ts)
		}
	}
	for _, o := range m.Outputs {
		switch o {
		case OutputFrames, OutputSpriteSheet, OutputGIF, OutputPreview:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownOutput, o)
		}
	}
	return nil
}

func (m ExportRequestMessage) WantedOutputs() []OutputKind {
	if len(m.Outputs) == 0 {
		return DefaultOutputs
	}
	return m.Outputs
}

// VideoStatusMessage is the outbound message published to the video.status queue.
type VideoStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	VideoKey     string    `json:"video_key"`
	Artifacts    Artifacts `json:"artifacts"`
	FrameCount   int       `json:"frame_count,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
