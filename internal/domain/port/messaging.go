package port

import "context"

// StatusPublisher announces every export job transition. msg is a JSON
// encoded entity.VideoStatusMessage.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// DLQPublisher parks an export request that will never succeed, together with
// the reason it was rejected.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}

// FailureNotifier tells the requesting user that an export was abandoned.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, jobID string, videoKey string, errorMsg string) error
}
