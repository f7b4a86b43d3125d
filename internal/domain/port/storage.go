package port

import (
	"context"
	"io"
)

type ObjectStorage interface {
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	// OpenUpload streams an object from the upload bucket, e.g. a preview background.
	OpenUpload(ctx context.Context, objectKey string) (io.ReadCloser, error)
	UploadArtifact(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}
