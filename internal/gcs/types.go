package gcs

import (
	"context"
)

// StorageService is what the receipt tools need from object storage:
// archiving a scanned receipt and reading one back for extraction.
type StorageService interface {
	UploadFile(ctx context.Context, bucketName, objectName, filePath string) error

	// FetchObject returns the object bytes and content type for a
	// gs://bucket/object URI.
	FetchObject(ctx context.Context, uri string) ([]byte, string, error)
}
