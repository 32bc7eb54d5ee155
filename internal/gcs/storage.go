package gcs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Client implements StorageService on a shared storage client.
type Client struct {
	client *storage.Client
}

// NewClient creates a storage client. It assumes Application Default
// Credentials are configured (gcloud auth application-default login).
func NewClient(ctx context.Context) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewClient: create storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// Storage exposes the underlying client for object sources.
func (c *Client) Storage() *storage.Client { return c.client }

// Close releases the storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

// UploadFile uploads a local file to a bucket under the given object name.
func (c *Client) UploadFile(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("UploadFile: open file %q: %w", filePath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("UploadFile: copy file to writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("UploadFile: finalize upload: %w", err)
	}
	return nil
}

// FetchObject downloads the bytes and content type of the object at uri.
func (c *Client) FetchObject(ctx context.Context, uri string) ([]byte, string, error) {
	bucketName, objectPath, err := ParseURI(uri)
	if err != nil {
		return nil, "", fmt.Errorf("FetchObject: %w", err)
	}

	rc, err := c.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("FetchObject: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("FetchObject: reading bytes: %w", err)
	}
	return data, contentType(rc.Attrs.ContentType, uri), nil
}

// contentType falls back to the file extension when the object carries no
// useful content type.
func contentType(stored, uri string) string {
	if stored != "" && stored != "application/octet-stream" {
		return stored
	}
	if t := mime.TypeByExtension(path.Ext(ExtractFilenameFromGCSURI(uri))); t != "" {
		return t
	}
	return stored
}

// ParseURI splits gs://bucket/path/to/object into bucket and object path.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// ExtractFilenameFromGCSURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.jpg" → "file.jpg"
func ExtractFilenameFromGCSURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// Ensure Client implements StorageService interface.
var _ StorageService = (*Client)(nil)
