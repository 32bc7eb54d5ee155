package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/pfm-ledger/internal/store"
	"google.golang.org/api/googleapi"
)

// ErrConcurrentWrite means the ledger object was replaced by another writer
// since it was last read.
var ErrConcurrentWrite = errors.New("ledger object changed by another writer")

// ObjectSource keeps the ledger as one CSV object in a bucket. Writes are
// conditional on the generation last seen, so a second process overwriting
// the object is detected instead of silently lost.
type ObjectSource struct {
	client *storage.Client
	bucket string
	object string

	mu         sync.Mutex
	generation int64 // 0 while the object does not exist
}

// NewObjectSource returns a source for gs://bucket/object.
func NewObjectSource(client *storage.Client, bucket, object string) *ObjectSource {
	return &ObjectSource{client: client, bucket: bucket, object: object}
}

// URI returns the object location.
func (s *ObjectSource) URI() string {
	return "gs://" + s.bucket + "/" + s.object
}

// LoadAll reads the object. A missing object is an empty ledger.
func (s *ObjectSource) LoadAll(ctx context.Context) (store.Contents, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rc, err := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		s.generation = 0
		return store.Contents{}, nil
	}
	if err != nil {
		return store.Contents{}, fmt.Errorf("ObjectSource.LoadAll: reading %s: %w", s.URI(), err)
	}
	defer rc.Close()

	contents, err := store.DecodeLedger(rc)
	if err != nil {
		return store.Contents{}, fmt.Errorf("ObjectSource.LoadAll: %s: %w", s.URI(), err)
	}
	s.generation = rc.Attrs.Generation
	return contents, nil
}

// ReplaceAll uploads the whole ledger as a new object generation.
func (s *ObjectSource) ReplaceAll(ctx context.Context, f store.Flush) error {
	data, err := store.MarshalLedger(f)
	if err != nil {
		return fmt.Errorf("ObjectSource.ReplaceAll: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cond := storage.Conditions{DoesNotExist: true}
	if s.generation != 0 {
		cond = storage.Conditions{GenerationMatch: s.generation}
	}

	// cancelling the context is the only way to abort a started upload
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(s.object).If(cond).NewWriter(ctx)
	w.ContentType = "text/csv; charset=utf-8"
	if _, err := w.Write(data); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("ObjectSource.ReplaceAll: write %s: %w", s.URI(), err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("ObjectSource.ReplaceAll: %s: %w", s.URI(), ErrConcurrentWrite)
		}
		return fmt.Errorf("ObjectSource.ReplaceAll: finalize %s: %w", s.URI(), err)
	}
	s.generation = w.Attrs().Generation
	return nil
}

// Ensure ObjectSource implements store.Source interface.
var _ store.Source = (*ObjectSource)(nil)
