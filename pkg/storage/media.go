package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaFile is one pending upload.
type MediaFile struct {
	Name string
	Data []byte
}

// MediaStore is the external file store announcements and applications attach
// media to.
type MediaStore interface {
	// Upload stores one file and returns its public URL.
	Upload(ctx context.Context, file MediaFile) (string, error)
	// UploadMany stores files concurrently; it fails as a whole if any
	// single upload fails.
	UploadMany(ctx context.Context, files []MediaFile) ([]string, error)
}

// ErrTransient marks an upload failure worth retrying.
var ErrTransient = errors.New("transient upload failure")

// IsTransient reports whether the upload error looks like a passing network
// condition rather than a permanent rejection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// LocalMediaStore stores media on local disk and serves it under urlPrefix.
type LocalMediaStore struct {
	files     *LocalStorage
	urlPrefix string
}

// NewLocalMediaStore wraps a LocalStorage for media uploads.
func NewLocalMediaStore(files *LocalStorage, urlPrefix string) *LocalMediaStore {
	if urlPrefix == "" {
		urlPrefix = "/media"
	}
	return &LocalMediaStore{files: files, urlPrefix: urlPrefix}
}

// Upload stores the file under a collision-free name.
func (s *LocalMediaStore) Upload(ctx context.Context, file MediaFile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := uuid.NewString() + "-" + path.Base(file.Name)
	rel, err := s.files.Save(name, file.Data)
	if err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + rel, nil
}

// UploadMany fans the single-upload primitive out in parallel.
func (s *LocalMediaStore) UploadMany(ctx context.Context, files []MediaFile) ([]string, error) {
	return uploadMany(ctx, s, files)
}

// RetryingMediaStore retries transient upload failures a bounded number of
// times with a fixed delay. Permanent failures surface immediately.
type RetryingMediaStore struct {
	inner      MediaStore
	maxRetries int
	delay      time.Duration
	logger     *zap.Logger
}

// NewRetryingMediaStore wraps a store with retry behaviour.
func NewRetryingMediaStore(inner MediaStore, maxRetries int, delay time.Duration, logger *zap.Logger) *RetryingMediaStore {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingMediaStore{inner: inner, maxRetries: maxRetries, delay: delay, logger: logger}
}

// Upload attempts the upload, retrying transient failures.
func (s *RetryingMediaStore) Upload(ctx context.Context, file MediaFile) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.delay):
			}
			s.logger.Warn("retrying media upload",
				zap.String("file", file.Name), zap.Int("attempt", attempt))
		}
		url, err := s.inner.Upload(ctx, file)
		if err == nil {
			return url, nil
		}
		if !IsTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("upload %s: retries exhausted: %w", file.Name, lastErr)
}

// UploadMany fans the retried single-upload primitive out in parallel.
func (s *RetryingMediaStore) UploadMany(ctx context.Context, files []MediaFile) ([]string, error) {
	return uploadMany(ctx, s, files)
}

func uploadMany(ctx context.Context, store MediaStore, files []MediaFile) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}

	urls := make([]string, len(files))
	errs := make([]error, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, file MediaFile) {
			defer wg.Done()
			urls[i], errs[i] = store.Upload(ctx, file)
		}(i, file)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return urls, nil
}
