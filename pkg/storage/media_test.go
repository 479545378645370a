package storage

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	calls    atomic.Int32
	failures int
	err      error
}

func (f *fakeStore) Upload(ctx context.Context, file MediaFile) (string, error) {
	n := f.calls.Add(1)
	if int(n) <= f.failures {
		return "", f.err
	}
	return "/media/" + file.Name, nil
}

func (f *fakeStore) UploadMany(ctx context.Context, files []MediaFile) ([]string, error) {
	return uploadMany(ctx, f, files)
}

func TestRetryingMediaStoreRecoversFromTransientFailure(t *testing.T) {
	inner := &fakeStore{failures: 2, err: fmt.Errorf("connection reset: %w", ErrTransient)}
	store := NewRetryingMediaStore(inner, 3, time.Millisecond, nil)

	url, err := store.Upload(context.Background(), MediaFile{Name: "slip.pdf", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "/media/slip.pdf", url)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryingMediaStoreGivesUpAfterBoundedRetries(t *testing.T) {
	inner := &fakeStore{failures: 10, err: fmt.Errorf("timeout: %w", ErrTransient)}
	store := NewRetryingMediaStore(inner, 2, time.Millisecond, nil)

	_, err := store.Upload(context.Background(), MediaFile{Name: "slip.pdf"})
	require.Error(t, err)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestRetryingMediaStoreDoesNotRetryPermanentFailure(t *testing.T) {
	inner := &fakeStore{failures: 10, err: errors.New("file too large")}
	store := NewRetryingMediaStore(inner, 3, time.Millisecond, nil)

	_, err := store.Upload(context.Background(), MediaFile{Name: "slip.pdf"})
	require.Error(t, err)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestUploadManyIsParallelFanOutOfSingleUpload(t *testing.T) {
	inner := &fakeStore{}
	urls, err := inner.UploadMany(context.Background(), []MediaFile{
		{Name: "a.png"}, {Name: "b.png"}, {Name: "c.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/media/a.png", "/media/b.png", "/media/c.png"}, urls)
}

func TestUploadManyFailsWhole(t *testing.T) {
	inner := &fakeStore{failures: 1, err: errors.New("boom")}
	_, err := inner.UploadMany(context.Background(), []MediaFile{
		{Name: "a.png"}, {Name: "b.png"},
	})
	require.Error(t, err)
}

func TestLocalMediaStoreRoundTrip(t *testing.T) {
	files, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store := NewLocalMediaStore(files, "/media")

	url, err := store.Upload(context.Background(), MediaFile{Name: "notice.png", Data: []byte("img")})
	require.NoError(t, err)
	assert.Contains(t, url, "/media/")
	assert.Contains(t, url, "notice.png")
}
