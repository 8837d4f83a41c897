package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// BucketStore keeps objects in a Cloud Storage bucket, typically the
// Firebase project's default bucket.
type BucketStore struct {
	bucket *storage.BucketHandle
}

func NewBucketStore(bucket *storage.BucketHandle) *BucketStore {
	return &BucketStore{bucket: bucket}
}

func (b *BucketStore) Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}
	w := b.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	written, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return Object{}, fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Object{}, fmt.Errorf("finalize %s: %w", key, err)
	}
	return Object{Key: key, ContentType: contentType, Size: written}, nil
}

func (b *BucketStore) Open(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, Object{}, err
	}
	r, err := b.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, err
	}
	contentType := r.Attrs.ContentType
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}
	return r, Object{Key: key, ContentType: contentType, Size: r.Attrs.Size}, nil
}

func (b *BucketStore) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := b.bucket.Object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}
