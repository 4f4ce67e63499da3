package mirror

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// Mirror copies verified observation files into an object storage bucket.
type Mirror struct {
	bucket *blob.Bucket
	prefix string
	owned  bool
}

// Open opens the bucket at bucketURL (file://, s3://, gs:// or mem://).
func Open(ctx context.Context, bucketURL, prefix string) (*Mirror, error) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	m := New(bkt, prefix)
	m.owned = true
	return m, nil
}

// New wraps an already open bucket. Close does not close it.
func New(bucket *blob.Bucket, prefix string) *Mirror {
	return &Mirror{bucket: bucket, prefix: prefix}
}

// Key returns the object key a file name is stored under.
func (m *Mirror) Key(name string) string {
	if m.prefix == "" {
		return name
	}
	return strings.TrimSuffix(m.prefix, "/") + "/" + name
}

// Put uploads localPath under Key(filepath.Base(localPath)). An existing
// object of the same size is left alone and Put reports uploaded == false.
func (m *Mirror) Put(ctx context.Context, localPath string) (uploaded bool, err error) {
	st, err := os.Stat(localPath)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", localPath, err)
	}

	key := m.Key(filepath.Base(localPath))

	attrs, err := m.bucket.Attributes(ctx, key)
	switch {
	case err == nil && attrs.Size == st.Size():
		return false, nil
	case err != nil && gcerrors.Code(err) != gcerrors.NotFound:
		return false, fmt.Errorf("attributes %s: %w", key, err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	// Cancelling the writer's context before Close discards the object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := m.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/gzip",
	})
	if err != nil {
		return false, fmt.Errorf("new writer %s: %w", key, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		cancel()
		w.Close()
		return false, fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return false, fmt.Errorf("close %s: %w", key, err)
	}

	return true, nil
}

// Size returns the size of the mirrored copy of name, or -1 if absent.
func (m *Mirror) Size(ctx context.Context, name string) (int64, error) {
	attrs, err := m.bucket.Attributes(ctx, m.Key(name))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

// Close closes the bucket if Open created it.
func (m *Mirror) Close() error {
	if !m.owned {
		return nil
	}
	return m.bucket.Close()
}
