// Package minio implements gantry targets stored in MinIO or any
// S3-compatible object store.
//
// Object stores have no real directories; this package follows the usual
// S3 convention of treating a key prefix with entries under it as a
// directory, and Mkdir writes a zero-byte "path/" marker object.
package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"github.com/bobg/errors"
	"github.com/minio/minio-go/v7"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/gantrybuild/gantry"
)

// FS implements [gantry.FileSystem] over one bucket of an S3-compatible
// store. All keys are joined under rootPrefix.
type FS struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewFS returns a filesystem over the given bucket.
// rootPrefix (may be empty) is prepended to every path.
func NewFS(client *minio.Client, bucket, rootPrefix string) *FS {
	return &FS{client: client, bucket: bucket, prefix: rootPrefix}
}

var _ gantry.DirFS = &FS{}

func (s *FS) key(p string) string {
	return strings.TrimPrefix(path.Join(s.prefix, p), "/")
}

// Exists reports whether path names an object or a non-empty "directory"
// prefix.
func (s *FS) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(p), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if !isNotFound(err) {
		return false, &gantry.FSError{Op: "exists", Path: p, Err: translate(err)}
	}
	return s.IsDir(ctx, p)
}

// Remove deletes the object at path. With recursive set it deletes every
// object under the path's prefix as well, concurrently.
func (s *FS) Remove(ctx context.Context, p string, recursive bool) error {
	if !recursive {
		err := s.client.RemoveObject(ctx, s.bucket, s.key(p), minio.RemoveObjectOptions{})
		if err != nil && !isNotFound(err) {
			return &gantry.FSError{Op: "remove", Path: p, Err: translate(err)}
		}
		return nil
	}

	// Deletions run on the group's context so they stop early when one
	// fails; the listing stays on the caller's context so a delete
	// failure doesn't turn into a spurious cancellation error here.
	// The group is always joined, and its error (the first real delete
	// failure) is what the caller sees.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	remove := func(key string) {
		g.Go(func() error {
			err := s.client.RemoveObject(gctx, s.bucket, key, minio.RemoveObjectOptions{})
			if err != nil && !isNotFound(err) {
				return translate(err)
			}
			return nil
		})
	}

	remove(s.key(p))
	prefix := s.key(p) + "/"
	var listErr error
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			listErr = translate(obj.Err)
			break
		}
		remove(obj.Key)
	}

	if err := multierr.Combine(g.Wait(), listErr); err != nil {
		return &gantry.FSError{Op: "remove", Path: p, Err: err}
	}
	return nil
}

// Mkdir writes a zero-byte directory marker at path.
// It fails with [gantry.ErrExists] if the path already exists.
func (s *FS) Mkdir(ctx context.Context, p string) error {
	ok, err := s.Exists(ctx, p)
	if err != nil {
		return err
	}
	if ok {
		return &gantry.FSError{Op: "mkdir", Path: p, Err: gantry.ErrExists}
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key(p)+"/", bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return &gantry.FSError{Op: "mkdir", Path: p, Err: translate(err)}
	}
	return nil
}

// IsDir reports whether any object lives under the path's prefix.
func (s *FS) IsDir(ctx context.Context, p string) (bool, error) {
	prefix := s.key(p) + "/"
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, MaxKeys: 1}) {
		if obj.Err != nil {
			return false, &gantry.FSError{Op: "isdir", Path: p, Err: translate(obj.Err)}
		}
		return true, nil
	}
	return false, nil
}

// Target is an object in an S3-compatible store.
type Target struct {
	gantry.FSTarget
	fs *FS
}

// New returns a target for path on fsys.
func New(fsys *FS, path string) *Target {
	return &Target{FSTarget: gantry.NewFSTarget(fsys, path), fs: fsys}
}

// Open opens the target's object for reading.
// The object is stat'ed first so a missing target fails here rather than
// on the first read.
func (t *Target) Open(ctx context.Context) (io.ReadCloser, error) {
	key := t.fs.key(t.Path())
	if _, err := t.fs.client.StatObject(ctx, t.fs.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, &gantry.FSError{Op: "open", Path: t.Path(), Err: translate(err)}
	}
	obj, err := t.fs.client.GetObject(ctx, t.fs.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &gantry.FSError{Op: "open", Path: t.Path(), Err: translate(err)}
	}
	return obj, nil
}

// Create opens the target's object for writing.
// Bytes are streamed to the store through a pipe; the upload completes
// when the returned writer is closed, and the object is not visible
// until the upload has finished.
func (t *Target) Create(ctx context.Context) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	w := &objectWriter{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := t.fs.client.PutObject(ctx, t.fs.bucket, t.fs.key(t.Path()), pr, -1, minio.PutObjectOptions{})
		pr.CloseWithError(err)
		w.done <- translate(err)
	}()

	return w, nil
}

type objectWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *objectWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

var _ gantry.FileTarget = &Target{}

// RegisterKind registers fsys in the gantry kind registry under the
// given kind name, so the default maker can construct targets on it.
// Unlike the local and mem backends this cannot happen in init: an
// object-store filesystem needs a configured client first.
func RegisterKind(kind string, fsys *FS) {
	gantry.RegisterKind(kind, func(_ context.Context, req gantry.Request) (gantry.Target, error) {
		return New(fsys, req.Path), nil
	})
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound"
}

// translate maps MinIO error responses into the gantry error taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return errors.Wrap(gantry.ErrNotExist, resp.Code)
	case "AccessDenied":
		return errors.Wrap(err, "access denied")
	}
	return err
}
