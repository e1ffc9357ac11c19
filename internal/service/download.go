package service

import (
	"context"
	"errors"
	"io"

	"github.com/noah-isme/content-vault-api/pkg/archive"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/storage"
)

// DownloadSink receives a file or archive. Describe is called before the
// first Write; size is -1 when unknown.
type DownloadSink interface {
	io.Writer
	Describe(filename, contentType string, size int64)
}

type archiveStreamer interface {
	Stream(ctx context.Context, w io.Writer, entries []archive.Entry) (archive.Result, error)
}

type blobStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// copyBlob streams one stored blob to sink. Missing bytes are a 404, the same
// as a missing record.
func copyBlob(ctx context.Context, store blobStore, key string, sink DownloadSink, filename, contentType string, size int64) error {
	body, err := store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	defer body.Close()

	sink.Describe(filename, contentType, size)
	if _, err := io.Copy(sink, readerWithContext(ctx, body)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send file")
	}
	return nil
}

// streamArchive wraps Streamer errors into API errors.
func streamArchive(ctx context.Context, streamer archiveStreamer, sink DownloadSink, filename string, entries []archive.Entry) (archive.Result, error) {
	if len(entries) == 0 {
		return archive.Result{}, appErrors.ErrNoFilesAvailable
	}
	sink.Describe(filename, "application/zip", -1)
	result, err := streamer.Stream(ctx, sink, entries)
	if err != nil {
		if errors.Is(err, archive.ErrNoFilesAvailable) {
			return result, appErrors.ErrNoFilesAvailable
		}
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stream archive")
	}
	return result, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// putUpload stores validated bytes from the start of src.
func putUpload(ctx context.Context, store blobStore, key string, src io.ReaderAt, size int64, contentType string) error {
	return store.Put(ctx, key, io.NewSectionReader(src, 0, size), size, contentType)
}
