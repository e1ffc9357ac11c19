package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/pkg/upload"
)

// DefaultChunkSize is the copy buffer used per entry.
const DefaultChunkSize = 8 * 1024

// ErrNoFilesAvailable is returned when none of the requested entries could be
// opened. Nothing has been written to the destination in that case.
var ErrNoFilesAvailable = errors.New("no files available")

// Opener fetches blob bytes by storage key.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Entry is one file to place in the archive. Name is the untrusted original
// name; the streamer sanitizes and de-duplicates it.
type Entry struct {
	Name     string
	Key      string
	Modified time.Time
}

// Result summarises a finished build.
type Result struct {
	Added   int
	Skipped []string
	Bytes   int64
}

// Streamer writes ZIP archives entry by entry, holding at most one open blob
// and one chunk buffer at a time.
type Streamer struct {
	store     Opener
	chunkSize int
	logger    *zap.Logger
}

// NewStreamer builds a Streamer. chunkSize <= 0 selects DefaultChunkSize.
func NewStreamer(store Opener, chunkSize int, logger *zap.Logger) *Streamer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{store: store, chunkSize: chunkSize, logger: logger}
}

// Stream writes a ZIP of entries, in order, to w. Entries whose blob cannot
// be opened are skipped with a warning. The first byte reaches w only after
// the first entry opened successfully, so callers may delay committing
// response headers until then. Cancelling ctx stops the copy between chunks.
func (s *Streamer) Stream(ctx context.Context, w io.Writer, entries []Entry) (Result, error) {
	var (
		result   Result
		zw       *zip.Writer
		counter  = &countingWriter{w: w}
		resolver = upload.NewNameResolver()
		buf      = make([]byte, s.chunkSize)
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		rc, err := s.store.Open(ctx, entry.Key)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			s.logger.Warn("archive entry skipped",
				zap.String("storage_key", entry.Key),
				zap.Error(err),
			)
			result.Skipped = append(result.Skipped, entry.Key)
			continue
		}

		if zw == nil {
			zw = zip.NewWriter(counter)
		}
		name := resolver.Resolve(upload.Sanitize(entry.Name))
		err = s.copyEntry(ctx, zw, name, entry.Modified, rc, buf)
		_ = rc.Close()
		if err != nil {
			result.Bytes = counter.n
			return result, err
		}
		result.Added++
	}

	if zw == nil {
		return result, ErrNoFilesAvailable
	}
	if err := zw.Close(); err != nil {
		result.Bytes = counter.n
		return result, fmt.Errorf("finish archive: %w", err)
	}
	result.Bytes = counter.n
	return result, nil
}

func (s *Streamer) copyEntry(ctx context.Context, zw *zip.Writer, name string, modified time.Time, r io.Reader, buf []byte) error {
	header := &zip.FileHeader{
		Name:   name,
		Method: methodFor(name),
	}
	if !modified.IsZero() {
		header.Modified = modified.UTC()
	}
	header.SetMode(0o644)

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create archive entry: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := fw.Write(buf[:n]); err != nil {
				return fmt.Errorf("write archive entry: %w", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read blob: %w", readErr)
		}
	}
}

// methodFor stores formats that are already compressed and deflates the rest.
func methodFor(name string) uint16 {
	switch upload.Extension(name) {
	case "png", "jpg", "jpeg", "webp", "zip", "docx", "pptx", "xlsx":
		return zip.Store
	default:
		return zip.Deflate
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
