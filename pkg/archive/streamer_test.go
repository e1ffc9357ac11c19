package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/pkg/storage"
)

func seed(t *testing.T, store *storage.MemoryStorage, key, body string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), ""))
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = string(body)
	}
	return out
}

func TestStreamWritesEntriesInOrderWithSafeUniqueNames(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store, "k/1", "%PDF one")
	seed(t, store, "k/2", "%PDF two")
	seed(t, store, "k/3", "three")

	var buf bytes.Buffer
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	result, err := NewStreamer(store, 4, nil).Stream(context.Background(), &buf, []Entry{
		{Name: "../../report.pdf", Key: "k/1", Modified: modified},
		{Name: "report.pdf", Key: "k/2", Modified: modified},
		{Name: "C:\\temp\\notes.txt", Key: "k/3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Added)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, int64(buf.Len()), result.Bytes)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"report.pdf", "report-1.pdf", "notes.txt"}, names)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)

	contents := readZip(t, buf.Bytes())
	assert.Equal(t, "%PDF one", contents["report.pdf"])
	assert.Equal(t, "%PDF two", contents["report-1.pdf"])
}

func TestStreamSkipsMissingBlobs(t *testing.T) {
	store := storage.NewMemoryStorage()
	seed(t, store, "k/2", "present")

	var buf bytes.Buffer
	result, err := NewStreamer(store, 0, nil).Stream(context.Background(), &buf, []Entry{
		{Name: "gone.pdf", Key: "k/1"},
		{Name: "here.png", Key: "k/2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, []string{"k/1"}, result.Skipped)

	contents := readZip(t, buf.Bytes())
	assert.Equal(t, map[string]string{"here.png": "present"}, contents)
}

func TestStreamWithNothingAvailableWritesNothing(t *testing.T) {
	store := storage.NewMemoryStorage()
	var buf bytes.Buffer

	_, err := NewStreamer(store, 0, nil).Stream(context.Background(), &buf, []Entry{{Name: "a.pdf", Key: "k/1"}})
	assert.ErrorIs(t, err, ErrNoFilesAvailable)
	assert.Zero(t, buf.Len())

	_, err = NewStreamer(store, 0, nil).Stream(context.Background(), &buf, nil)
	assert.ErrorIs(t, err, ErrNoFilesAvailable)
	assert.Zero(t, buf.Len())
}

type trackingOpener struct {
	body   []byte
	closed atomic.Int32
	onRead func()
}

func (o *trackingOpener) Open(context.Context, string) (io.ReadCloser, error) {
	return &trackingReader{r: bytes.NewReader(o.body), owner: o}, nil
}

type trackingReader struct {
	r     *bytes.Reader
	owner *trackingOpener
}

func (t *trackingReader) Read(p []byte) (int, error) {
	if t.owner.onRead != nil {
		t.owner.onRead()
	}
	return t.r.Read(p)
}

func (t *trackingReader) Close() error {
	t.owner.closed.Add(1)
	return nil
}

func TestStreamStopsOnCancellationAndClosesHandles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reads := 0
	opener := &trackingOpener{body: bytes.Repeat([]byte("a"), 64*1024)}
	opener.onRead = func() {
		reads++
		if reads == 2 {
			cancel()
		}
	}

	_, err := NewStreamer(opener, 1024, nil).Stream(ctx, io.Discard, []Entry{
		{Name: "a.pdf", Key: "k/1"},
		{Name: "b.pdf", Key: "k/2"},
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, int32(1), opener.closed.Load())
	assert.LessOrEqual(t, reads, 3)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("client gone") }

func TestStreamReturnsWriteErrors(t *testing.T) {
	opener := &trackingOpener{body: bytes.Repeat([]byte("a"), 32*1024)}
	_, err := NewStreamer(opener, 0, nil).Stream(context.Background(), failingWriter{}, []Entry{{Name: "a.pdf", Key: "k"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), opener.closed.Load())
}
