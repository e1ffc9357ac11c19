package upload

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/pkg/config"
)

var testUploads = config.UploadsConfig{
	MaxFilesPerBatch:       10,
	MaxBatchFileSize:       15 * 1024 * 1024,
	MaxContentFileSize:     25 * 1024 * 1024,
	MaxMemeFileSize:        10 * 1024 * 1024,
	MaxArchiveEntries:      200,
	MaxArchiveUncompressed: 150 * 1024 * 1024,
}

func pdfBytes() []byte {
	return []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")
}

func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
}

type zipEntry struct {
	name         string
	body         []byte
	flags        uint16
	uncompressed uint64
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		if e.flags != 0 || e.uncompressed != 0 {
			header := &zip.FileHeader{
				Name:               e.name,
				Method:             zip.Store,
				Flags:              e.flags,
				CompressedSize64:   uint64(len(e.body)),
				UncompressedSize64: e.uncompressed,
			}
			if header.UncompressedSize64 == 0 {
				header.UncompressedSize64 = uint64(len(e.body))
			}
			fw, err := w.CreateRaw(header)
			require.NoError(t, err)
			_, err = fw.Write(e.body)
			require.NoError(t, err)
			continue
		}
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = fw.Write(e.body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}
