package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/pkg/response"
)

// attachmentWriter is a service.DownloadSink over a gin response. Headers are
// committed on the first Write, so an error raised before any byte exists
// still renders as a JSON error.
type attachmentWriter struct {
	c           *gin.Context
	filename    string
	contentType string
	size        int64
	committed   bool
}

func newAttachmentWriter(c *gin.Context) *attachmentWriter {
	return &attachmentWriter{c: c, size: -1}
}

func (w *attachmentWriter) Describe(filename, contentType string, size int64) {
	w.filename, w.contentType, w.size = filename, contentType, size
}

func (w *attachmentWriter) Write(p []byte) (int, error) {
	if !w.committed {
		w.commit()
	}
	return w.c.Writer.Write(p)
}

func (w *attachmentWriter) commit() {
	response.AttachmentHeaders(w.c, w.filename, w.contentType)
	if w.size >= 0 {
		w.c.Header("Content-Length", strconv.FormatInt(w.size, 10))
	}
	w.c.Writer.WriteHeaderNow()
	w.committed = true
}

// finish completes the response. After commit an error can only cut the
// stream short, so it is logged and the connection abandoned.
func (w *attachmentWriter) finish(err error, logger *zap.Logger) {
	if err == nil {
		if !w.committed {
			w.commit()
		}
		return
	}
	if !w.committed {
		response.Error(w.c, err)
		return
	}
	logger.Warn("download interrupted",
		zap.String("path", w.c.Request.URL.Path),
		zap.String("filename", w.filename),
		zap.Error(err),
	)
	w.c.Abort()
}
