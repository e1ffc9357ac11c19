package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
	"github.com/noah-isme/content-vault-api/pkg/upload"
)

// multipartMemory is how much of a form is buffered in memory; larger parts
// spill to temporary files.
const multipartMemory = 8 << 20

var errBodyTooLarge = appErrors.WithDetails(appErrors.ErrUploadRejected, []*upload.Rejection{{
	Reason:  upload.ReasonFileTooLarge,
	Message: "request body too large",
}})

// uploadForm is a parsed multipart request. Close releases open parts and
// temporary files.
type uploadForm struct {
	form  *multipart.Form
	files []multipart.File
}

func (f *uploadForm) Close() {
	for _, file := range f.files {
		_ = file.Close()
	}
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}

func (f *uploadForm) value(key string) string {
	if f.form == nil || len(f.form.Value[key]) == 0 {
		return ""
	}
	return f.form.Value[key][0]
}

// parseUploadForm reads a multipart body capped at maxBody bytes and opens
// the parts under fields, in order.
func parseUploadForm(c *gin.Context, maxBody int64, fields ...string) (*uploadForm, []upload.FileInput, error) {
	if maxBody > 0 {
		if c.Request.ContentLength > maxBody {
			return nil, nil, errBodyTooLarge
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errBodyTooLarge
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart form required")
	}

	parsed := &uploadForm{form: c.Request.MultipartForm}
	var inputs []upload.FileInput
	for _, field := range fields {
		for _, header := range parsed.form.File[field] {
			file, err := header.Open()
			if err != nil {
				parsed.Close()
				return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file could not be read")
			}
			parsed.files = append(parsed.files, file)
			inputs = append(inputs, upload.FileInput{
				Name:        header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Content:     file,
			})
		}
	}
	if len(inputs) == 0 {
		parsed.Close()
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "no files uploaded")
	}
	return parsed, inputs, nil
}
