package upload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd":        "passwd",
		"..\\..\\windows\\x.pdf":  "x.pdf",
		"C:evil.pdf":              "evil.pdf",
		"report final.pdf":        "report_final.pdf",
		"a\r\nb\x00c.pdf":         "abc.pdf",
		"\"quoted\".pdf":          "quoted.pdf",
		"my..file.pdf":            "myfile.pdf",
		"":                        "file",
		".":                       "file",
		"..":                      "file",
		"/":                       "file",
		"résumé.docx":             "rsum.docx",
		"  spaced  .png ":         "spaced__.png",
		"....pdf":                 "pdf",
	}
	for raw, want := range cases {
		assert.Equal(t, want, Sanitize(raw), "input %q", raw)
	}
}

func TestSanitizeNeverLeaksSeparatorsOrTraversal(t *testing.T) {
	inputs := []string{"../../x/../y", `..\..\..`, "a/b\\c/..", "\x00\x01..", "x/./../"}
	for _, raw := range inputs {
		got := Sanitize(raw)
		assert.NotEmpty(t, got)
		assert.NotContains(t, got, "/")
		assert.NotContains(t, got, "\\")
		assert.NotContains(t, got, "..")
	}
}

func TestSanitizeClipsLongNamesKeepingExtension(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 400) + ".pdf")
	assert.Len(t, got, maxNameLength)
	assert.True(t, strings.HasSuffix(got, ".pdf"))
}

func TestNameResolver(t *testing.T) {
	r := NewNameResolver()
	assert.Equal(t, "report.pdf", r.Resolve("report.pdf"))
	assert.Equal(t, "report-1.pdf", r.Resolve("report.pdf"))
	assert.Equal(t, "REPORT-2.pdf", r.Resolve("REPORT.pdf"))
	assert.Equal(t, "Report-3.PDF", r.Resolve("Report.PDF"))
	assert.Equal(t, "notes", r.Resolve("notes"))
	assert.Equal(t, "notes-1", r.Resolve("notes"))

	other := NewNameResolver()
	assert.Equal(t, "a-1.pdf", other.Resolve("a-1.pdf"))
	assert.Equal(t, "a.pdf", other.Resolve("a.pdf"))
	assert.Equal(t, "a-2.pdf", other.Resolve("a.pdf"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("x.PDF"))
	assert.Equal(t, "gz", Extension("x.tar.gz"))
	assert.Equal(t, "", Extension("README"))
	assert.Equal(t, "", Extension("trailing."))
}
