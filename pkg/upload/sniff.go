package upload

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLength bounds how many leading bytes a Sniffer is given.
const SniffLength = 3072

// Canonical content families reported by sniffers.
const (
	MIMEPDF        = "application/pdf"
	MIMEPNG        = "image/png"
	MIMEJPEG       = "image/jpeg"
	MIMEWebP       = "image/webp"
	MIMEZip        = "application/zip"
	MIMEText       = "text/plain"
	MIMEExecutable = "application/x-executable"
)

// Sniff backends selectable through configuration.
const (
	SnifferSignature = "signature"
	SnifferMimetype  = "mimetype"
)

// Sniffer inspects leading bytes and reports a content family, or "" when it
// cannot tell.
type Sniffer interface {
	Sniff(header []byte) string
}

// NewSniffer returns the sniffer registered under name, defaulting to the
// signature table.
func NewSniffer(name string) Sniffer {
	if strings.EqualFold(name, SnifferMimetype) {
		return MimetypeSniffer{}
	}
	return SignatureSniffer{}
}

var signatures = []struct {
	prefix []byte
	mime   string
}{
	{[]byte("%PDF"), MIMEPDF},
	{[]byte("\x89PNG\r\n\x1a\n"), MIMEPNG},
	{[]byte("\xff\xd8\xff"), MIMEJPEG},
	{[]byte("PK\x03\x04"), MIMEZip},
	{[]byte("MZ"), MIMEExecutable},
	{[]byte("\x7fELF"), MIMEExecutable},
}

// SignatureSniffer matches a fixed table of magic numbers and falls back to a
// printable-text heuristic.
type SignatureSniffer struct{}

// Sniff implements Sniffer.
func (SignatureSniffer) Sniff(header []byte) string {
	for _, sig := range signatures {
		if bytes.HasPrefix(header, sig.prefix) {
			return sig.mime
		}
	}
	if len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WEBP")) {
		return MIMEWebP
	}
	if looksLikeText(header) {
		return MIMEText
	}
	return ""
}

var mimetypeFamilies = []string{MIMEPDF, MIMEPNG, MIMEJPEG, MIMEWebP, MIMEZip, MIMEText}

// MimetypeSniffer delegates detection to gabriel-vasile/mimetype and folds
// the result onto the canonical families, so a docx reports MIMEZip.
type MimetypeSniffer struct{}

// Sniff implements Sniffer.
func (MimetypeSniffer) Sniff(header []byte) string {
	if len(header) == 0 {
		return ""
	}
	detected := mimetype.Detect(header)
	for m := detected; m != nil; m = m.Parent() {
		for _, family := range mimetypeFamilies {
			if m.Is(family) {
				return family
			}
		}
	}
	if detected.Is("application/octet-stream") {
		return ""
	}
	leaf, _, _ := strings.Cut(detected.String(), ";")
	return strings.TrimSpace(leaf)
}

func looksLikeText(header []byte) bool {
	if len(header) == 0 {
		return false
	}
	for i := 0; i < len(header); {
		r, size := utf8.DecodeRune(header[i:])
		if r == utf8.RuneError && size == 1 {
			// a multi-byte rune cut off by the prefix limit is fine
			return len(header)-i < utf8.UTFMax && !utf8.FullRune(header[i:])
		}
		if r == 0x7f || (r < 0x20 && r != '\t' && r != '\n' && r != '\r' && r != '\f') {
			return false
		}
		i += size
	}
	return true
}
