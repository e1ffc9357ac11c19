package upload

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"
)

const (
	fallbackName  = "file"
	maxNameLength = 255
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// Sanitize turns an untrusted client filename into a display name that is safe
// to put in a Content-Disposition header or a ZIP entry. It never returns an
// empty string, a path separator or a ".." sequence.
func Sanitize(raw string) string {
	name := strings.ReplaceAll(raw, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if len(name) >= 2 && name[1] == ':' && isASCIILetter(name[0]) {
		name = name[2:]
	}

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' || r == '\'' || r == '`' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = unsafeNameChars.ReplaceAllString(name, "")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", "")
	}
	name = strings.TrimSpace(name)

	if name == "" || name == "." {
		return fallbackName
	}
	return clip(name)
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := path.Ext(name)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(ext[1:])
}

func clip(name string) string {
	if len(name) <= maxNameLength {
		return name
	}
	ext := path.Ext(name)
	if len(ext) >= maxNameLength {
		return name[:maxNameLength]
	}
	return name[:maxNameLength-len(ext)] + ext
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// NameResolver hands out unique entry names for a single archive build. The
// zero value is not usable; create one per build with NewNameResolver.
type NameResolver struct {
	taken map[string]struct{}
}

// NewNameResolver returns an empty resolver.
func NewNameResolver() *NameResolver {
	return &NameResolver{taken: make(map[string]struct{})}
}

// Resolve returns name if unused, otherwise the first free "stem-N.ext".
// Comparison is case-insensitive so extraction on case-insensitive
// filesystems does not collide either. The caller's casing is kept.
func (r *NameResolver) Resolve(name string) string {
	if r.claim(name) {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if r.claim(candidate) {
			return candidate
		}
	}
}

func (r *NameResolver) claim(name string) bool {
	key := strings.ToLower(name)
	if _, exists := r.taken[key]; exists {
		return false
	}
	r.taken[key] = struct{}{}
	return true
}
