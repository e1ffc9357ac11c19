package upload

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var driveLetterPath = regexp.MustCompile(`^[A-Za-z]:`)

// InspectZip walks the central directory of the archive in r without
// extracting anything. It returns nil when every entry is acceptable.
func InspectZip(r io.ReaderAt, size int64, limits ArchiveLimits) *Rejection {
	zr, err := zip.NewReader(r, size)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return reject(ReasonCorruptArchive, "archive is corrupt or not a zip file")
	}

	if limits.MaxEntries > 0 && len(zr.File) > limits.MaxEntries {
		return reject(ReasonTooManyEntries, fmt.Sprintf("archive has more than %d entries", limits.MaxEntries))
	}

	var total uint64
	for _, entry := range zr.File {
		if entry.Flags&0x1 != 0 {
			return reject(ReasonEncryptedArchive, "password protected archives are not allowed")
		}
		if IsUnsafeArchivePath(entry.Name) {
			return reject(ReasonUnsafeArchivePath, "archive contains an unsafe path")
		}
		if strings.HasSuffix(entry.Name, "/") || entry.FileInfo().IsDir() {
			continue
		}
		if limits.EntryTypes != nil {
			ext := Extension(strings.ReplaceAll(entry.Name, "\\", "/"))
			if ext == "" {
				return reject(ReasonUnsafeArchiveContent, "archive contains a file without extension")
			}
			if _, blocked := BlockedExtensions[ext]; blocked {
				return reject(ReasonUnsafeArchiveContent, "archive contains a blocked file type")
			}
			if _, ok := limits.EntryTypes[ext]; !ok {
				return reject(ReasonUnsafeArchiveContent, "archive contains a file type that is not allowed")
			}
		}
		total += entry.UncompressedSize64
		if limits.MaxUncompressed > 0 && total > uint64(limits.MaxUncompressed) {
			return reject(ReasonArchiveTooLarge, "archive exceeds the maximum uncompressed size")
		}
	}
	return nil
}

// IsUnsafeArchivePath reports whether an entry name is absolute, carries a
// drive letter or climbs out of the extraction root.
func IsUnsafeArchivePath(name string) bool {
	normalized := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(normalized, "/") || driveLetterPath.MatchString(normalized) {
		return true
	}
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
