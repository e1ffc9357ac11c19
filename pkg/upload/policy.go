package upload

import "github.com/noah-isme/content-vault-api/pkg/config"

// Reason identifies why a file was rejected. Values are stable and returned
// to clients.
type Reason string

const (
	ReasonTooManyFiles         Reason = "TOO_MANY_FILES"
	ReasonFileTooLarge         Reason = "FILE_TOO_LARGE"
	ReasonEmptyFile            Reason = "EMPTY_FILE"
	ReasonMissingExtension     Reason = "MISSING_EXTENSION"
	ReasonBlockedType          Reason = "BLOCKED_TYPE"
	ReasonUnsupportedType      Reason = "UNSUPPORTED_TYPE"
	ReasonTypeMismatch         Reason = "TYPE_MISMATCH"
	ReasonUnverifiableType     Reason = "UNVERIFIABLE_TYPE"
	ReasonContentMismatch      Reason = "CONTENT_MISMATCH"
	ReasonTooManyEntries       Reason = "TOO_MANY_ENTRIES"
	ReasonEncryptedArchive     Reason = "ENCRYPTED_ARCHIVE"
	ReasonUnsafeArchivePath    Reason = "UNSAFE_ARCHIVE_PATH"
	ReasonUnsafeArchiveContent Reason = "UNSAFE_ARCHIVE_CONTENT"
	ReasonArchiveTooLarge      Reason = "ARCHIVE_TOO_LARGE"
	ReasonCorruptArchive       Reason = "CORRUPT_ARCHIVE"
	ReasonUnreadable           Reason = "UNREADABLE"
)

// BlockedExtensions are refused everywhere, including inside archives.
var BlockedExtensions = newSet("exe", "bat", "cmd", "com", "dll", "jar", "js", "msi", "ps1", "py", "rb", "scr", "sh", "vbs")

// declaredTypes lists the client-declared MIME types accepted per extension.
var declaredTypes = map[string][]string{
	"pdf":  {"application/pdf"},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	"pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"png":  {"image/png"},
	"jpg":  {"image/jpeg"},
	"jpeg": {"image/jpeg"},
	"webp": {"image/webp"},
	"zip":  {"application/zip", "application/x-zip-compressed"},
	"txt":  {"text/plain"},
}

// sniffedFamily is the content family the bytes must sniff as per extension.
var sniffedFamily = map[string]string{
	"pdf":  MIMEPDF,
	"docx": MIMEZip,
	"pptx": MIMEZip,
	"xlsx": MIMEZip,
	"zip":  MIMEZip,
	"png":  MIMEPNG,
	"jpg":  MIMEJPEG,
	"jpeg": MIMEJPEG,
	"webp": MIMEWebP,
	"txt":  MIMEText,
}

var officeExtensions = newSet("docx", "pptx", "xlsx")

// ContentTypeFor returns the canonical MIME type served for ext.
func ContentTypeFor(ext string) string {
	if types, ok := declaredTypes[ext]; ok {
		return types[0]
	}
	return "application/octet-stream"
}

// ArchiveLimits bounds what an uploaded ZIP may contain.
type ArchiveLimits struct {
	MaxEntries      int
	MaxUncompressed int64
	// EntryTypes, when set, restricts entry extensions; office containers
	// carry XML parts and leave it nil.
	EntryTypes map[string]struct{}
}

// Policy is the full rule set applied to one kind of upload.
type Policy struct {
	Name          string
	MaxFiles      int
	MaxFileSize   int64
	Allowed       map[string]struct{}
	Archive       ArchiveLimits
	InspectOffice bool
	OfficeArchive ArchiveLimits
}

// BatchPolicy governs files attached to submission batches.
func BatchPolicy(cfg config.UploadsConfig) Policy {
	allowed := newSet("pdf", "docx", "pptx", "xlsx", "png", "jpg", "jpeg", "zip")
	return Policy{
		Name:          "batch",
		MaxFiles:      cfg.MaxFilesPerBatch,
		MaxFileSize:   cfg.MaxBatchFileSize,
		Allowed:       allowed,
		Archive:       archiveLimits(cfg, allowed),
		InspectOffice: !cfg.SkipOfficeInspection,
		OfficeArchive: officeLimits(cfg),
	}
}

// ContentPolicy governs single-file content items, which also accept txt.
func ContentPolicy(cfg config.UploadsConfig) Policy {
	allowed := newSet("pdf", "docx", "pptx", "xlsx", "png", "jpg", "jpeg", "zip", "txt")
	return Policy{
		Name:          "content",
		MaxFiles:      1,
		MaxFileSize:   cfg.MaxContentFileSize,
		Allowed:       allowed,
		Archive:       archiveLimits(cfg, allowed),
		InspectOffice: !cfg.SkipOfficeInspection,
		OfficeArchive: officeLimits(cfg),
	}
}

// MemePolicy governs meme images.
func MemePolicy(cfg config.UploadsConfig) Policy {
	return Policy{
		Name:        "meme",
		MaxFiles:    1,
		MaxFileSize: cfg.MaxMemeFileSize,
		Allowed:     newSet("png", "jpg", "jpeg", "webp"),
	}
}

func archiveLimits(cfg config.UploadsConfig, allowed map[string]struct{}) ArchiveLimits {
	return ArchiveLimits{
		MaxEntries:      cfg.MaxArchiveEntries,
		MaxUncompressed: cfg.MaxArchiveUncompressed,
		EntryTypes:      allowed,
	}
}

func officeLimits(cfg config.UploadsConfig) ArchiveLimits {
	return ArchiveLimits{
		MaxEntries:      cfg.MaxArchiveEntries,
		MaxUncompressed: cfg.MaxArchiveUncompressed,
	}
}

func newSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
