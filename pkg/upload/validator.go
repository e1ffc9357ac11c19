package upload

import (
	"fmt"
	"io"
	"strings"
)

// Source is the random-access view of an upload the validator needs.
// multipart.File and bytes.Reader both satisfy it.
type Source interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// FileInput describes one untrusted upload.
type FileInput struct {
	Name        string
	ContentType string
	Content     Source
}

// Rejection explains why a file was refused.
type Rejection struct {
	File    string `json:"file,omitempty"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Error implements error.
func (r *Rejection) Error() string {
	if r.File == "" {
		return fmt.Sprintf("%s: %s", r.Reason, r.Message)
	}
	return fmt.Sprintf("%s: %s: %s", r.File, r.Reason, r.Message)
}

func reject(reason Reason, message string) *Rejection {
	return &Rejection{Reason: reason, Message: message}
}

// Accepted carries the facts the validator established about a file.
type Accepted struct {
	Name        string
	Extension   string
	Size        int64
	Declared    string
	Sniffed     string
	ContentType string
}

// Validator applies a Policy to uploads. It is safe for concurrent use.
type Validator struct {
	policy  Policy
	sniffer Sniffer
}

// NewValidator builds a validator; a nil sniffer selects SignatureSniffer.
func NewValidator(policy Policy, sniffer Sniffer) *Validator {
	if sniffer == nil {
		sniffer = SignatureSniffer{}
	}
	return &Validator{policy: policy, sniffer: sniffer}
}

// Policy returns the rule set in force.
func (v *Validator) Policy() Policy {
	return v.policy
}

// CheckCount rejects an incoming set that would push the total past MaxFiles.
// The whole set is refused, never a prefix of it.
func (v *Validator) CheckCount(existing, incoming int) *Rejection {
	if v.policy.MaxFiles > 0 && existing+incoming > v.policy.MaxFiles {
		return reject(ReasonTooManyFiles, fmt.Sprintf("at most %d files are allowed", v.policy.MaxFiles))
	}
	return nil
}

// Validate runs the checks in order and stops at the first failure. The read
// position of in.Content is the same after the call as before it.
func (v *Validator) Validate(in FileInput) (*Accepted, *Rejection) {
	name := Sanitize(in.Name)
	accepted, rejection := v.validate(name, in)
	if rejection != nil {
		rejection.File = name
		return nil, rejection
	}
	return accepted, nil
}

func (v *Validator) validate(name string, in FileInput) (*Accepted, *Rejection) {
	if in.Content == nil {
		return nil, reject(ReasonUnreadable, "file content missing")
	}
	size, err := measure(in.Content)
	if err != nil {
		return nil, reject(ReasonUnreadable, "file could not be read")
	}
	if size == 0 {
		return nil, reject(ReasonEmptyFile, "file is empty")
	}
	if v.policy.MaxFileSize > 0 && size > v.policy.MaxFileSize {
		return nil, reject(ReasonFileTooLarge, fmt.Sprintf("file exceeds %d MB", v.policy.MaxFileSize/(1024*1024)))
	}

	ext := Extension(name)
	if ext == "" {
		return nil, reject(ReasonMissingExtension, "file needs an extension")
	}
	if _, blocked := BlockedExtensions[ext]; blocked {
		return nil, reject(ReasonBlockedType, "executable or script files are not allowed")
	}
	if _, ok := v.policy.Allowed[ext]; !ok {
		return nil, reject(ReasonUnsupportedType, "file type not allowed")
	}

	declared := normalizeMediaType(in.ContentType)
	if declared != "" && !contains(declaredTypes[ext], declared) {
		return nil, reject(ReasonTypeMismatch, "declared type does not match the extension")
	}

	header := make([]byte, SniffLength)
	n, err := in.Content.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return nil, reject(ReasonUnreadable, "file could not be read")
	}
	sniffed := v.sniffer.Sniff(header[:n])
	if sniffed == "" {
		return nil, reject(ReasonUnverifiableType, "file type could not be verified")
	}
	if sniffed != sniffedFamily[ext] {
		return nil, reject(ReasonContentMismatch, fmt.Sprintf("content is not a valid %s file", ext))
	}

	if ext == "zip" {
		if rejection := InspectZip(in.Content, size, v.policy.Archive); rejection != nil {
			return nil, rejection
		}
	}
	if _, office := officeExtensions[ext]; office && v.policy.InspectOffice {
		if rejection := InspectZip(in.Content, size, v.policy.OfficeArchive); rejection != nil {
			return nil, rejection
		}
	}

	return &Accepted{
		Name:        name,
		Extension:   ext,
		Size:        size,
		Declared:    declared,
		Sniffed:     sniffed,
		ContentType: ContentTypeFor(ext),
	}, nil
}

// measure returns the stream length and puts the offset back where it was.
func measure(s io.Seeker) (int64, error) {
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

func normalizeMediaType(raw string) string {
	mediaType, _, _ := strings.Cut(raw, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
