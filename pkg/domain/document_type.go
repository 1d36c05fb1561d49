package domain

import dErrors "hirelane/pkg/domain-errors"

// DocumentType identifies which of an application's document slots a request
// refers to.
// Invariant: the value must be one of the supported document types.
//
// Usage: construct via ParseDocumentType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type DocumentType string

// Supported document types.
const (
	DocumentCoverLetter DocumentType = "cover_letter"
	DocumentResume      DocumentType = "resume"
	DocumentPortfolio   DocumentType = "portfolio"
)

// validDocumentTypes is the single source of truth for valid document types.
var validDocumentTypes = map[DocumentType]bool{
	DocumentCoverLetter: true,
	DocumentResume:      true,
	DocumentPortfolio:   true,
}

// ParseDocumentType constructs a DocumentType from external input.
// Any value outside the allowlist fails with CodeInvalidDocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	dt := DocumentType(s)
	if !validDocumentTypes[dt] {
		return "", dErrors.Newf(dErrors.CodeInvalidDocumentType, "unsupported document type %q", s)
	}
	return dt, nil
}

// String returns the wire representation.
func (d DocumentType) String() string { return string(d) }
