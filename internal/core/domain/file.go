package domain

import "strings"

const (
	maxFileNameLength = 255
	MaxFileSizeBytes  = 50 << 20
)

// FileMetadata describes the uploaded source file. Value type, never
// mutated after construction.
type FileMetadata struct {
	FileName    string `json:"file_name"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	Checksum    string `json:"checksum,omitempty"`
}

func NewFileMetadata(fileName string, sizeBytes int64, contentType, checksum string) (FileMetadata, error) {
	const op = "create file metadata"

	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return FileMetadata{}, validationErr(op, "file name is blank")
	}
	if len(fileName) > maxFileNameLength {
		return FileMetadata{}, validationErr(op, "file name exceeds %d characters", maxFileNameLength)
	}
	if sizeBytes < 1 || sizeBytes > MaxFileSizeBytes {
		return FileMetadata{}, validationErr(op, "file size %d outside [1, %d]", sizeBytes, int64(MaxFileSizeBytes))
	}
	if strings.TrimSpace(contentType) == "" {
		return FileMetadata{}, validationErr(op, "content type is blank")
	}

	return FileMetadata{
		FileName:    fileName,
		SizeBytes:   sizeBytes,
		ContentType: strings.TrimSpace(contentType),
		Checksum:    strings.TrimSpace(checksum),
	}, nil
}

type DocumentType string

const (
	DocumentTypePDF         DocumentType = "pdf"
	DocumentTypeText        DocumentType = "text"
	DocumentTypeMarkdown    DocumentType = "markdown"
	DocumentTypeHTML        DocumentType = "html"
	DocumentTypeSpreadsheet DocumentType = "spreadsheet"
)

// ParseDocumentType is the only way to obtain a DocumentType; unknown
// values are rejected.
func ParseDocumentType(raw string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(raw))) {
	case DocumentTypePDF:
		return DocumentTypePDF, nil
	case DocumentTypeText:
		return DocumentTypeText, nil
	case DocumentTypeMarkdown:
		return DocumentTypeMarkdown, nil
	case DocumentTypeHTML:
		return DocumentTypeHTML, nil
	case DocumentTypeSpreadsheet:
		return DocumentTypeSpreadsheet, nil
	default:
		return "", validationErr("parse document type", "unknown document type %q", raw)
	}
}

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusCancelled  ProcessingStatus = "cancelled"
)

func ParseProcessingStatus(raw string) (ProcessingStatus, error) {
	switch ProcessingStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusProcessing:
		return StatusProcessing, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusFailed:
		return StatusFailed, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", validationErr("parse processing status", "unknown processing status %q", raw)
	}
}
