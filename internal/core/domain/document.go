package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// DocType categorizes a source document for retrieval and drafting.
type DocType string

const (
	DocTypeResume      DocType = "resume"
	DocTypeCoverLetter DocType = "cover_letter"
	DocTypeNotes       DocType = "notes"
	DocTypeOther       DocType = "other"
)

func NormalizeDocType(raw string) DocType {
	switch DocType(raw) {
	case DocTypeResume, DocTypeCoverLetter, DocTypeNotes:
		return DocType(raw)
	default:
		return DocTypeOther
	}
}

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	DocType     DocType        `json:"doc_type,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Confidence  float64        `json:"confidence,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Classification struct {
	DocType    DocType  `json:"doc_type"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`
}
