package conversation

import (
	"encoding/json"
	"time"
)

// ExportMetadata describes the exporting application.
type ExportMetadata struct {
	Application string    `json:"application"`
	Version     string    `json:"version"`
	ExportTime  time.Time `json:"exportTime"`
}

// ExportDocument is the user-facing download format.
type ExportDocument struct {
	Metadata      ExportMetadata `json:"metadata"`
	Conversations []Turn         `json:"conversations"`
	Analytics     Analytics      `json:"analytics"`
}

const (
	exportApplication = "VoxChat Platform"
	exportVersion     = "1.0.0"
)

// Export captures the current turn history and analytics as a document
// suitable for download.
func (s *Session) Export() ExportDocument {
	s.mu.Lock()
	turns := make([]Turn, len(s.turns))
	copy(turns, s.turns)
	analytics := s.analytics.Clone()
	s.mu.Unlock()

	return ExportDocument{
		Metadata: ExportMetadata{
			Application: exportApplication,
			Version:     exportVersion,
			ExportTime:  time.Now(),
		},
		Conversations: turns,
		Analytics:     analytics,
	}
}

// MarshalIndent renders the document as pretty-printed JSON.
func (d ExportDocument) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// ArchiveDocument is the download format for the whole transcript store.
type ArchiveDocument struct {
	Metadata      ExportMetadata `json:"metadata"`
	Conversations []*Record      `json:"conversations"`
}

// NewArchive wraps stored records in the export envelope.
func NewArchive(records []*Record) ArchiveDocument {
	return ArchiveDocument{
		Metadata: ExportMetadata{
			Application: exportApplication,
			Version:     exportVersion,
			ExportTime:  time.Now(),
		},
		Conversations: records,
	}
}
