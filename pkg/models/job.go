package models

import (
	"time"

	"github.com/google/uuid"
)

// DownloadJob is one unit of work submitted to the orchestrator. The
// orchestrator owns it exclusively for its lifetime and produces exactly
// one JobOutcome for it.
type DownloadJob struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	SourceURL string    `json:"source_url"`
	FormatID  string    `json:"format_id"`
	Kind      MediaKind `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDownloadJob creates a job for the given selection.
func NewDownloadJob(userID int64, sourceURL, formatID string, kind MediaKind) DownloadJob {
	return DownloadJob{
		ID:        uuid.New().String(),
		UserID:    userID,
		SourceURL: sourceURL,
		FormatID:  formatID,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}
