package model

import "time"

type ArchiveStatus string

const (
	ArchiveStatusPending   ArchiveStatus = "pending"
	ArchiveStatusUploading ArchiveStatus = "uploading"
	ArchiveStatusCompleted ArchiveStatus = "completed"
	ArchiveStatusFailed    ArchiveStatus = "failed"
)

// Archive is one encrypted database snapshot uploaded to object storage.
type Archive struct {
	ID           int64         `json:"id"`
	Filename     string        `json:"filename"`
	S3Key        string        `json:"s3_key"`
	SizeBytes    int64         `json:"size_bytes"`
	Status       ArchiveStatus `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}
