package models

// BackupMetadata is written as _metadata.json next to the collection dumps.
type BackupMetadata struct {
	RunID          string           `json:"runId"`
	Database       string           `json:"database"`
	Timestamp      string           `json:"timestamp"`
	TotalDocuments int64            `json:"totalDocuments"`
	Collections    []string         `json:"collections"`
	Counts         map[string]int64 `json:"counts"`
}
