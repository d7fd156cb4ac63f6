// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentProcessingTask represents the data structure for a document processing job.
type DocumentProcessingTask struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	ObjectName string `json:"object_name"`
	OrgID      string `json:"org_id"`
	UserID     uint   `json:"user_id"`
	// Reprocess marks an operator-triggered rerun of an already processed document.
	Reprocess bool `json:"reprocess"`
}
