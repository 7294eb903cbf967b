package index

import "github.com/starford/taskcollector/internal/models"

// TaskIndex is the index surface used by the service layer.
type TaskIndex interface {
	UpsertDocument(d DocumentRow, tasks []models.Task) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	ListDocuments() ([]DocumentRow, error)
	ListTasks(q TaskQuery) ([]models.Task, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ TaskIndex = (*DB)(nil)
