package models

import "time"

type TaskStatus string

const (
	StatusProcessing    TaskStatus = "processing"
	StatusAnalyzing     TaskStatus = "analyzing"
	StatusApplyingStyle TaskStatus = "applying_style"
	StatusCompleted     TaskStatus = "completed"
	StatusError         TaskStatus = "error"
)

// Terminal reports whether no further status transitions are possible.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Task is one request to stylize one uploaded photo. The id is the
// correlation key between the upload response, the store and every
// broadcast event.
type Task struct {
	ID           string
	Style        string
	Status       TaskStatus
	Progress     int
	ResultURL    string
	ErrorMessage string
	UploadPath   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
