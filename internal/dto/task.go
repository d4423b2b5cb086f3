package dto

import "errors"

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskExists   = errors.New("task already exists")
)

type UploadResponse struct {
	TaskID string `json:"taskId"`
}

type TaskResponse struct {
	ID           string `json:"id"`
	Style        string `json:"style"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	ResultURL    string `json:"resultUrl,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ImageCountResponse struct {
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
