package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tikserziku/welcome-to-visaginas/internal/dto"
	"github.com/tikserziku/welcome-to-visaginas/internal/middleware"
	"github.com/tikserziku/welcome-to-visaginas/internal/models"
	"github.com/tikserziku/welcome-to-visaginas/internal/notify"
	"github.com/tikserziku/welcome-to-visaginas/internal/validation"
)

// TaskSubmitter is the slice of the task service the handlers need.
type TaskSubmitter interface {
	Submit(ctx context.Context, uploadPath, style string) (models.Task, error)
	GetTask(id string) (models.Task, error)
}

// ImageCounter exposes the global generated-image counter.
type ImageCounter interface {
	GeneratedCount() int64
}

type TaskHandler struct {
	service      TaskSubmitter
	counter      ImageCounter
	hub          *notify.Hub
	uploadDir    string
	defaultStyle string
	logger       *zap.Logger
}

func NewTaskHandler(service TaskSubmitter, counter ImageCounter, hub *notify.Hub, uploadDir, defaultStyle string, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service:      service,
		counter:      counter,
		hub:          hub,
		uploadDir:    uploadDir,
		defaultStyle: defaultStyle,
		logger:       logger,
	}
}

// Upload accepts the photo, stores it in the scratch directory, creates
// the task and responds with the task id before processing completes.
func (h *TaskHandler) Upload(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	h.hub.StatusLog("", "Starting upload processing")

	if err := r.ParseMultipartForm(validation.MaxUploadSize); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.handleError(w, "File was not uploaded", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := validation.ValidatePhoto(header, file); err != nil {
		h.handleError(w, err.Error(), err, traceID, http.StatusBadRequest)
		return
	}

	style := strings.TrimSpace(r.FormValue("style"))
	if style == "" {
		style = h.defaultStyle
	}

	uploadPath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
		return
	}

	task, err := h.service.Submit(r.Context(), uploadPath, style)
	if err != nil {
		h.handleError(w, "Failed to create task", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Photo uploaded",
		zap.String("trace_id", traceID),
		zap.String("task_id", task.ID),
		zap.String("style", style),
		zap.String("filename", header.Filename),
	)

	h.respondJSON(w, http.StatusOK, dto.UploadResponse{TaskID: task.ID})
}

// Status returns the current task snapshot. The broadcast stream is the
// primary progress channel; this endpoint exists for polling clients.
func (h *TaskHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.handleError(w, "Task ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	task, err := h.service.GetTask(taskID)
	if err != nil {
		if errors.Is(err, dto.ErrTaskNotFound) {
			h.handleError(w, "Task not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get task status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.TaskResponse{
		ID:           task.ID,
		Style:        task.Style,
		Status:       string(task.Status),
		Progress:     task.Progress,
		ResultURL:    task.ResultURL,
		ErrorMessage: task.ErrorMessage,
		CreatedAt:    task.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// ImageCount returns the global generated-image counter.
func (h *TaskHandler) ImageCount(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, dto.ImageCountResponse{Count: h.counter.GeneratedCount()})
}

func (h *TaskHandler) saveUpload(file io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	path := filepath.Join(h.uploadDir, uuid.New().String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

func (h *TaskHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
