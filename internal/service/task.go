// Package service mints tasks and hands them to the pipeline. The task
// record is committed to the store before the background goroutine is
// spawned, so a client can never see a task id that the store does not
// know yet.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tikserziku/welcome-to-visaginas/internal/models"
	"github.com/tikserziku/welcome-to-visaginas/internal/notify"
	"github.com/tikserziku/welcome-to-visaginas/internal/store"
)

// ImageProcessor runs a task to a terminal state in the background.
type ImageProcessor interface {
	Process(ctx context.Context, taskID, imagePath, style string)
}

type TaskService struct {
	store     *store.TaskStore
	hub       *notify.Hub
	processor ImageProcessor
	logger    *zap.Logger
}

func NewTaskService(taskStore *store.TaskStore, hub *notify.Hub, processor ImageProcessor, logger *zap.Logger) *TaskService {
	return &TaskService{
		store:     taskStore,
		hub:       hub,
		processor: processor,
		logger:    logger,
	}
}

// Submit creates the task record and spawns processing. It returns as
// soon as the record exists; the caller responds to the client without
// waiting for any remote call.
func (s *TaskService) Submit(ctx context.Context, uploadPath, style string) (models.Task, error) {
	now := time.Now()
	task := models.Task{
		ID:         uuid.New().String(),
		Style:      style,
		Status:     models.StatusProcessing,
		UploadPath: uploadPath,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.Create(&task); err != nil {
		return models.Task{}, err
	}

	s.hub.StatusLog(task.ID, "Task created, starting processing")

	// Processing outlives the HTTP request, so it must not inherit the
	// request's cancellation.
	go s.processor.Process(context.WithoutCancel(ctx), task.ID, uploadPath, style)

	return task, nil
}

// GetTask returns a snapshot of the task for the status endpoint.
func (s *TaskService) GetTask(id string) (models.Task, error) {
	return s.store.Get(id)
}
