// Package pipeline drives a task from creation to its terminal state
// through the remote describe and generate capabilities, broadcasting
// progress along the way.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tikserziku/welcome-to-visaginas/internal/ai"
	"github.com/tikserziku/welcome-to-visaginas/internal/artifact"
	"github.com/tikserziku/welcome-to-visaginas/internal/metrics"
	"github.com/tikserziku/welcome-to-visaginas/internal/models"
	"github.com/tikserziku/welcome-to-visaginas/internal/notify"
	"github.com/tikserziku/welcome-to-visaginas/internal/store"
)

type Describer interface {
	DescribeImage(ctx context.Context, image []byte, prompt string) (string, error)
}

type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (ai.GeneratedImage, error)
}

type Fetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

// Processor owns the per-task state machine and the global generated
// image counter. It is the sole writer of task records.
type Processor struct {
	store     *store.TaskStore
	hub       *notify.Hub
	describer Describer
	generator Generator
	fetcher   Fetcher
	artifacts *artifact.Store
	styles    map[string]Style
	logger    *zap.Logger
	generated atomic.Int64
}

func New(
	taskStore *store.TaskStore,
	hub *notify.Hub,
	describer Describer,
	generator Generator,
	fetcher Fetcher,
	artifacts *artifact.Store,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		store:     taskStore,
		hub:       hub,
		describer: describer,
		generator: generator,
		fetcher:   fetcher,
		artifacts: artifacts,
		styles:    DefaultStyles(),
		logger:    logger,
	}
}

// RegisterStyle adds or replaces a transformation. Call before serving
// traffic; the style map is not guarded for concurrent mutation.
func (p *Processor) RegisterStyle(s Style) {
	p.styles[s.Name] = s
}

// GeneratedCount returns the number of images generated since startup.
func (p *Processor) GeneratedCount() int64 {
	return p.generated.Load()
}

// Process runs the task to a terminal state. It is fire-and-forget:
// results are observable only through the store and the broadcast hub.
// The task record must already exist with status "processing".
func (p *Processor) Process(ctx context.Context, taskID, imagePath, styleName string) {
	started := time.Now()
	metrics.TasksActive.Inc()
	defer func() {
		metrics.TasksActive.Dec()
		metrics.ProcessingDuration.Observe(time.Since(started).Seconds())
		p.removeUpload(taskID, imagePath)
	}()

	p.hub.StatusLog(taskID, fmt.Sprintf("Starting image processing, style: %s", styleName))

	p.setState(taskID, models.StatusAnalyzing, 25)

	style, ok := p.styles[styleName]
	if !ok {
		// The caller already holds the task id and is waiting for a
		// terminal state, so an unknown style completes with an empty
		// result instead of hanging or erroring.
		p.hub.StatusLog(taskID, fmt.Sprintf("No transformation registered for style %q", styleName))
		p.complete(taskID, "")
		return
	}

	resultURL, err := p.applyStyle(ctx, taskID, imagePath, style)
	if err != nil {
		p.fail(taskID, err)
		return
	}

	p.setState(taskID, models.StatusApplyingStyle, 75)

	p.hub.StatusLog(taskID, "Processing completed")
	p.complete(taskID, resultURL)

	count := p.generated.Add(1)
	metrics.CardsGenerated.Inc()
	p.hub.ImageCount(count)
}

func (p *Processor) applyStyle(ctx context.Context, taskID, imagePath string, style Style) (string, error) {
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read uploaded image: %w", err)
	}

	p.hub.StatusLog(taskID, fmt.Sprintf("Applying %s style...", style.Name))

	description, err := p.describer.DescribeImage(ctx, image, style.DescribePrompt)
	if err != nil {
		return "", err
	}
	p.hub.StatusLog(taskID, "Image analyzed, generating stylized version")

	generated, err := p.generator.GenerateImage(ctx, style.GenerationPrompt(description))
	if err != nil {
		return "", err
	}

	payload := generated.Data
	if len(payload) == 0 {
		payload, err = p.fetcher.FetchImage(ctx, generated.URL)
		if err != nil {
			return "", err
		}
	}

	return p.artifacts.Save(taskID, style.Name, payload)
}

func (p *Processor) setState(taskID string, status models.TaskStatus, progress int) {
	err := p.store.Update(taskID, func(t *models.Task) {
		t.Status = status
		t.Progress = progress
	})
	if err != nil {
		p.logger.Warn("state update skipped", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	p.hub.TaskUpdate(notify.TaskUpdate{
		TaskID:   taskID,
		Status:   string(status),
		Progress: progress,
	})
}

// complete sets the terminal completed state. The cardGenerated event
// follows the final taskUpdate, carrying the (possibly empty) result URL.
func (p *Processor) complete(taskID, resultURL string) {
	err := p.store.Update(taskID, func(t *models.Task) {
		t.Status = models.StatusCompleted
		t.Progress = 100
		t.ResultURL = resultURL
	})
	if err != nil {
		p.logger.Warn("completion update skipped", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	p.hub.TaskUpdate(notify.TaskUpdate{
		TaskID:   taskID,
		Status:   string(models.StatusCompleted),
		Progress: 100,
	})
	p.hub.CardGenerated(taskID, resultURL)
}

// fail records the terminal error state with the cause verbatim. The
// global counter is untouched and no further events follow for the task.
func (p *Processor) fail(taskID string, cause error) {
	p.logger.Error("Image processing failed",
		zap.String("task_id", taskID),
		zap.Error(cause),
	)
	metrics.TasksFailed.Inc()

	err := p.store.Update(taskID, func(t *models.Task) {
		t.Status = models.StatusError
		t.ErrorMessage = cause.Error()
	})
	if err != nil {
		p.logger.Warn("error update skipped", zap.String("task_id", taskID), zap.Error(err))
		return
	}
	p.hub.TaskUpdate(notify.TaskUpdate{
		TaskID: taskID,
		Status: string(models.StatusError),
		Error:  cause.Error(),
	})
}

// removeUpload deletes the temporary upload after any terminal outcome.
// A failed delete is logged but never overrides the task's final state.
func (p *Processor) removeUpload(taskID, imagePath string) {
	if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("failed to remove uploaded file",
			zap.String("task_id", taskID),
			zap.String("path", imagePath),
			zap.Error(err),
		)
	}
}
