package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
)

const (
	defaultBatchSize   = 100
	defaultMaxAttempts = 5
)

type Queue interface {
	ListDeletions(ctx context.Context, limit, maxAttempts int) ([]mediasvc.Deletion, error)
	CompleteDeletion(ctx context.Context, id int64) error
	FailDeletion(ctx context.Context, id int64) error
}

type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

type Observer interface {
	ObserveCleanup(deleted, failed int)
}

// Job drains the media deletion queue. Objects that fail to delete stay
// queued until they exceed the attempt limit.
type Job struct {
	queue       Queue
	storage     ObjectDeleter
	observer    Observer
	batchSize   int
	maxAttempts int
	logger      *zap.Logger
}

func New(queue Queue, storage ObjectDeleter, batchSize int, logger *zap.Logger) *Job {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		queue:       queue,
		storage:     storage,
		batchSize:   batchSize,
		maxAttempts: defaultMaxAttempts,
		logger:      logger,
	}
}

func (j *Job) AttachObserver(observer Observer) {
	j.observer = observer
}

func (j *Job) Run(ctx context.Context) error {
	if j.queue == nil || j.storage == nil {
		return nil
	}

	items, err := j.queue.ListDeletions(ctx, j.batchSize, j.maxAttempts)
	if err != nil {
		return fmt.Errorf("list media deletions: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	deleted, failed := 0, 0
	for _, item := range items {
		if err := j.storage.Delete(ctx, item.ObjectKey); err != nil {
			failed++
			j.logger.Warn("failed to delete object from storage",
				zap.Error(err),
				zap.String("object_key", item.ObjectKey),
				zap.Int("attempts", item.Attempts+1),
			)
			if err := j.queue.FailDeletion(ctx, item.ID); err != nil {
				return fmt.Errorf("mark media deletion failed: %w", err)
			}
			continue
		}
		if err := j.queue.CompleteDeletion(ctx, item.ID); err != nil {
			return fmt.Errorf("complete media deletion: %w", err)
		}
		deleted++
	}

	if j.observer != nil {
		j.observer.ObserveCleanup(deleted, failed)
	}
	j.logger.Info("media cleanup completed", zap.Int("deleted", deleted), zap.Int("failed", failed))
	return nil
}

// Loop runs the job every interval until ctx is cancelled.
func (j *Job) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx); err != nil {
			j.logger.Error("media cleanup failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
