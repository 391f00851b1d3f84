package cleanup

import (
	"context"
	"errors"
	"testing"

	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
)

type fakeQueue struct {
	items     []mediasvc.Deletion
	completed []int64
	failed    []int64
	limit     int
}

func (q *fakeQueue) ListDeletions(_ context.Context, limit, maxAttempts int) ([]mediasvc.Deletion, error) {
	q.limit = limit
	out := []mediasvc.Deletion{}
	for _, item := range q.items {
		if item.Attempts < maxAttempts {
			out = append(out, item)
		}
	}
	return out, nil
}

func (q *fakeQueue) CompleteDeletion(_ context.Context, id int64) error {
	q.completed = append(q.completed, id)
	return nil
}

func (q *fakeQueue) FailDeletion(_ context.Context, id int64) error {
	q.failed = append(q.failed, id)
	return nil
}

type fakeStorage struct {
	broken map[string]bool
	keys   []string
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	s.keys = append(s.keys, key)
	if s.broken[key] {
		return errors.New("s3 unavailable")
	}
	return nil
}

type fakeObserver struct {
	deleted, failed int
}

func (o *fakeObserver) ObserveCleanup(deleted, failed int) {
	o.deleted += deleted
	o.failed += failed
}

func TestRunDrainsQueue(t *testing.T) {
	queue := &fakeQueue{items: []mediasvc.Deletion{
		{ID: 1, ObjectKey: "users/a/day_image/1.png"},
		{ID: 2, ObjectKey: "users/a/day_image/2.png"},
		{ID: 3, ObjectKey: "users/a/background/3.png", Attempts: defaultMaxAttempts},
	}}
	storage := &fakeStorage{broken: map[string]bool{"users/a/day_image/2.png": true}}
	observer := &fakeObserver{}

	job := New(queue, storage, 0, nil)
	job.AttachObserver(observer)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if queue.limit != defaultBatchSize {
		t.Fatalf("expected default batch size, got %d", queue.limit)
	}
	if len(storage.keys) != 2 {
		t.Fatalf("exhausted items must be skipped, deleted %v", storage.keys)
	}
	if len(queue.completed) != 1 || queue.completed[0] != 1 {
		t.Fatalf("unexpected completed ids: %v", queue.completed)
	}
	if len(queue.failed) != 1 || queue.failed[0] != 2 {
		t.Fatalf("unexpected failed ids: %v", queue.failed)
	}
	if observer.deleted != 1 || observer.failed != 1 {
		t.Fatalf("unexpected observation: %+v", observer)
	}
}

func TestRunWithoutDependenciesIsNoop(t *testing.T) {
	if err := New(nil, nil, 10, nil).Run(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	queue := &fakeQueue{}
	job := New(queue, &fakeStorage{}, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		job.Loop(ctx, 1)
		close(done)
	}()
	<-done

	if queue.limit != 10 {
		t.Fatalf("expected one run before stopping, got limit %d", queue.limit)
	}
}
