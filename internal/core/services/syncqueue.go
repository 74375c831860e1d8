package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
	"github.com/tably-labs/tably-cli/internal/logger"
)

// Ensure SyncQueue implements the interface.
var _ driving.SyncQueue = (*SyncQueue)(nil)

// SyncQueue holds mutations that could not reach the remote store and
// replays them with priority ordering and a bounded retry budget.
type SyncQueue struct {
	store    driven.QueueStore
	remote   driven.RemoteStore
	notifier driven.Notifier
	limiter  *rate.Limiter
	now      func() time.Time

	maxRetries int
	batchSize  int

	mu          sync.Mutex
	draining    bool
	failedTotal int
	online      func() bool
}

// NewSyncQueue creates a sync queue manager.
func NewSyncQueue(
	cfg domain.EngineConfig,
	store driven.QueueStore,
	remote driven.RemoteStore,
	notifier driven.Notifier,
	now func() time.Time,
) *SyncQueue {
	if now == nil {
		now = time.Now
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	batchSize := cfg.DrainBatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	replayRate := cfg.ReplayRate
	if replayRate <= 0 {
		replayRate = 20
	}
	return &SyncQueue{
		store:      store,
		remote:     remote,
		notifier:   notifier,
		limiter:    rate.NewLimiter(rate.Limit(replayRate), batchSize),
		now:        now,
		maxRetries: maxRetries,
		batchSize:  batchSize,
	}
}

// SetOnlineFunc wires the connectivity check used to decide whether an
// enqueue should trigger an immediate drain. Without it, enqueued work
// waits for the next reconnect or periodic tick.
func (q *SyncQueue) SetOnlineFunc(online func() bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.online = online
}

// Enqueue appends a task, persists the queue and requests a drain.
// Missing identity and ordering fields are filled in here; priority is
// immutable after this point.
func (q *SyncQueue) Enqueue(ctx context.Context, task domain.SyncTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Type == "" {
		task.Type = domain.TaskTypeAPIRequest
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = q.now()
	}
	if task.Priority == 0 {
		task.Priority = domain.PriorityForURL(task.Payload.URL)
	}

	if err := q.store.Append(ctx, task); err != nil {
		return fmt.Errorf("append task: %w", err)
	}

	logger.Debug("queued task %s (%s %s, priority %d)",
		task.ID, task.Payload.Method, task.Payload.URL, task.Priority)
	q.notifier.Notify(domain.Event{
		Type:   domain.EventWriteQueued,
		At:     q.now(),
		TaskID: task.ID,
		Detail: fmt.Sprintf("%s %s", task.Payload.Method, task.Payload.URL),
	})

	q.mu.Lock()
	online := q.online
	q.mu.Unlock()

	if online != nil && online() {
		// Drain opportunistically; an overlapping pass is a no-op.
		go func() {
			if _, err := q.Drain(context.WithoutCancel(ctx)); err != nil {
				logger.Debug("post-enqueue drain skipped: %v", err)
			}
		}()
	}

	return nil
}

// Drain replays queued tasks against the remote store. At most one
// drain runs at a time; overlapping triggers are dropped no-ops, and
// the next periodic tick catches any leftover work.
func (q *SyncQueue) Drain(ctx context.Context) (*domain.DrainResult, error) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return nil, domain.ErrDrainInProgress
	}
	q.draining = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.draining = false
		q.mu.Unlock()
	}()

	tasks, err := q.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return &domain.DrainResult{}, nil
	}

	// Priority descending, then FIFO by creation timestamp.
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	logger.Info("draining %d queued tasks", len(tasks))
	result := &domain.DrainResult{}

	for start := 0; start < len(tasks); start += q.batchSize {
		end := start + q.batchSize
		if end > len(tasks) {
			end = len(tasks)
		}
		for i := start; i < end; i++ {
			select {
			case <-ctx.Done():
				result.Remaining = q.countRemaining(ctx)
				return result, ctx.Err()
			default:
			}
			// One task's failure never blocks the rest of the batch.
			q.replayTask(ctx, tasks[i], result)
		}
	}

	result.Remaining = q.countRemaining(ctx)

	q.notifier.Notify(domain.Event{
		Type:  domain.EventSyncCompleted,
		At:    q.now(),
		Drain: result,
	})
	logger.Info("drain complete: %d replayed, %d dropped, %d remaining",
		result.Successful, result.Failed, result.Remaining)

	return result, nil
}

// replayTask attempts one task against the remote store and reconciles
// the outcome: remove on success, bump the retry count on failure, drop
// with a failure notification once the budget is spent.
func (q *SyncQueue) replayTask(ctx context.Context, task domain.SyncTask, result *domain.DrainResult) {
	if err := q.limiter.Wait(ctx); err != nil {
		return
	}

	resp, err := q.remote.Fetch(ctx, driven.Request{
		Method:  task.Payload.Method,
		URL:     task.Payload.URL,
		Headers: task.Payload.Headers,
		Body:    task.Payload.Body,
	})

	if err == nil && resp.OK() {
		if removeErr := q.store.Remove(ctx, task.ID); removeErr != nil {
			logger.Error("remove replayed task %s: %v", task.ID, removeErr)
			return
		}
		result.Successful++
		logger.Debug("replayed task %s", task.ID)
		return
	}

	if err != nil {
		logger.Debug("replay of task %s failed: %v", task.ID, err)
	} else {
		logger.Debug("replay of task %s rejected with status %d", task.ID, resp.Status)
	}

	task.RetryCount++
	if task.RetryCount >= q.maxRetries {
		// Dropped, never silently: the failure is announced.
		if removeErr := q.store.Remove(ctx, task.ID); removeErr != nil {
			logger.Error("remove exhausted task %s: %v", task.ID, removeErr)
			return
		}
		result.Failed++
		q.mu.Lock()
		q.failedTotal++
		q.mu.Unlock()
		q.notifier.Notify(domain.Event{
			Type:   domain.EventSyncFailed,
			At:     q.now(),
			TaskID: task.ID,
			Detail: fmt.Sprintf("%s %s: %s", task.Payload.Method, task.Payload.URL, domain.ErrRetryExhausted),
		})
		return
	}

	if updateErr := q.store.Update(ctx, task); updateErr != nil {
		logger.Error("update task %s retry count: %v", task.ID, updateErr)
	}
}

// Status returns a snapshot of the queue.
func (q *SyncQueue) Status(ctx context.Context) (domain.QueueStatus, error) {
	count, err := q.store.Count(ctx)
	if err != nil {
		return domain.QueueStatus{}, fmt.Errorf("count tasks: %w", err)
	}

	q.mu.Lock()
	failed := q.failedTotal
	q.mu.Unlock()

	return domain.QueueStatus{
		Count:   count,
		Pending: count,
		Failed:  failed,
	}, nil
}

// Clear empties the queue.
func (q *SyncQueue) Clear(ctx context.Context) error {
	if err := q.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// countRemaining is a best-effort queue count for drain summaries.
func (q *SyncQueue) countRemaining(ctx context.Context) int {
	count, err := q.store.Count(ctx)
	if err != nil {
		logger.Debug("count remaining tasks: %v", err)
		return 0
	}
	return count
}
