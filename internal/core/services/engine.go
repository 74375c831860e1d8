package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
	"github.com/tably-labs/tably-cli/internal/core/ports/driving"
	"github.com/tably-labs/tably-cli/internal/logger"
)

// Ensure Engine implements the interface.
var _ driving.Engine = (*Engine)(nil)

// Engine is the offline engine facade. One instance per process owns
// the store, the router, the queue and the connectivity controller,
// with explicit construction and teardown instead of module globals.
type Engine struct {
	records      driven.RecordStore
	remote       driven.RemoteStore
	router       driving.CacheRouter
	queue        driving.SyncQueue
	connectivity driving.Connectivity

	mu     sync.Mutex
	closed bool
}

// NewEngine assembles the engine from its owned components and binds
// the queue's immediate-drain decision to the connectivity state.
func NewEngine(
	records driven.RecordStore,
	remote driven.RemoteStore,
	router driving.CacheRouter,
	queue driving.SyncQueue,
	connectivity driving.Connectivity,
) *Engine {
	if sq, ok := queue.(*SyncQueue); ok && connectivity != nil {
		sq.SetOnlineFunc(func() bool {
			return connectivity.State().Online
		})
	}
	return &Engine{
		records:      records,
		remote:       remote,
		router:       router,
		queue:        queue,
		connectivity: connectivity,
	}
}

// Execute dispatches a command from the closed command set. Unknown
// variants cannot be constructed outside the driving package, so the
// type switch is exhaustive.
func (e *Engine) Execute(ctx context.Context, cmd driving.Command) (*driving.Reply, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	switch c := cmd.(type) {
	case driving.StoreDataCommand:
		return e.storeData(ctx, c)
	case driving.GetDataCommand:
		return e.getData(ctx, c)
	case driving.ForceSyncCommand:
		result, err := e.queue.Drain(ctx)
		if err != nil {
			return nil, err
		}
		return &driving.Reply{Drain: result}, nil
	case driving.ClearCacheCommand:
		if err := e.router.Purge(ctx); err != nil {
			return nil, err
		}
		return &driving.Reply{}, nil
	case driving.CacheStatusCommand:
		return e.status(ctx)
	default:
		return nil, fmt.Errorf("%w: unhandled command %T", domain.ErrInvalidInput, cmd)
	}
}

// Request serves an application resource request. Reads go through the
// cache strategy router; writes that cannot reach the remote store are
// redirected into the sync queue, and the caller is told "offline, will
// sync later" instead of being shown a failure.
func (e *Engine) Request(
	ctx context.Context,
	method, url string,
	headers map[string]string,
	body []byte,
) (*driving.EngineResponse, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	req := driven.Request{Method: method, URL: url, Headers: headers, Body: body}

	if isReadMethod(method) {
		resp, err := e.router.Handle(ctx, req)
		if err != nil {
			return nil, err
		}
		return &driving.EngineResponse{
			Status:      resp.Status,
			ContentType: resp.ContentType,
			Body:        resp.Body,
		}, nil
	}

	// Mutations bypass the cache. A transport failure defers the write;
	// a remote rejection is a real answer and is returned as-is.
	resp, err := e.remote.Fetch(ctx, req)
	if err == nil {
		return &driving.EngineResponse{
			Status:      resp.Status,
			ContentType: resp.ContentType,
			Body:        resp.Body,
		}, nil
	}

	task := domain.SyncTask{
		ID:   uuid.NewString(),
		Type: domain.TaskTypeAPIRequest,
		Payload: domain.TaskPayload{
			Method:  method,
			URL:     url,
			Headers: headers,
			Body:    body,
		},
	}
	if enqueueErr := e.queue.Enqueue(ctx, task); enqueueErr != nil {
		// Queueing failed too; now the caller does see the failure.
		return nil, fmt.Errorf("enqueue deferred write: %w", enqueueErr)
	}

	logger.Info("deferred %s %s for replay", method, url)
	return &driving.EngineResponse{
		Status:      202,
		ContentType: "application/json",
		Body:        []byte(`{"queued":true,"message":"offline, will sync when connection is restored"}`),
		Queued:      true,
		TaskID:      task.ID,
	}, nil
}

// Close tears the engine down. Safe to call twice.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	if e.connectivity != nil {
		return e.connectivity.Stop()
	}
	return nil
}

// storeData bulk-replaces a record partition: clear, then write.
func (e *Engine) storeData(ctx context.Context, cmd driving.StoreDataCommand) (*driving.Reply, error) {
	if !domain.KnownPartition(cmd.Partition) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPartition, cmd.Partition)
	}

	if err := e.records.Clear(ctx, cmd.Partition); err != nil {
		return nil, fmt.Errorf("clear partition %s: %w", cmd.Partition, err)
	}
	for _, record := range cmd.Records {
		if record.ID == "" {
			return nil, fmt.Errorf("%w: record without id", domain.ErrInvalidInput)
		}
		if err := e.records.Put(ctx, cmd.Partition, record); err != nil {
			return nil, fmt.Errorf("store record %s: %w", record.ID, err)
		}
	}

	logger.Debug("stored %d records in %s", len(cmd.Records), cmd.Partition)
	return &driving.Reply{}, nil
}

// getData reads back all records of a partition.
func (e *Engine) getData(ctx context.Context, cmd driving.GetDataCommand) (*driving.Reply, error) {
	if !domain.KnownPartition(cmd.Partition) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPartition, cmd.Partition)
	}

	records, err := e.records.GetAll(ctx, cmd.Partition)
	if err != nil {
		return nil, fmt.Errorf("read partition %s: %w", cmd.Partition, err)
	}
	return &driving.Reply{Records: records}, nil
}

// status reports cache and queue occupancy in one reply.
func (e *Engine) status(ctx context.Context) (*driving.Reply, error) {
	cache, err := e.router.Status(ctx)
	if err != nil {
		return nil, err
	}
	queue, err := e.queue.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &driving.Reply{Cache: &cache, Queue: &queue}, nil
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return domain.ErrEngineClosed
	}
	return nil
}

func isReadMethod(method string) bool {
	switch method {
	case "GET", "HEAD", "OPTIONS", "":
		return true
	default:
		return false
	}
}
