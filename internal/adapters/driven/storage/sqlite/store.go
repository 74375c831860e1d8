package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tably-labs/tably-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-backed storage that provides the record,
// cache and queue store interfaces through wrapper types. Several
// engine instances may share one database file; WAL mode and record
// level last-write-wins make that safe.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.tably/data/offline.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tably", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "offline.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// CacheStore returns a CacheStore interface backed by this store.
func (s *Store) CacheStore() driven.CacheStore {
	return &cacheStore{store: s}
}

// QueueStore returns a QueueStore interface backed by this store.
func (s *Store) QueueStore() driven.QueueStore {
	return &queueStore{store: s}
}

// migrate runs all pending migrations. The schema is versioned so
// adding a partition or table never invalidates existing data.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// storageErr wraps a database failure so callers can match it against
// domain.ErrStorage while keeping the underlying cause in the chain.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(domain.ErrStorage, err))
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// Get retrieves a record by ID.
func (s *recordStore) Get(ctx context.Context, partition domain.Partition, id string) (*domain.Record, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, updated_at, data
		FROM records WHERE partition = ? AND id = ?
	`, string(partition), id)

	return scanRecord(row)
}

// GetAll returns every record in a partition. An uninitialised
// partition yields an empty slice.
func (s *recordStore) GetAll(ctx context.Context, partition domain.Partition) ([]domain.Record, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, updated_at, data
		FROM records WHERE partition = ?
	`, string(partition))
	if err != nil {
		return nil, storageErr("querying records", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		record, err := scanRecordRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating records", err)
	}

	return records, nil
}

// Put upserts a record. Conflicting writes resolve last-write-wins by
// the remote server timestamp: an older record never clobbers a newer
// one already stored by another instance.
func (s *recordStore) Put(ctx context.Context, partition domain.Partition, record domain.Record) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}

	dataJSON, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("marshalling record data: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO records (partition, id, updated_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(partition, id) DO UPDATE SET
			updated_at = excluded.updated_at,
			data = excluded.data
		WHERE excluded.updated_at >= records.updated_at
	`, string(partition), record.ID, record.UpdatedAt.UTC(), string(dataJSON))

	if err != nil {
		return storageErr("saving record", err)
	}
	return nil
}

// Delete removes a record by ID. Missing records are not an error.
func (s *recordStore) Delete(ctx context.Context, partition domain.Partition, id string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM records WHERE partition = ? AND id = ?", string(partition), id)
	if err != nil {
		return storageErr("deleting record", err)
	}
	return nil
}

// Clear wipes all records in a partition.
func (s *recordStore) Clear(ctx context.Context, partition domain.Partition) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM records WHERE partition = ?", string(partition))
	if err != nil {
		return storageErr("clearing partition", err)
	}
	return nil
}

// ==================== Cache Store ====================

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

// GetEntry retrieves a cache entry by key.
func (s *cacheStore) GetEntry(ctx context.Context, key string) (*domain.CacheEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT key, payload, content_type, status, stored_at, ttl_ms, strategy
		FROM cache_entries WHERE key = ?
	`, key)

	var entry domain.CacheEntry
	var ttlMs int64
	var strategy string
	if err := row.Scan(&entry.Key, &entry.Payload, &entry.ContentType,
		&entry.Status, &entry.StoredAt, &ttlMs, &strategy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning cache entry", err)
	}

	entry.TTL = time.Duration(ttlMs) * time.Millisecond
	entry.Strategy = domain.Strategy(strategy)
	return &entry, nil
}

// PutEntry upserts an entry by key.
func (s *cacheStore) PutEntry(ctx context.Context, entry domain.CacheEntry) error {
	if entry.Key == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, content_type, status, stored_at, ttl_ms, strategy, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			content_type = excluded.content_type,
			status = excluded.status,
			stored_at = excluded.stored_at,
			ttl_ms = excluded.ttl_ms,
			strategy = excluded.strategy,
			size = excluded.size
	`, entry.Key, entry.Payload, entry.ContentType, entry.Status,
		entry.StoredAt.UTC(), entry.TTL.Milliseconds(), string(entry.Strategy), entry.Size())

	if err != nil {
		return storageErr("saving cache entry", err)
	}
	return nil
}

// DeleteEntry removes an entry by key.
func (s *cacheStore) DeleteEntry(ctx context.Context, key string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key)
	if err != nil {
		return storageErr("deleting cache entry", err)
	}
	return nil
}

// TotalSize returns the cumulative entry size and count. Approximate
// under concurrent writers.
func (s *cacheStore) TotalSize(ctx context.Context) (int64, int, error) {
	var size sql.NullInt64
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(size), 0), COUNT(*) FROM cache_entries").Scan(&size, &count)
	if err != nil {
		return 0, 0, storageErr("summing cache size", err)
	}
	return size.Int64, count, nil
}

// EvictOldest removes up to n entries, oldest stored_at first.
func (s *cacheStore) EvictOldest(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	result, err := s.store.db.ExecContext(ctx, `
		DELETE FROM cache_entries WHERE key IN (
			SELECT key FROM cache_entries ORDER BY stored_at ASC LIMIT ?
		)
	`, n)
	if err != nil {
		return 0, storageErr("evicting cache entries", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("counting evicted entries", err)
	}
	return int(removed), nil
}

// PurgeAll wipes the cache.
func (s *cacheStore) PurgeAll(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM cache_entries")
	if err != nil {
		return storageErr("purging cache", err)
	}
	return nil
}

// ==================== Queue Store ====================

// queueStore implements driven.QueueStore.
type queueStore struct {
	store *Store
}

var _ driven.QueueStore = (*queueStore)(nil)

// Append adds a task to the queue.
func (s *queueStore) Append(ctx context.Context, task domain.SyncTask) error {
	if task.ID == "" {
		return domain.ErrInvalidInput
	}

	payloadJSON, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshalling task payload: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_tasks (id, type, payload, created_at, retry_count, priority)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, task.ID, task.Type, string(payloadJSON), task.CreatedAt.UTC(),
		task.RetryCount, task.Priority)

	if err != nil {
		return storageErr("appending task", err)
	}
	return nil
}

// List returns all queued tasks; the drain pass sorts them itself.
func (s *queueStore) List(ctx context.Context) ([]domain.SyncTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, payload, created_at, retry_count, priority
		FROM sync_tasks
	`)
	if err != nil {
		return nil, storageErr("querying tasks", err)
	}
	defer rows.Close()

	tasks := make([]domain.SyncTask, 0)
	for rows.Next() {
		var task domain.SyncTask
		var payloadJSON string
		if err := rows.Scan(&task.ID, &task.Type, &payloadJSON,
			&task.CreatedAt, &task.RetryCount, &task.Priority); err != nil {
			return nil, storageErr("scanning task", err)
		}
		if err := json.Unmarshal([]byte(payloadJSON), &task.Payload); err != nil {
			return nil, fmt.Errorf("unmarshalling task payload: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating tasks", err)
	}

	return tasks, nil
}

// Update persists a task's mutated retry count.
func (s *queueStore) Update(ctx context.Context, task domain.SyncTask) error {
	result, err := s.store.db.ExecContext(ctx,
		"UPDATE sync_tasks SET retry_count = ? WHERE id = ?", task.RetryCount, task.ID)
	if err != nil {
		return storageErr("updating task", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("checking task update", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Remove deletes a task by ID.
func (s *queueStore) Remove(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_tasks WHERE id = ?", id)
	if err != nil {
		return storageErr("removing task", err)
	}
	return nil
}

// Clear empties the queue.
func (s *queueStore) Clear(ctx context.Context) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_tasks")
	if err != nil {
		return storageErr("clearing queue", err)
	}
	return nil
}

// Count returns the number of queued tasks.
func (s *queueStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_tasks").Scan(&count)
	if err != nil {
		return 0, storageErr("counting tasks", err)
	}
	return count, nil
}

// ==================== Helper Functions ====================

// scanRecord scans a single record row.
func scanRecord(row *sql.Row) (*domain.Record, error) {
	var record domain.Record
	var updatedAt sql.NullTime
	var dataJSON string

	if err := row.Scan(&record.ID, &updatedAt, &dataJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("scanning record", err)
	}

	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time
	}
	if err := json.Unmarshal([]byte(dataJSON), &record.Data); err != nil {
		return nil, fmt.Errorf("unmarshalling record data: %w", err)
	}

	return &record, nil
}

// scanRecordRows scans a record from *sql.Rows.
func scanRecordRows(rows *sql.Rows) (*domain.Record, error) {
	var record domain.Record
	var updatedAt sql.NullTime
	var dataJSON string

	if err := rows.Scan(&record.ID, &updatedAt, &dataJSON); err != nil {
		return nil, storageErr("scanning record", err)
	}

	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time
	}
	if err := json.Unmarshal([]byte(dataJSON), &record.Data); err != nil {
		return nil, fmt.Errorf("unmarshalling record data: %w", err)
	}

	return &record, nil
}
