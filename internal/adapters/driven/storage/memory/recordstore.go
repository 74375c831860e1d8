package memory

import (
	"context"
	"sync"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore.
// Used in tests and in ephemeral mode; nothing survives a restart.
type RecordStore struct {
	mu         sync.RWMutex
	partitions map[domain.Partition]map[string]domain.Record
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		partitions: make(map[domain.Partition]map[string]domain.Record),
	}
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(_ context.Context, partition domain.Partition, id string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.partitions[partition][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// GetAll returns every record in a partition. An uninitialised
// partition yields an empty slice.
func (s *RecordStore) GetAll(_ context.Context, partition domain.Partition) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]domain.Record, 0, len(s.partitions[partition]))
	for _, record := range s.partitions[partition] {
		records = append(records, record)
	}
	return records, nil
}

// Put upserts a record by its identity key. The partition is created on
// first write.
func (s *RecordStore) Put(_ context.Context, partition domain.Partition, record domain.Record) error {
	if record.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.partitions[partition] == nil {
		s.partitions[partition] = make(map[string]domain.Record)
	}
	// Last-write-wins by remote server timestamp: an older record never
	// clobbers a newer one.
	if existing, ok := s.partitions[partition][record.ID]; ok && existing.UpdatedAt.After(record.UpdatedAt) {
		return nil
	}
	s.partitions[partition][record.ID] = record
	return nil
}

// Delete removes a record by ID. Missing records are not an error.
func (s *RecordStore) Delete(_ context.Context, partition domain.Partition, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions[partition], id)
	return nil
}

// Clear wipes all records in a partition.
func (s *RecordStore) Clear(_ context.Context, partition domain.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions, partition)
	return nil
}
