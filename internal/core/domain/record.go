package domain

import "time"

// Partition names the logical subdivisions of the persistent store.
type Partition string

const (
	// PartitionOrders holds mirrored order records.
	PartitionOrders Partition = "orders"

	// PartitionInventory holds mirrored inventory items.
	PartitionInventory Partition = "inventory"

	// PartitionCustomers holds mirrored customer records.
	PartitionCustomers Partition = "customers"

	// PartitionSyncQueue holds persisted sync tasks.
	PartitionSyncQueue Partition = "syncQueue"
)

// RecordPartitions lists the partitions that hold domain records and are
// addressable through the store-data command API. The sync queue is
// managed exclusively by the queue store.
var RecordPartitions = []Partition{
	PartitionOrders,
	PartitionInventory,
	PartitionCustomers,
}

// KnownPartition reports whether p names a record partition.
func KnownPartition(p Partition) bool {
	for _, known := range RecordPartitions {
		if p == known {
			return true
		}
	}
	return false
}

// Record is the locally mirrored copy of a remote entity. The local copy
// is eventually consistent with the remote one; conflicting writes are
// resolved last-write-wins using the remote server timestamp.
type Record struct {
	// ID is the remote identity of the entity.
	ID string `json:"id"`

	// UpdatedAt is the remote server timestamp, used as the
	// last-write-wins tiebreaker.
	UpdatedAt time.Time `json:"updatedAt"`

	// Data is the entity body as stored remotely.
	Data map[string]any `json:"data"`
}

// Supersedes reports whether this record wins a conflict against other
// under last-write-wins by server timestamp.
func (r *Record) Supersedes(other *Record) bool {
	if other == nil {
		return true
	}
	return r.UpdatedAt.After(other.UpdatedAt)
}
