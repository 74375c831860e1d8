package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheEntry_IsFresh(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entry := CacheEntry{
		Key:      CacheKey("GET", "/api/menu"),
		StoredAt: now,
		TTL:      time.Hour,
	}

	assert.True(t, entry.IsFresh(now))
	assert.True(t, entry.IsFresh(now.Add(10*time.Minute)))
	assert.True(t, entry.IsFresh(now.Add(59*time.Minute)))
	assert.False(t, entry.IsFresh(now.Add(time.Hour)))
	assert.False(t, entry.IsFresh(now.Add(61*time.Minute)))
}

func TestCacheEntry_Size(t *testing.T) {
	entry := CacheEntry{
		Key:         "GET /api/menu",
		ContentType: "application/json",
		Payload:     []byte(`{"items":[]}`),
	}
	assert.Equal(t, int64(len(entry.Key)+len(entry.ContentType)+len(entry.Payload)), entry.Size())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "GET /api/menu", CacheKey("get", "/api/menu"))
	assert.Equal(t, "POST /api/orders", CacheKey("POST", "/api/orders"))
}

func TestCacheRule_Matches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		url     string
		want    bool
	}{
		{"prefix match", "/api/menu", "/api/menu", true},
		{"prefix match with suffix", "/api/menu", "/api/menu?tenant=42", true},
		{"prefix miss", "/api/menu", "/api/orders", false},
		{"substring match", "*/static/*", "/assets/static/logo.png", true},
		{"substring miss", "*/static/*", "/api/menu", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := CacheRule{Pattern: tt.pattern}
			assert.Equal(t, tt.want, rule.Matches(tt.url))
		})
	}
}

func TestRecord_Supersedes(t *testing.T) {
	now := time.Now()
	newer := &Record{ID: "o1", UpdatedAt: now}
	older := &Record{ID: "o1", UpdatedAt: now.Add(-time.Minute)}

	assert.True(t, newer.Supersedes(older))
	assert.False(t, older.Supersedes(newer))
	assert.True(t, newer.Supersedes(nil))
}

func TestPriorityForURL(t *testing.T) {
	assert.Equal(t, PriorityOrder, PriorityForURL("/api/orders"))
	assert.Equal(t, PriorityOrder, PriorityForURL("/api/orders/o1/items"))
	assert.Equal(t, PriorityInventory, PriorityForURL("/api/inventory/i9"))
	assert.Equal(t, PriorityDefault, PriorityForURL("/api/customers/c3"))
}

func TestKnownPartition(t *testing.T) {
	assert.True(t, KnownPartition(PartitionOrders))
	assert.True(t, KnownPartition(PartitionInventory))
	assert.True(t, KnownPartition(PartitionCustomers))
	assert.False(t, KnownPartition(PartitionSyncQueue))
	assert.False(t, KnownPartition(Partition("sessions")))
}
