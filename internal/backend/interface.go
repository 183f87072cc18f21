package backend

import (
	"context"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/cache"
	"financeflow/internal/ledger"
	"financeflow/internal/services"
	"financeflow/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles a ready budget service with the resources behind it.
type BackendResult struct {
	Store     storage.Store
	Service   *services.BudgetService
	Events    *amqp.Client // nil when AMQP is not configured
	Overviews *cache.LRUCache[ledger.Overview]
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// CacheSize of zero disables the overview cache.
	CacheSize int
	CacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
