package backend

import (
	"context"
	"errors"
	"fmt"

	"financeflow/internal/amqp"
	"financeflow/internal/cache"
	"financeflow/internal/ledger"
	"financeflow/internal/lifecycle"
	"financeflow/internal/log"
	"financeflow/internal/services"
	"financeflow/internal/storage"
	"financeflow/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store, connects the optional event publisher and
// assembles the budget service over them.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Store
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &BackendResult{Store: store}

	// AMQP is optional; the service works without events.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			res.Events = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	opts := []services.Option{services.WithLogger(f.logger.WithComponent(log.ComponentBudget))}
	if config.CacheSize > 0 {
		res.Overviews = cache.NewLRUCache[ledger.Overview](config.CacheSize, config.CacheTTL)
	}
	opts = append(opts, services.WithOverviewCache(res.Overviews))
	if res.Events != nil {
		opts = append(opts, services.WithPublisher(res.Events))
	}
	res.Service = services.NewBudgetService(store, lifecycle.NewManager(), opts...)

	res.Cleanup = func() error {
		var errs []error
		if res.Events != nil {
			errs = append(errs, res.Events.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return res, nil
}
