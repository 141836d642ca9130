package backend

import (
	"context"
	"errors"
	"fmt"

	"tasca/internal/amqp"
	"tasca/internal/kv/file"
	"tasca/internal/kv/memory"
	applog "tasca/internal/log"
	"tasca/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result = f.createMemoryBackend(ctx)
	case FileBackend:
		result, err = f.createFileBackend(ctx, config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachNotifier(ctx, config, result)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) *BackendResult {
	f.logger.InfoContext(ctx, "Initialized memory backend", applog.FieldBackend, MemoryBackend)
	return &BackendResult{Blobs: memory.New()}
}

func (f *DefaultFactory) createFileBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := file.New(config.DataPath)
	if errors.Is(err, file.ErrCorrupt) {
		// an unreadable document counts as no saved data
		moved, qerr := file.Quarantine(config.DataPath)
		if qerr != nil {
			return nil, fmt.Errorf("failed to recover corrupt data file: %w", qerr)
		}
		f.logger.ErrorContext(ctx, "Data file is corrupt, starting with an empty store",
			applog.FieldPath, config.DataPath,
			"quarantined_to", moved,
			applog.FieldError, err)
		store, err = file.New(config.DataPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized file backend",
		applog.FieldBackend, FileBackend,
		applog.FieldPath, store.Path())
	return &BackendResult{Blobs: store}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		applog.FieldBackend, SQLiteBackend,
		applog.FieldPath, config.SQLiteDBPath)
	return &BackendResult{Blobs: repo, Cleanup: repo.Close}, nil
}

// attachNotifier connects the optional AMQP publisher. A broker that cannot
// be reached is logged and skipped.
func (f *DefaultFactory) attachNotifier(ctx context.Context, config Config, result *BackendResult) {
	if config.AMQPURL == "" {
		return
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without remote alerts",
			applog.FieldError, err)
		return
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		applog.FieldExchange, config.AMQPExchange,
		applog.FieldQueue, config.AMQPQueue)

	result.Notifier = client
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		if storeCleanup != nil {
			errs = append(errs, storeCleanup())
		}
		errs = append(errs, client.Close())
		return errors.Join(errs...)
	}
}
