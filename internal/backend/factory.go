package backend

import (
	"context"
	"fmt"
	"log/slog"

	"costledger/internal/amqp"
	"costledger/internal/core"
	"costledger/internal/currency"
	"costledger/internal/ledger"
	"costledger/internal/ledger/memory"
	"costledger/internal/services"
	"costledger/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional: a broker outage must not stop the ledger
	var publisher services.EventPublisher
	if config.PublishEvents {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = client
		}
	}

	provider := currency.NewProvider(currency.ProviderConfig{
		URL:      config.RatesURL,
		Timeout:  config.RatesTimeout,
		CacheTTL: config.RatesCacheTTL,
		Logger:   f.logger,
	})

	normalizer := core.NewNormalizer()
	if config.Location != nil {
		normalizer.Location = config.Location
	}

	svc, err := services.NewCostService(ctx, store, provider, services.Options{
		Normalizer:      &normalizer,
		DefaultCurrency: config.DefaultCurrency,
		DefaultRatesURL: config.RatesURL,
		Publisher:       publisher,
		Logger:          f.logger,
	})
	if err != nil {
		store.Close()
		if publisher != nil {
			publisher.Close()
		}
		return nil, fmt.Errorf("failed to initialize cost service: %w", err)
	}

	return &BackendResult{
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) openStore(config Config) (ledger.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.Open(config.DataDir, config.DBName, config.DBVersion, storage.Options{
			Location: config.Location,
			Logger:   f.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend",
			"db_path", repo.Path(),
			"schema_version", repo.SchemaVersion())
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(config.Location), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
