package main

import (
	"context"
	"fmt"

	"medicare-now/internal/adapters/storage/bolt"
	"medicare-now/internal/adapters/storage/memory"
	"medicare-now/internal/adapters/storage/mongo"
	"medicare-now/internal/adapters/storage/postgres"
	"medicare-now/internal/config"
	"medicare-now/internal/gateway"
	"medicare-now/internal/platform/logger"
)

// openGateway abre un backend por tipo según la config. notifier puede ser nil.
func openGateway(ctx context.Context, cfg config.Config, log logger.Logger, notifier gateway.Notifier) (*gateway.Gateway, error) {
	rt, err := openRealtime(cfg)
	if err != nil {
		return nil, err
	}
	docs, err := openDocuments(ctx, cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	routes, err := cfg.Routes()
	if err != nil {
		_ = rt.Close()
		_ = docs.Close()
		return nil, err
	}

	gw, err := gateway.New(gateway.Options{
		Realtime:             rt,
		Document:             docs,
		Routes:               routes,
		RetryAttempts:        cfg.GatewayRetryAttempts,
		RetryInitialInterval: cfg.GatewayRetryInterval,
		Notifier:             notifier,
		Logger:               log,
	})
	if err != nil {
		_ = rt.Close()
		_ = docs.Close()
		return nil, err
	}

	log.Info("gateway ready", map[string]any{"realtime": rt.Name(), "document": docs.Name()})
	return gw, nil
}

func openRealtime(cfg config.Config) (gateway.Backend, error) {
	switch cfg.RealtimeBackend {
	case config.BackendBolt:
		return bolt.Open(cfg.BoltPath, cfg.BoltTimeout)
	case config.BackendMemory:
		return memory.NewTree(), nil
	default:
		return nil, fmt.Errorf("unknown realtime backend %q", cfg.RealtimeBackend)
	}
}

func openDocuments(ctx context.Context, cfg config.Config) (gateway.Backend, error) {
	switch cfg.DocumentBackend {
	case config.BackendMongo:
		return mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		return postgres.NewDocuments(db), nil
	case config.BackendMemory:
		return memory.NewDocuments(), nil
	default:
		return nil, fmt.Errorf("unknown document backend %q", cfg.DocumentBackend)
	}
}
