package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/docforge/internal/config"
	"github.com/raphaelgruber/docforge/internal/db"
)

// Open builds the stores enabled in cfg, in the configured order. Files go
// to projectDir unless cfg.OutputDir overrides it. The returned function
// releases connections.
func Open(ctx context.Context, cfg config.Config, projectDir string, logger *slog.Logger) (Multi, func(context.Context) error, error) {
	var (
		stores  Multi
		closers []func(context.Context) error
	)
	closeAll := func(ctx context.Context) error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c(ctx))
		}
		return errors.Join(errs...)
	}

	for _, name := range cfg.Stores {
		switch name {
		case config.StoreFile:
			root := projectDir
			if cfg.OutputDir != "" {
				root = cfg.OutputDir
			}
			stores = append(stores, NewFileStore(root))

		case config.StoreMinIO:
			s, err := NewObjectStore(ObjectConfig{
				Endpoint:  cfg.MinIOEndpoint,
				AccessKey: cfg.MinIOAccessKey,
				SecretKey: cfg.MinIOSecretKey,
				Bucket:    cfg.MinIOBucket,
				UseSSL:    cfg.MinIOUseSSL,
			})
			if err != nil {
				_ = closeAll(ctx)
				return nil, nil, err
			}
			stores = append(stores, s)

		case config.StoreSurrealDB:
			client, err := db.NewClient(ctx, db.Config{
				URL:       cfg.SurrealDBURL,
				Namespace: cfg.SurrealDBNamespace,
				Database:  cfg.SurrealDBDatabase,
				Username:  cfg.SurrealDBUser,
				Password:  cfg.SurrealDBPass,
				AuthLevel: cfg.SurrealDBAuthLevel,
			}, logger)
			if err != nil {
				_ = closeAll(ctx)
				return nil, nil, fmt.Errorf("surrealdb store: %w", err)
			}
			closers = append(closers, client.Close)
			if err := client.InitSchema(ctx); err != nil {
				_ = closeAll(ctx)
				return nil, nil, err
			}
			stores = append(stores, NewDBStore(client))

		default:
			_ = closeAll(ctx)
			return nil, nil, fmt.Errorf("unknown store %q", name)
		}
	}
	return stores, closeAll, nil
}
