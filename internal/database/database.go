// Package database provides the post stores for go-pugblog
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-while/go-pugblog/internal/config"
	"github.com/go-while/go-pugblog/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrPostNotFound is returned when no post matches an identifier,
// including identifiers the store could never have issued.
var ErrPostNotFound = errors.New("post not found")

// PostStore persists posts. Implementations assign IDs and timestamps.
type PostStore interface {
	// FindAll returns every post in insertion order
	FindAll(ctx context.Context) ([]*models.Post, error)
	FindByID(ctx context.Context, id string) (*models.Post, error)
	// Insert stores p and sets its ID, CreatedAt and UpdatedAt
	Insert(ctx context.Context, p *models.Post) error
	// Update replaces title and body and returns the updated post
	Update(ctx context.Context, id, title, body string) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open connects the store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StoreConfig) (PostStore, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	log.Info().Str("driver", cfg.Driver).Msg("opening post store")

	switch cfg.Driver {
	case config.StoreMemory, "":
		return NewMemoryStore(), nil
	case config.StoreSQLite:
		dbconfig := DefaultDBConfig()
		dbconfig.Path = cfg.SQLitePath
		return OpenSQLite(ctx, dbconfig)
	case config.StoreMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case config.StorePostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
