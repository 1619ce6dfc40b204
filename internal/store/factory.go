package store

import (
	"context"
	"fmt"

	"github.com/krishangMittal/PlayMyJam/pkg/database"
)

// Config selects the durable store backend.
type Config struct {
	Driver   string          // "gorm", "mongo"
	Database database.Config // gorm only
	Mongo    MongoConfig     // mongo only
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "gorm":
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	case "mongo":
		return NewMongoStore(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
