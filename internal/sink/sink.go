package sink

import (
	"context"
	"errors"
	"fmt"

	"tmdbtsv/internal/config"
	"tmdbtsv/internal/table"
)

// Sink receives relations after they have been written to disk.
type Sink interface {
	// Load replaces the stored copy of t and returns the number of rows stored.
	Load(ctx context.Context, t *table.Table) (int, error)
	// Ping verifies connectivity.
	Ping(ctx context.Context) error
	Close() error
}

// ErrUnsupportedDriver indicates a driver name Open does not know.
var ErrUnsupportedDriver = errors.New("unsupported sink driver")

// LoadError reports a failure to store one relation.
type LoadError struct {
	Relation string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Relation, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Open connects to the store described by cfg.
func Open(ctx context.Context, cfg config.Sink) (Sink, error) {
	var (
		s   Sink
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = openSQLite(ctx, cfg)
	case "postgres":
		s, err = openSQL(ctx, "postgres", cfg.DSN, postgresDialect, cfg.TablePrefix)
	case "mysql":
		s, err = openSQL(ctx, "mysql", cfg.DSN, mysqlDialect, cfg.TablePrefix)
	case "mongodb":
		s, err = openMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
