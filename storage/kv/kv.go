// Package kv opens the configured session store.
package kv

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/storage/database"
	filekv "github.com/trezcool/ratiba/storage/kv/file"
	inmemkv "github.com/trezcool/ratiba/storage/kv/inmem"
	pgkv "github.com/trezcool/ratiba/storage/kv/postgres"
)

// store engines
const (
	EngineMemory   = "memory"
	EngineFile     = "file"
	EnginePostgres = "postgres"
)

// Open returns the store selected by conf.Store.Engine and a func releasing it.
func Open(ctx context.Context, conf *core.Config) (core.Store, func() error, error) {
	noop := func() error { return nil }

	switch conf.Store.Engine {
	case EngineMemory:
		return inmemkv.Open(), noop, nil
	case EngineFile, "":
		s, err := filekv.Open(conf.Store.Path, conf.Store.SecretKey)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case EnginePostgres:
		db, err := database.Open(ctx, conf.Database)
		if err != nil {
			return nil, nil, err
		}
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pgkv.NewStore(db, conf.Store.Namespace), db.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown store engine %q", conf.Store.Engine)
	}
}
