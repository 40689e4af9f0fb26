package pgkv

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// Store keeps the keys of one namespace in the kv table.
type Store struct {
	db        *sqlx.DB
	namespace string
}

var _ core.Store = (*Store)(nil)

func NewStore(db *sqlx.DB, namespace string) *Store {
	return &Store{db: db, namespace: namespace}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE namespace = $1 AND key = $2`, s.namespace, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", core.ErrKeyNotFound
		}
		return "", errors.Wrapf(err, "reading %s", key)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		s.namespace, key, value,
	)
	return errors.Wrapf(err, "writing %s", key)
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = $1 AND key = ANY($2)`, s.namespace, pq.Array(keys))
	return errors.Wrap(err, "deleting keys")
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = $1`, s.namespace)
	return errors.Wrap(err, "clearing store")
}
