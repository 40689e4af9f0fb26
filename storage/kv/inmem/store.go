package inmemkv

import (
	"context"
	"sync"

	"github.com/trezcool/ratiba/core"
)

type Store struct {
	sync.RWMutex
	table map[string]string
}

var _ core.Store = (*Store)(nil)

func Open() *Store {
	return &Store{table: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	if v, ok := s.table[key]; ok {
		return v, nil
	}
	return "", core.ErrKeyNotFound
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.Lock()
	defer s.Unlock()
	s.table[key] = value
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.Lock()
	defer s.Unlock()
	for _, k := range keys {
		delete(s.table, k)
	}
	return nil
}

func (s *Store) Clear(context.Context) error {
	s.Lock()
	defer s.Unlock()
	s.table = make(map[string]string)
	return nil
}

// Snapshot copies the current content.
func (s *Store) Snapshot() map[string]string {
	s.RLock()
	defer s.RUnlock()
	cp := make(map[string]string, len(s.table))
	for k, v := range s.table {
		cp[k] = v
	}
	return cp
}
