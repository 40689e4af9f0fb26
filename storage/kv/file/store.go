// Package filekv is a core.Store persisted as one encrypted file.
//
// File layout: salt (16 bytes) | nonce (24 bytes) | XChaCha20-Poly1305 sealed JSON object.
// The key is derived from the secret with argon2id and the file's salt.
package filekv

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/trezcool/ratiba/core"
)

const saltSize = 16

// argon2id parameters
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

var ErrDecrypt = errors.New("cannot decrypt store: wrong secret key or corrupted file")

type Store struct {
	mu    sync.RWMutex
	path  string
	salt  []byte
	key   []byte
	table map[string]string
}

var _ core.Store = (*Store)(nil)

// Open loads the store at path, or starts an empty one if the file does not exist yet.
func Open(path, secret string) (*Store, error) {
	if secret == "" {
		return nil, errors.New("store secret key is empty")
	}
	s := &Store{path: path, table: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		s.salt = make([]byte, saltSize)
		if _, err = io.ReadFull(rand.Reader, s.salt); err != nil {
			return nil, errors.Wrap(err, "generating salt")
		}
		s.key = deriveKey(secret, s.salt)
		return s, nil
	case err != nil:
		return nil, errors.Wrap(err, "reading store")
	}

	if len(raw) < saltSize+chacha20poly1305.NonceSizeX {
		return nil, ErrDecrypt
	}
	s.salt = raw[:saltSize]
	s.key = deriveKey(secret, s.salt)

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := raw[saltSize : saltSize+chacha20poly1305.NonceSizeX]
	plain, err := aead.Open(nil, nonce, raw[saltSize+chacha20poly1305.NonceSizeX:], s.salt)
	if err != nil {
		return nil, ErrDecrypt
	}
	if err = json.Unmarshal(plain, &s.table); err != nil {
		return nil, errors.Wrap(err, "decoding store")
	}
	return s, nil
}

func deriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
}

// flush writes the table; s.mu must be held.
func (s *Store) flush() error {
	plain, err := json.Marshal(s.table)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plain)+aead.Overhead())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return errors.Wrap(err, "generating nonce")
	}

	out := append(append([]byte{}, s.salt...), aead.Seal(nonce, nonce, plain, s.salt)...)
	if err = os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "creating store dir")
	}
	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, out, 0o600); err != nil {
		return errors.Wrap(err, "writing store")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "writing store")
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.table[key]; ok {
		return v, nil
	}
	return "", core.ErrKeyNotFound
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.table[key]; ok && old == value {
		return nil
	}
	s.table[key] = value
	return s.flush()
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed bool
	for _, k := range keys {
		if _, ok := s.table[k]; ok {
			delete(s.table, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.flush()
}

func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = make(map[string]string)
	return s.flush()
}
