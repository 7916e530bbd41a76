// Package file persists sessions as one JSON document per key on local disk,
// the server-side counterpart of the browser's local storage entry.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/batuta/dashboard/internal/core/domain"
)

// SessionStore ages sessions by file modification time: a document not saved
// for ttl is gone. A zero ttl keeps documents until they are deleted.
type SessionStore struct {
	dir string
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	lastPrune time.Time
}

// NewSessionStore stores sessions under dir, creating it if needed.
func NewSessionStore(dir string, ttl time.Duration) (*SessionStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session dir: %w", err)
	}
	return &SessionStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (s *SessionStore) Load(_ context.Context, key string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	if info, err := os.Stat(path); err == nil && s.stale(info) {
		os.Remove(path)
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	sess, err := domain.DecodeSession(raw)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Save writes through a temp file and rename so readers never see a partial
// document.
func (s *SessionStore) Save(_ context.Context, key string, sess domain.Session) error {
	raw, err := domain.EncodeSession(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save session: %w", err)
	}
	s.prune()
	return nil
}

func (s *SessionStore) stale(info fs.FileInfo) bool {
	return s.ttl > 0 && s.now().Sub(info.ModTime()) >= s.ttl
}

// prune removes stale documents at most once per ttl. Callers hold s.mu.
func (s *SessionStore) prune() {
	if s.ttl <= 0 || s.now().Sub(s.lastPrune) < s.ttl {
		return
	}
	s.lastPrune = s.now()
	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return
	}
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && s.stale(info) {
			os.Remove(f)
		}
	}
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks the directory is still writable.
func (s *SessionStore) Ping(context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

// Keys carry user-controlled cookie values; hash them into safe file names.
func (s *SessionStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}
