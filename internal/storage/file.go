package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

type fileEnvelope struct {
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	Value     string    `json:"value"`
}

// FileBackend stores each key as a JSON envelope file inside a directory
type FileBackend struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileBackend creates the directory if needed
func NewFileBackend(fs afero.Fs, dir string) (*FileBackend, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileBackend{fs: fs, dir: dir, now: time.Now}, nil
}

// DefaultDir returns ~/.movieflix, or ./.movieflix when no home directory is known
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".movieflix"
	}
	return filepath.Join(home, ".movieflix")
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, key+".json")
}

func (b *FileBackend) read(key string) (fileEnvelope, error) {
	var env fileEnvelope
	data, err := afero.ReadFile(b.fs, b.path(key))
	if os.IsNotExist(err) {
		return env, ErrNotFound
	}
	if err != nil {
		return env, fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode %s: %w", key, err)
	}
	return env, nil
}

func (b *FileBackend) Load(_ context.Context, key string) ([]byte, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	env, err := b.read(key)
	if err != nil {
		return nil, 0, err
	}
	return []byte(env.Value), env.Version, nil
}

// Store writes through a temp file and rename. An unreadable existing file counts as
// version 0 so a corrupt record can be replaced.
func (b *FileBackend) Store(_ context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var current int64
	if env, err := b.read(key); err == nil {
		current = env.Version
	}
	if current != expectedVersion {
		return 0, ErrVersionConflict
	}

	env := fileEnvelope{Version: expectedVersion + 1, UpdatedAt: b.now().UTC(), Value: string(data)}
	encoded, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", key, err)
	}

	tmp := b.path(key) + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, encoded, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", key, err)
	}
	if err := b.fs.Rename(tmp, b.path(key)); err != nil {
		return 0, fmt.Errorf("rename %s: %w", key, err)
	}
	return env.Version, nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fs.Remove(b.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
