package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

const maxUpdateAttempts = 3

// Slot is a typed value persisted under one key. It never returns storage errors:
// failures are logged and the in-memory value stays authoritative for the process.
//
// Values are shared with callers, so slice or map values must be replaced rather than
// mutated in place.
type Slot[T any] struct {
	backend  Backend
	key      string
	fallback T
	logger   *logrus.Entry

	mu      sync.Mutex
	loaded  bool
	value   T
	version int64
}

// NewSlot creates a slot. A nil backend gives a memory-only slot.
func NewSlot[T any](backend Backend, key string, fallback T, logger *logrus.Logger) *Slot[T] {
	return &Slot[T]{
		backend:  backend,
		key:      key,
		fallback: fallback,
		logger:   logger.WithField("slot", key),
	}
}

// Key returns the storage key
func (s *Slot[T]) Key() string {
	return s.key
}

// Get returns the current value, loading it on first access
func (s *Slot[T]) Get(ctx context.Context) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	return s.value
}

// Set replaces the value. The last writer wins.
func (s *Slot[T]) Set(ctx context.Context, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)
	s.value = v
	if s.backend == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to serialize value")
		return
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		version, err := s.backend.Store(ctx, s.key, data, s.version)
		if err == nil {
			s.version = version
			return
		}
		if !errors.Is(err, ErrVersionConflict) {
			s.logger.WithError(err).Warn("Failed to persist value")
			return
		}
		s.refreshVersion(ctx)
	}
	s.logger.Warn("Gave up persisting value after repeated version conflicts")
}

// Update applies fn to the current value and persists the result. When another writer
// changed the record in the meantime, the record is reloaded and fn is applied again to
// the fresh value. Returns the resulting in-memory value.
func (s *Slot[T]) Update(ctx context.Context, fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoaded(ctx)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		s.value = fn(s.value)
		if s.backend == nil {
			return s.value
		}

		data, err := json.Marshal(s.value)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to serialize value")
			return s.value
		}

		version, err := s.backend.Store(ctx, s.key, data, s.version)
		if err == nil {
			s.version = version
			return s.value
		}
		if !errors.Is(err, ErrVersionConflict) {
			s.logger.WithError(err).Warn("Failed to persist value")
			return s.value
		}

		s.logger.WithField("attempt", attempt+1).Debug("Version conflict, reapplying update")
		fresh, version, err := s.read(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to reload record after conflict, keeping in-memory value")
			return s.value
		}
		s.value, s.version = fresh, version
	}

	s.logger.Warn("Gave up persisting update after repeated version conflicts")
	return s.value
}

// Remove resets the value to the fallback and deletes the record
func (s *Slot[T]) Remove(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = s.fallback
	s.loaded = true
	s.version = 0
	if s.backend == nil {
		return
	}
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.WithError(err).Warn("Failed to delete record")
	}
}

func (s *Slot[T]) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.load(ctx)
}

func (s *Slot[T]) load(ctx context.Context) {
	s.loaded = true
	s.value = s.fallback
	s.version = 0

	if s.backend == nil {
		s.logger.Warn("No storage backend available, using in-memory value")
		return
	}

	v, version, err := s.read(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load record, using default")
		return
	}
	s.value, s.version = v, version
}

// read fetches the stored value. A missing record is the fallback at version 0, and
// an unparsable one is the fallback at the record's version so the next write replaces it.
func (s *Slot[T]) read(ctx context.Context) (T, int64, error) {
	data, version, err := s.backend.Load(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return s.fallback, 0, nil
	}
	if err != nil {
		return s.fallback, 0, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.logger.WithError(err).Warn("Failed to parse stored value, using default")
		return s.fallback, version, nil
	}
	return v, version, nil
}

func (s *Slot[T]) refreshVersion(ctx context.Context) {
	_, version, err := s.backend.Load(ctx, s.key)
	if err != nil {
		s.version = 0
		return
	}
	s.version = version
}
