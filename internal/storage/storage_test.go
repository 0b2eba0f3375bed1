package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamwears/movieflix/internal/logger"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	file, err := NewFileBackend(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "movieflix.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   file,
		"sqlite": sqlite,
	}
}

func TestBackendVersioning(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := b.Load(ctx, "k")
			require.ErrorIs(t, err, ErrNotFound)

			v, err := b.Store(ctx, "k", []byte(`"one"`), 0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), v)

			_, err = b.Store(ctx, "k", []byte(`"stale"`), 0)
			require.ErrorIs(t, err, ErrVersionConflict)

			v, err = b.Store(ctx, "k", []byte(`"two"`), 1)
			require.NoError(t, err)
			assert.Equal(t, int64(2), v)

			data, version, err := b.Load(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `"two"`, string(data))
			assert.Equal(t, int64(2), version)

			require.NoError(t, b.Delete(ctx, "k"))
			require.NoError(t, b.Delete(ctx, "k"))
			_, _, err = b.Load(ctx, "k")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSlotLazyLoadAndFallback(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	slot := NewSlot(backend, KeySearchHistory, []string{}, logger.Discard())
	assert.Equal(t, []string{}, slot.Get(ctx))

	slot.Set(ctx, []string{"dune"})

	reopened := NewSlot(backend, KeySearchHistory, []string{}, logger.Discard())
	assert.Equal(t, []string{"dune"}, reopened.Get(ctx))
}

func TestSlotParseFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	backend, err := NewFileBackend(fs, "/data")
	require.NoError(t, err)

	_, err = backend.Store(ctx, KeyWatchlist, []byte("{not json"), 0)
	require.NoError(t, err)

	slot := NewSlot(backend, KeyWatchlist, []int{}, logger.Discard())
	assert.Equal(t, []int{}, slot.Get(ctx))

	// the corrupt record is replaced on the next write
	slot.Set(ctx, []int{1})
	data, _, err := backend.Load(ctx, KeyWatchlist)
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, string(data))
}

func TestSlotCorruptEnvelopeIsReplaced(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	backend, err := NewFileBackend(fs, "/data")
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "/data/"+KeyTheme+".json", []byte("garbage"), 0o644))

	slot := NewSlot(backend, KeyTheme, "system", logger.Discard())
	assert.Equal(t, "system", slot.Get(ctx))

	slot.Set(ctx, "dark")
	assert.Equal(t, "dark", NewSlot(backend, KeyTheme, "system", logger.Discard()).Get(ctx))
}

func TestSlotUpdateReappliesOnConflict(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	first := NewSlot(backend, KeyWatchlist, []string{}, logger.Discard())
	second := NewSlot(backend, KeyWatchlist, []string{}, logger.Discard())

	// both writers load the empty record
	first.Get(ctx)
	second.Get(ctx)

	second.Update(ctx, func(v []string) []string { return append([]string{"from-second"}, v...) })
	got := first.Update(ctx, func(v []string) []string { return append([]string{"from-first"}, v...) })

	assert.Equal(t, []string{"from-first", "from-second"}, got)
	assert.Equal(t, got, NewSlot(backend, KeyWatchlist, []string{}, logger.Discard()).Get(ctx))
}

func TestSlotWithoutBackendIsMemoryOnly(t *testing.T) {
	ctx := context.Background()
	slot := NewSlot[[]string](nil, KeyWatchlist, nil, logger.Discard())

	assert.Nil(t, slot.Get(ctx))
	slot.Update(ctx, func(v []string) []string { return append(v, "a") })
	assert.Equal(t, []string{"a"}, slot.Get(ctx))

	slot.Remove(ctx)
	assert.Nil(t, slot.Get(ctx))
}

type brokenBackend struct{}

func (brokenBackend) Load(context.Context, string) ([]byte, int64, error) {
	return nil, 0, errors.New("disk unplugged")
}

func (brokenBackend) Store(context.Context, string, []byte, int64) (int64, error) {
	return 0, errors.New("disk unplugged")
}

func (brokenBackend) Delete(context.Context, string) error {
	return errors.New("disk unplugged")
}

func TestSlotSwallowsBackendFailures(t *testing.T) {
	ctx := context.Background()
	slot := NewSlot[[]string](brokenBackend{}, KeyWatchlist, []string{}, logger.Discard())

	assert.Equal(t, []string{}, slot.Get(ctx))
	slot.Set(ctx, []string{"kept"})
	assert.Equal(t, []string{"kept"}, slot.Get(ctx))

	got := slot.Update(ctx, func(v []string) []string { return append([]string{"new"}, v...) })
	assert.Equal(t, []string{"new", "kept"}, got)

	slot.Remove(ctx)
	assert.Equal(t, []string{}, slot.Get(ctx))
}

// flakyBackend conflicts on the first Store and then fails every Load
type flakyBackend struct {
	*MemoryBackend
	stores int
	failed bool
}

func (b *flakyBackend) Load(ctx context.Context, key string) ([]byte, int64, error) {
	if b.failed {
		return nil, 0, errors.New("connection reset")
	}
	return b.MemoryBackend.Load(ctx, key)
}

func (b *flakyBackend) Store(ctx context.Context, key string, data []byte, expectedVersion int64) (int64, error) {
	b.stores++
	if b.stores == 1 {
		b.failed = true
		return 0, ErrVersionConflict
	}
	return b.MemoryBackend.Store(ctx, key, data, expectedVersion)
}

func TestSlotUpdateKeepsValueWhenReloadFails(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryBackend()
	_, err := mem.Store(ctx, KeyWatchlist, []byte(`["saved"]`), 0)
	require.NoError(t, err)

	backend := &flakyBackend{MemoryBackend: mem}
	slot := NewSlot(backend, KeyWatchlist, []string{}, logger.Discard())
	require.Equal(t, []string{"saved"}, slot.Get(ctx))

	got := slot.Update(ctx, func(v []string) []string { return append([]string{"new"}, v...) })

	assert.Equal(t, []string{"new", "saved"}, got)
	assert.Equal(t, []string{"new", "saved"}, slot.Get(ctx))
	assert.Equal(t, 1, backend.stores, "no retry after the reload failed")
}
