package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	values []string
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestBurstEmitsOnlyLastValue(t *testing.T) {
	rec := &recorder{}
	d := New(40*time.Millisecond, rec.record)

	for _, v := range []string{"b", "ba", "bat", "batm", "batman"} {
		d.Set(v)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)

	assert.Equal(t, []string{"batman"}, rec.snapshot())
	assert.Equal(t, "batman", d.Value())
	assert.False(t, d.Pending())
}

func TestSeparateBurstsEmitSeparately(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)

	d.Set("first")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	d.Set("second")
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"first", "second"}, rec.snapshot())
}

func TestStopCancelsPending(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)

	d.Set("never")
	d.Stop()
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, rec.snapshot())
	assert.Equal(t, "", d.Value())
}

func TestFlushEmitsImmediately(t *testing.T) {
	rec := &recorder{}
	d := New(time.Hour, rec.record)

	assert.False(t, d.Flush())

	d.Set("now")
	assert.True(t, d.Flush())
	assert.Equal(t, []string{"now"}, rec.snapshot())
	assert.Equal(t, "now", d.Value())
	assert.False(t, d.Flush())
}

func TestResetSetsValueWithoutEmitting(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.record)

	d.Set("typed")
	d.Reset("")
	time.Sleep(60 * time.Millisecond)

	assert.Empty(t, rec.snapshot())
	assert.Equal(t, "", d.Value())
}
