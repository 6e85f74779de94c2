package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// storeCase builds a Store bound to clock for the shared contract tests.
type storeCase struct {
	name string
	open func(t *testing.T, clock *fakeClock) Store
}

func storeCases() []storeCase {
	return []storeCase{
		{"memory", func(t *testing.T, clock *fakeClock) Store {
			return NewMemoryStore().WithClock(clock.Now)
		}},
		{"disk", func(t *testing.T, clock *fakeClock) Store {
			return &DiskStore{Dir: filepath.Join(t.TempDir(), "kv"), now: clock.Now}
		}},
		{"sqlite", func(t *testing.T, clock *fakeClock) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
			require.NoError(t, err)
			s.now = clock.Now
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestStore_SetGet(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			s := sc.open(t, newClock())
			key := "engine_select:" + Digest("<html></html>") + ":v0p0s1"

			_, ok, err := s.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, key, []byte(`{"engine":"wasm"}`), time.Hour))
			got, ok, err := s.Get(ctx, key)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, `{"engine":"wasm"}`, string(got))

			require.NoError(t, s.Set(ctx, key, []byte(`{"engine":"headless"}`), time.Hour))
			got, _, _ = s.Get(ctx, key)
			assert.Equal(t, `{"engine":"headless"}`, string(got), "last write wins")
		})
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			s := sc.open(t, clock)
			require.NoError(t, s.Set(ctx, "short", []byte("a"), time.Hour))
			require.NoError(t, s.Set(ctx, "forever", []byte("b"), 0))

			clock.Advance(59 * time.Minute)
			_, ok, _ := s.Get(ctx, "short")
			assert.True(t, ok, "entry should live until its ttl")

			clock.Advance(2 * time.Minute)
			_, ok, _ = s.Get(ctx, "short")
			assert.False(t, ok, "entry should expire after its ttl")
			_, ok, _ = s.Get(ctx, "forever")
			assert.True(t, ok, "zero ttl never expires")
		})
	}
}

func TestStore_PurgeExpired(t *testing.T) {
	for _, sc := range storeCases() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			s := sc.open(t, clock)
			require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
			require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))
			require.NoError(t, s.Set(ctx, "c", []byte("3"), time.Hour))
			clock.Advance(5 * time.Minute)

			p, ok := s.(Purger)
			require.True(t, ok)
			n, err := p.PurgeExpired(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			_, ok, _ = s.Get(ctx, "c")
			assert.True(t, ok)
		})
	}
}

func TestDiskStore_StrictPerms(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "kv")
	c := &DiskStore{Dir: dir, StrictPerms: true}
	key := "engine_select:abc:v0p0s0"
	require.NoError(t, c.Set(context.Background(), key, []byte(`{"ok":true}`), time.Hour))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode()&0o777)

	finfo, err := os.Stat(c.PathFor(key))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), finfo.Mode()&0o777)
}

func TestDiskStore_MalformedIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := &DiskStore{Dir: dir}
	require.NoError(t, os.WriteFile(c.PathFor("k"), []byte("{not json"), 0o644))
	_, ok, err := c.Get(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDiskStore_UnconfiguredDir(t *testing.T) {
	c := &DiskStore{}
	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, c.Set(context.Background(), "k", nil, 0))
}

func TestPurgeByAge(t *testing.T) {
	dir := t.TempDir()
	old := &DiskStore{Dir: dir, now: func() time.Time { return time.Now().Add(-48 * time.Hour) }}
	fresh := &DiskStore{Dir: dir}
	ctx := context.Background()
	require.NoError(t, old.Set(ctx, "old", []byte("x"), 0))
	require.NoError(t, fresh.Set(ctx, "new", []byte("y"), 0))

	n, err := PurgeByAge(dir, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, ok, _ := fresh.Get(ctx, "new")
	assert.True(t, ok)

	n, err = PurgeByAge(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestClearDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "c")
	c := &DiskStore{Dir: dir}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	require.NoError(t, ClearDir(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Error(t, ClearDir("  "))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.Set(ctx, "shared", []byte{byte(i)}, time.Minute)
				_, _, _ = s.Get(ctx, "shared")
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestDigest_Stable(t *testing.T) {
	assert.Equal(t, Digest("abc"), Digest("abc"))
	assert.NotEqual(t, Digest("abc"), Digest("abd"))
	assert.Len(t, Digest(""), 64)
}
