package keycache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

const testURL = "https://iweb_5.example.com/cspiclink/abc/1.jpg"

func caches(t *testing.T) map[string]Cache {
	t.Helper()
	fc, err := NewFileCache(filepath.Join(t.TempDir(), "keys"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	return map[string]Cache{
		"memory": NewMemoryCache(),
		"file":   fc,
	}
}

func TestCache_SetGet(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok := c.Get(testURL); ok {
				t.Fatal("expected miss on empty cache")
			}
			want := Entry{Key: "3a2a1a0", GridSize: 2, ExpiresAt: time.Now().Add(time.Hour)}
			if err := c.Set(testURL, want); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			got, ok := c.Get(testURL)
			if !ok {
				t.Fatal("expected hit")
			}
			if got.Key != want.Key || got.GridSize != want.GridSize {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestCache_Expired(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			_ = c.Set(testURL, Entry{Key: "0", ExpiresAt: time.Now().Add(-time.Second)})
			if _, ok := c.Get(testURL); ok {
				t.Fatal("expired entry should be a miss")
			}
		})
	}
}

func TestCache_NoExpiry(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			_ = c.Set(testURL, Entry{Key: "1a0"})
			if _, ok := c.Get(testURL); !ok {
				t.Fatal("entry without expiry should live forever")
			}
		})
	}
}

func TestMemoryCache_EvictsOnRead(t *testing.T) {
	c := NewMemoryCache()
	now := time.Now()
	c.now = func() time.Time { return now }
	_ = c.Set(testURL, Entry{Key: "0", ExpiresAt: now.Add(time.Minute)})

	now = now.Add(time.Minute)
	if _, ok := c.Get(testURL); ok {
		t.Fatal("expected miss at expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, len=%d", c.Len())
	}
}

func TestFileCache_CorruptEntryRemoved(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	fn := fc.path(testURL)
	if err := os.WriteFile(fn, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := fc.Get(testURL); ok {
		t.Fatal("corrupt entry should be a miss")
	}
	if _, err := os.Stat(fn); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCache_ConcurrentSet(t *testing.T) {
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fc.Set(testURL, Entry{Key: "2a3a0a1", GridSize: 2}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if e, ok := fc.Get(testURL); !ok || e.Key != "2a3a0a1" {
		t.Errorf("Get after concurrent Set = %+v, %v", e, ok)
	}
	entries, _ := os.ReadDir(fc.Dir())
	if len(entries) != 1 {
		t.Errorf("expected a single cache file, found %d", len(entries))
	}
}

func TestNewFileCache_RequiresDir(t *testing.T) {
	if _, err := NewFileCache(""); err == nil {
		t.Error("expected error for empty rootDir")
	}
}
