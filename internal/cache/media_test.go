package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func tempMediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("media"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestMediaCachePutGet(t *testing.T) {
	c, err := NewMediaCache(4)
	if err != nil {
		t.Fatalf("NewMediaCache: %v", err)
	}

	id := uuid.New()
	path := tempMediaFile(t, "a.mp4")
	c.Put(id, path)

	got, ok := c.Get(id)
	if !ok || got != path {
		t.Fatalf("Get = %q, %v; want %q, true", got, ok, path)
	}
}

func TestMediaCacheEvictionRemovesFile(t *testing.T) {
	c, err := NewMediaCache(2)
	if err != nil {
		t.Fatalf("NewMediaCache: %v", err)
	}

	first := tempMediaFile(t, "first.mp4")
	c.Put(uuid.New(), first)
	c.Put(uuid.New(), tempMediaFile(t, "second.mp4"))
	c.Put(uuid.New(), tempMediaFile(t, "third.mp4"))

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatalf("evicted file still exists: %v", err)
	}
}

func TestMediaCacheReplaceRemovesOldFile(t *testing.T) {
	c, err := NewMediaCache(4)
	if err != nil {
		t.Fatalf("NewMediaCache: %v", err)
	}

	id := uuid.New()
	old := tempMediaFile(t, "old.mp4")
	next := tempMediaFile(t, "new.mp4")

	c.Put(id, old)
	c.Put(id, next)

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("replaced file still exists: %v", err)
	}
	got, ok := c.Get(id)
	if !ok || got != next {
		t.Fatalf("Get = %q, %v; want %q, true", got, ok, next)
	}
}

func TestMediaCacheStaleEntryDropped(t *testing.T) {
	c, err := NewMediaCache(4)
	if err != nil {
		t.Fatalf("NewMediaCache: %v", err)
	}

	id := uuid.New()
	path := tempMediaFile(t, "gone.mp4")
	c.Put(id, path)
	os.Remove(path)

	if _, ok := c.Get(id); ok {
		t.Fatal("expected stale entry to be dropped")
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestMediaCacheDrop(t *testing.T) {
	c, err := NewMediaCache(4)
	if err != nil {
		t.Fatalf("NewMediaCache: %v", err)
	}

	id := uuid.New()
	path := tempMediaFile(t, "drop.mp4")
	c.Put(id, path)
	c.Drop(id)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("dropped file still exists: %v", err)
	}
}
