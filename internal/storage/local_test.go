package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestSaveAndOpen(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	userID := uuid.New()
	path, size, err := store.Save(userID, "videos", "clip.mp4", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len("payload")) {
		t.Errorf("size = %d, want %d", size, len("payload"))
	}
	if !strings.HasPrefix(path, "users/"+userID.String()+"/videos/") {
		t.Errorf("unexpected storage path %q", path)
	}
	if !strings.HasSuffix(path, ".mp4") {
		t.Errorf("extension not preserved in %q", path)
	}

	f, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.Close()
}

func TestPublicURL(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	got := store.PublicURL("users/u/videos/a.mp4")
	want := "http://localhost:8080/media/users/u/videos/a.mp4"
	if got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	path, _, err := store.Save(uuid.New(), "videos", "clip.mp4", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	ctx := context.Background()
	if err := store.Remove(ctx, path); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, path); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}

	abs, _ := store.AbsPath(path)
	if _, err := os.Stat(abs); !os.IsNotExist(err) {
		t.Errorf("file still exists after Remove")
	}
}

func TestAbsPathRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	for _, p := range []string{"../etc/passwd", "/etc/passwd", "."} {
		if _, err := store.AbsPath(p); err == nil {
			t.Errorf("AbsPath(%q) should fail", p)
		}
	}
}
