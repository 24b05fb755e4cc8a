package renderer

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goksuguvendiren/optix-renderer/scene"
)

func TestSceneWatcherRetriesLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	var attempts int32
	load := func(string) (*scene.Scene, error) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return nil, errors.New("partial write")
		}
		return scene.NewScene(), nil
	}

	w, err := WatchScene(path, load)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err = os.WriteFile(path, []byte(`{"SPP": 1}`), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case sc := <-w.Scenes():
		if sc == nil {
			t.Fatal("expected a reloaded scene")
		}
	case err = <-w.Errors():
		t.Fatalf("unexpected watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for scene reload")
	}

	if got := atomic.LoadInt32(&attempts); got < 3 {
		t.Fatalf("expected at least 3 load attempts; got %d", got)
	}
}

func TestSceneWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.json")
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	var attempts int32
	w, err := WatchScene(path, func(string) (*scene.Scene, error) {
		atomic.AddInt32(&attempts, 1)
		return scene.NewScene(), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if err = os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-w.Scenes():
		t.Fatal("expected writes to other files to be ignored")
	case <-time.After(200 * time.Millisecond):
	}

	if err = w.Close(); err != nil {
		t.Fatal(err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("expected second close to be a no-op; got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 0 {
		t.Fatalf("expected no load attempts; got %d", got)
	}
}
