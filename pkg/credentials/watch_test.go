package credentials

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestStore_WatchSeesCredentialRewrite(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notified := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() {
			select {
			case notified <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(store.CookiesPath(), []byte(`{"token":"t"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-notified:
	case <-ctx.Done():
		t.Fatal("watcher did not fire for cookie rewrite")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Watch returned %v, want context.Canceled", err)
	}
}

func TestStore_WatchIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	notified := make(chan struct{}, 1)
	go func() {
		_ = store.Watch(ctx, func() {
			select {
			case notified <- struct{}{}:
			default:
			}
		})
	}()

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(dir+"/scratch.tmp", []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-notified:
		t.Error("watcher fired for an unrelated file")
	case <-ctx.Done():
	}
}
