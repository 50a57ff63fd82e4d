package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	data := []byte("app:\n  log_level: " + level + "\n  http:\n    port: 8080\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatchConfigReloadsLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "info")

	var mu sync.Mutex
	var got []slog.Level

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)), func(c *Config) {
			mu.Lock()
			got = append(got, c.App.LogLevel)
			mu.Unlock()
		})
	}()

	// Give the watcher time to register before editing.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, path, "debug")

	deadline := time.Now().Add(3 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		var last slog.Level
		if n > 0 {
			last = got[n-1]
		}
		mu.Unlock()
		if n > 0 && last == slog.LevelDebug {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("reload not observed, got %v", got)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
}

func TestWatchConfigSkipsInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "info")

	calls := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchConfig(ctx, path, slog.New(slog.NewTextHandler(io.Discard, nil)), func(c *Config) { calls <- c })

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("app:\n  http:\n    port: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-calls:
		t.Fatalf("invalid config applied: %+v", c.App)
	case <-time.After(600 * time.Millisecond):
	}
}
