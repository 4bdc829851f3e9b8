package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkharvest/internal/config"
)

// TestNewServeCmd tests the serve command creation.
func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()

	if cmd.Use != "serve" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}
	for _, name := range []string{"addr", "log-json", "max-links-limit", "max-links", "redis-prefix", "delay", "store", "db-dir", "output"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %q to exist", name)
		}
	}
	if f := cmd.Flags().Lookup("batch"); f != nil {
		t.Error("batch flag should not exist on serve")
	}
}

// TestListenAddress tests listen address resolution.
// Not parallel: modifies the PORT environment variable.
func TestListenAddress(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		if got := listenAddress("127.0.0.1:9000"); got != "127.0.0.1:9000" {
			t.Errorf("expected flag address, got %q", got)
		}
	})

	t.Run("uses PORT", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		if got := listenAddress(""); got != ":8080" {
			t.Errorf("expected :8080, got %q", got)
		}
	})

	t.Run("falls back to default", func(t *testing.T) {
		t.Setenv("PORT", "")
		if got := listenAddress(""); got != config.DefaultListenAddress {
			t.Errorf("expected %q, got %q", config.DefaultListenAddress, got)
		}
	})
}

// TestRunServeCmd tests starting and stopping the server.
func TestRunServeCmd(t *testing.T) {
	t.Parallel()

	t.Run("rejects invalid crawl settings", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		_, err := executeRoot(t, "serve",
			"--max-links", "0",
			"--db-dir", dir,
			"--config", writeEmptyConfig(dir),
		)
		if !errors.Is(err, config.ErrInvalidMaxLinks) {
			t.Errorf("expected ErrInvalidMaxLinks, got %v", err)
		}
	})

	t.Run("rejects a form limit below the default link count", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		_, err := executeRoot(t, "serve",
			"--max-links", "50",
			"--max-links-limit", "20",
			"--db-dir", dir,
			"--config", writeEmptyConfig(dir),
		)
		if !errors.Is(err, config.ErrInvalidMaxLinks) {
			t.Errorf("expected ErrInvalidMaxLinks, got %v", err)
		}
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		var stdout, stderr bytes.Buffer
		root := NewRootCmd()
		root.SetOut(&stdout)
		root.SetErr(&stderr)
		root.SetArgs([]string{"serve",
			"--addr", "127.0.0.1:0",
			"--log-json",
			"--db-dir", dir,
			"--output", filepath.Join(dir, "output_links.txt"),
			"--config", writeEmptyConfig(dir),
		})

		if err := root.ExecuteContext(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout.String(), "Serving linkharvest on http://127.0.0.1:") {
			t.Errorf("expected listen address, got %q", stdout.String())
		}
	})
}
