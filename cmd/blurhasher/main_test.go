package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/api"
	"github.com/tendant/simple-blurhash/pkg/blurhasher/events/memory"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := NewRootCommand()

	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"serve", "bootstrap", "backfill", "hash"} {
		assert.True(t, names[want], want)
	}

	backfill, _, err := root.Find([]string{"backfill"})
	require.NoError(t, err)
	for _, flag := range []string{"force", "dry-run", "batch-size"} {
		assert.NotNil(t, backfill.Flags().Lookup(flag), flag)
	}
}

func TestBootstrapCommand_MemoryDatabase(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "memory")
	t.Setenv("RENDERER", "local")
	t.Setenv("STORAGE_LOCAL_ROOT", t.TempDir())

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"bootstrap"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "directus_files.blurhash")
}

func TestBackfillCommand_EmptyDatabase(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "memory")
	t.Setenv("RENDERER", "local")
	t.Setenv("STORAGE_LOCAL_ROOT", t.TempDir())

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"backfill", "--dry-run", "--batch-size", "10"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Found: 0")
}

func TestHashCommand_UnknownFileIsSkipped(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "memory")
	t.Setenv("RENDERER", "local")
	t.Setenv("STORAGE_LOCAL_ROOT", t.TempDir())

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash", "does-not-exist"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Skipped does-not-exist")
}

func TestServeRouter_Routes(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hooks := api.NewWebhookHandler(memory.NewBus(log), api.WithLogger(log))
	router := newServeRouter(hooks, log)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"liveness", http.MethodGet, "/healthz", http.StatusOK},
		{"readiness", http.MethodGet, "/healthz/ready", http.StatusOK},
		{"hook health", http.MethodGet, "/health", http.StatusOK},
		{"unknown event", http.MethodPost, "/hooks/files.delete", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"key":"f1"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
