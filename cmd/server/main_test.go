package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-testlab/internal/platform/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Store:  config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "testlab.db"), Namespace: "default"},
		Log:    config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, cleanup, err := newServer(t.Context(), testConfig(t))
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}
	defer cleanup()

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			srv.Handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestNewServer_PersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	body := `{"answers":{"q-001-1":"q-001-1-c","q-001-2":"q-001-2-b","q-001-3":"q-001-3-a","q-001-4":"q-001-4-c"}}`

	srv, cleanup, err := newServer(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/exercises/ex-001/submissions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, body %s", rec.Code, rec.Body)
	}
	cleanup()

	srv, cleanup, err = newServer(t.Context(), cfg)
	if err != nil {
		t.Fatalf("newServer() restart error = %v", err)
	}
	defer cleanup()

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/badges", nil))
	var badges []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &badges); err != nil {
		t.Fatalf("decode badges: %v", err)
	}
	if len(badges) != 1 || badges[0].ID != "badge-technique-001" {
		t.Errorf("badges after restart = %+v", badges)
	}
}

func TestNewServer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing catalog dir", func(c *config.Config) { c.CatalogPath = filepath.Join(t.TempDir(), "nope") }},
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "etcd" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if _, _, err := newServer(t.Context(), cfg); err == nil {
				t.Fatal("newServer() should fail")
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	if _, err := loadCatalog(""); err != nil {
		t.Fatalf("loadCatalog(embedded) error = %v", err)
	}

	dir := t.TempDir()
	content := "categories:\n  - id: cat\n    name: Cat\n    description: d\n"
	if err := os.WriteFile(filepath.Join(dir, "c.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := loadCatalog(dir)
	if err != nil {
		t.Fatalf("loadCatalog(dir) error = %v", err)
	}
	if len(c.Categories()) != 1 {
		t.Errorf("Categories() = %d, want 1", len(c.Categories()))
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LogConfig
		wantJSON bool
		wantInfo bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, true, true},
		{"text debug", config.LogConfig{Level: "debug", Format: "text"}, false, true},
		{"json warn drops info", config.LogConfig{Level: "warn", Format: "json"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newLogger(tt.cfg, &buf).Info("hello", "k", "v")

			out := buf.String()
			if tt.wantInfo != (out != "") {
				t.Fatalf("info logged = %v, want %v (%q)", out != "", tt.wantInfo, out)
			}
			if tt.wantInfo && tt.wantJSON != strings.HasPrefix(out, "{") {
				t.Errorf("output %q, wantJSON %v", out, tt.wantJSON)
			}
		})
	}
}
