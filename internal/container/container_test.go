package container

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-motion-inspector/internal/config"
	"go-motion-inspector/internal/repository"
	"go-motion-inspector/internal/repository/repositorytest"
	"go-motion-inspector/pkg/models"
)

func newTestConfig(serviceURL string) *config.Config {
	cfg := config.Defaults()
	cfg.ServiceBaseURL = serviceURL
	cfg.ServiceTimeout = 2 * time.Second
	cfg.ReconcilePolicy = config.ReconcileDiscard
	return cfg
}

func TestContainer_StartAndShutdown(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != repository.PathAvailableMethods {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(models.MethodListing{CustomMethods: []string{"SSD"}})
	}))
	defer service.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewContainer(ctx, newTestConfig(service.URL))
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !c.orchestrator.Started() {
		t.Error("Expected the console to be started")
	}
	if got := c.catalog.Listing().CustomMethods; len(got) != 1 || got[0] != "SSD" {
		t.Errorf("Unexpected catalog: %v", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 from health, got %d", rec.Code)
	}

	if err := c.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestContainer_StartsWithUnavailableCatalog(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer service.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := NewContainer(ctx, newTestConfig(service.URL))
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(c.catalog.All()) != 0 || c.catalog.Err() == nil {
		t.Error("Expected an empty catalog with a load error")
	}
}

func TestNewContainer_UnknownStorage(t *testing.T) {
	cfg := newTestConfig("http://127.0.0.1:8000")
	cfg.StorageBackend = "tape"
	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Error("Expected an error for an unknown storage backend")
	}
}

func TestContainer_OversizedImageIsRejectedByValidator(t *testing.T) {
	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.MethodListing{CustomMethods: []string{"SSD"}})
	}))
	defer service.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg := newTestConfig(service.URL)
	cfg.MaxRequestBodySize = 16 * 1024
	c, err := NewContainer(ctx, cfg)
	if err != nil {
		t.Fatalf("NewContainer failed: %v", err)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Shutdown(ctx)

	upload := func(size int) *httptest.ResponseRecorder {
		img := make([]byte, size)
		copy(img, repositorytest.PNG)
		body, _ := json.Marshal(models.ImageUploadRequest{
			DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
		})
		req := httptest.NewRequest(http.MethodPut, "/api/images/image1", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, req)
		return rec
	}

	tests := []struct {
		name     string
		size     int
		expected int
		message  string
	}{
		{"fits", cfg.MaxImageBytes(), http.StatusOK, ""},
		{"decoded image too large", cfg.MaxImageBytes() + 600, http.StatusBadRequest, "Payload is too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(tt.size)
			if rec.Code != tt.expected {
				t.Fatalf("Expected %d, got %d (%s)", tt.expected, rec.Code, rec.Body.String())
			}
			if tt.message == "" {
				return
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode error: %v", err)
			}
			if resp.Message != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, resp.Message)
			}
		})
	}
}
