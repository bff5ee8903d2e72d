package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/pkg/models"
)

var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func testPair() ImagePair {
	img := models.ImageData{MimeType: "image/png", Data: pngBytes}
	return ImagePair{Image1: img, Image2: img}
}

func newTestService(t *testing.T, handler http.HandlerFunc) *HTTPAnalysisService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewHTTPAnalysisService(server.URL+"/", Options{Timeout: 5 * time.Second})
}

func TestAvailableMethods(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != PathAvailableMethods {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"custom_methods":["LucasKanade (Custom)"],"library_methods":["Farneback"]}`)
	})

	listing, err := svc.AvailableMethods(context.Background())
	if err != nil {
		t.Fatalf("AvailableMethods failed: %v", err)
	}
	if len(listing.CustomMethods) != 1 || listing.CustomMethods[0] != "LucasKanade (Custom)" {
		t.Errorf("Unexpected custom methods: %v", listing.CustomMethods)
	}
	if len(listing.LibraryMethods) != 1 || listing.LibraryMethods[0] != "Farneback" {
		t.Errorf("Unexpected library methods: %v", listing.LibraryMethods)
	}
}

func TestRenderSingle_SendsMultipartFields(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathSingleMethod {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm failed: %v", err)
		}
		if got := r.FormValue("method_name"); got != "Farneback" {
			t.Errorf("Expected method_name Farneback, got %q", got)
		}
		for _, field := range []string{"image1", "image2"} {
			file, header, err := r.FormFile(field)
			if err != nil {
				t.Fatalf("Missing part %s: %v", field, err)
			}
			file.Close()
			if header.Filename != field+".png" {
				t.Errorf("Unexpected filename %q", header.Filename)
			}
			if header.Header.Get("Content-Type") != "image/png" {
				t.Errorf("Unexpected part content type %q", header.Header.Get("Content-Type"))
			}
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	})

	img, err := svc.RenderSingle(context.Background(), testPair(), "Farneback")
	if err != nil {
		t.Fatalf("RenderSingle failed: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("Expected image/png, got %s", img.ContentType)
	}
	if len(img.Data) != len(pngBytes) {
		t.Errorf("Expected %d bytes, got %d", len(pngBytes), len(img.Data))
	}
}

func TestCompareMethods_PreservesOrder(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"Zeta": {"success": true, "execution_time": 0.5, "statistics": {"mean_magnitude": 1}},
			"Alpha": {"success": false, "execution_time": 0, "statistics": {}, "error": "boom"}
		}`)
	})

	agg, err := svc.CompareMethods(context.Background(), testPair())
	if err != nil {
		t.Fatalf("CompareMethods failed: %v", err)
	}
	keys := agg.Keys()
	if len(keys) != 2 || keys[0] != "Zeta" || keys[1] != "Alpha" {
		t.Errorf("Expected service order [Zeta Alpha], got %v", keys)
	}
	alpha, _ := agg.Get("Alpha")
	if alpha.Success || alpha.Error != "boom" || alpha.Name != "Alpha" {
		t.Errorf("Unexpected Alpha entry: %+v", alpha)
	}
}

func TestVisualizeComparison_SendsSelectionAsJSONArray(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm failed: %v", err)
		}
		var selected []string
		if err := json.Unmarshal([]byte(r.FormValue("selected_methods")), &selected); err != nil {
			t.Fatalf("selected_methods is not a JSON array: %v", err)
		}
		if len(selected) != 2 || selected[0] != "B" || selected[1] != "A" {
			t.Errorf("Unexpected selection %v", selected)
		}
		w.Write(pngBytes)
	})

	img, err := svc.VisualizeComparison(context.Background(), testPair(), []string{"B", "A"})
	if err != nil {
		t.Fatalf("VisualizeComparison failed: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("Expected sniffed image/png, got %s", img.ContentType)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		call        func(*HTTPAnalysisService) error
		wantType    apperrors.ErrorType
		wantMessage string
		wantStatus  bool
	}{
		{
			name: "error status with error field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, `{"error":"X"}`)
			},
			call: func(s *HTTPAnalysisService) error {
				_, err := s.RenderSingle(context.Background(), testPair(), "A")
				return err
			},
			wantType:    apperrors.ErrorTypeNetwork,
			wantMessage: "X",
			wantStatus:  true,
		},
		{
			name: "error status with detail field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				io.WriteString(w, `{"detail":"bad method"}`)
			},
			call: func(s *HTTPAnalysisService) error {
				_, err := s.CompareMethods(context.Background(), testPair())
				return err
			},
			wantType:    apperrors.ErrorTypeNetwork,
			wantMessage: "bad method",
			wantStatus:  true,
		},
		{
			name: "error status without body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			call: func(s *HTTPAnalysisService) error {
				_, err := s.AvailableMethods(context.Background())
				return err
			},
			wantType:    apperrors.ErrorTypeNetwork,
			wantMessage: "HTTP 502",
			wantStatus:  true,
		},
		{
			name: "comparison body is not an object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `[1,2,3]`)
			},
			call: func(s *HTTPAnalysisService) error {
				_, err := s.CompareMethods(context.Background(), testPair())
				return err
			},
			wantType:    apperrors.ErrorTypeMalformedResponse,
			wantMessage: "Malformed comparison response",
		},
		{
			name: "visualization body is not an image",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				io.WriteString(w, "definitely not an image")
			},
			call: func(s *HTTPAnalysisService) error {
				_, err := s.VisualizeComparison(context.Background(), testPair(), []string{"A"})
				return err
			},
			wantType:    apperrors.ErrorTypeMalformedResponse,
			wantMessage: "Visualization response is not an image",
		},
		{
			name: "listing is not JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "<html>")
			},
			call: func(s *HTTPAnalysisService) error {
				_, err := s.AvailableMethods(context.Background())
				return err
			},
			wantType:    apperrors.ErrorTypeMalformedResponse,
			wantMessage: "Malformed method listing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.handler)
			err := tt.call(svc)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("Expected %s error, got %v", tt.wantType, err)
			}
			if got := apperrors.UserMessage(err); got != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, got)
			}
			if tt.wantStatus != errors.Is(err, ErrServiceStatus) {
				t.Errorf("errors.Is(ErrServiceStatus) = %v, want %v", !tt.wantStatus, tt.wantStatus)
			}
		})
	}
}

func TestNoRetryOnFailure(t *testing.T) {
	calls := 0
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	if _, err := svc.CompareMethods(context.Background(), testPair()); err == nil {
		t.Fatal("Expected an error")
	}
	if calls != 1 {
		t.Errorf("Expected exactly one request, got %d", calls)
	}
}

func TestContextDeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.RenderSingle(ctx, testPair(), "A")
	if !apperrors.IsType(err, apperrors.ErrorTypeTimeout) {
		t.Errorf("Expected timeout error, got %v", err)
	}
}

func TestUnreachableServiceIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	svc := NewHTTPAnalysisService(url, Options{Timeout: time.Second})
	_, err := svc.AvailableMethods(context.Background())
	if !apperrors.IsType(err, apperrors.ErrorTypeNetwork) {
		t.Errorf("Expected network error, got %v", err)
	}
}
