package validation

import (
	"errors"
	"testing"

	apperrors "go-motion-inspector/internal/errors"
)

func TestServiceURLValidator_ValidURLs(t *testing.T) {
	validator := NewServiceURLValidator()

	validURLs := []string{
		"http://127.0.0.1:8000",
		"https://motion.example.com",
		"https://motion.example.com/api/v1",
		"http://analysis:8000",
	}

	for _, url := range validURLs {
		if err := validator.Validate(url); err != nil {
			t.Errorf("Expected valid URL %s to pass validation, got error: %v", url, err)
		}
	}
}

func TestServiceURLValidator_Rejections(t *testing.T) {
	validator := NewServiceURLValidator()

	tests := []struct {
		name    string
		url     string
		message string
	}{
		{"empty", "", "URL cannot be empty"},
		{"blank", "   ", "URL cannot be empty"},
		{"ftp scheme", "ftp://example.com", "URL scheme not allowed"},
		{"data url", "data:image/png;base64,AAAA", "URL scheme not allowed"},
		{"no host", "http://", "URL must have a valid host"},
		{"no host with path", "http:///path", "URL must have a valid host"},
		{"query", "http://example.com/?debug=1", "URL must not carry a query or fragment"},
		{"fragment", "http://example.com/#top", "URL must not carry a query or fragment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.url)
			if err == nil {
				t.Fatalf("Expected %q to fail validation", tt.url)
			}
			var appErr *apperrors.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("Expected AppError, got: %T", err)
			}
			if appErr.Message != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, appErr.Message)
			}
		})
	}
}

func TestServiceURLValidator_AllowedHosts(t *testing.T) {
	validator := NewServiceURLValidator(" Motion.example.com ", "")

	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://motion.example.com:8443", true},
		{"http://MOTION.example.com/api", true},
		{"https://elsewhere.example.com", false},
		{"http://127.0.0.1:8000", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := validator.Validate(tt.url)
			if tt.allowed && err != nil {
				t.Errorf("Expected %s to pass, got %v", tt.url, err)
			}
			if !tt.allowed && err == nil {
				t.Errorf("Expected %s to be rejected", tt.url)
			}
		})
	}
}
