package validation

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	apperrors "go-motion-inspector/internal/errors"
)

// Valid minimal PNG data for 1x1 transparent pixel
var pngData = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, // PNG signature
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, // 1x1 dimensions
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, // bit depth, color type, etc.
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41, // IDAT chunk start
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00, // compressed data
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00, // compressed data end
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE, // IEND chunk
	0x42, 0x60, 0x82,
}

func pngDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)
}

func TestPayloadValidator_EncodeValidateRoundTrip(t *testing.T) {
	v := NewPayloadValidator(0)

	dataURL, err := v.Encode(pngData)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.HasPrefix(dataURL, "data:image/png;base64,") {
		t.Errorf("Unexpected data URL prefix: %.40s", dataURL)
	}

	img, err := v.Validate(dataURL)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if img.MimeType != "image/png" {
		t.Errorf("Expected image/png, got %s", img.MimeType)
	}
	if !bytes.Equal(img.Data, pngData) {
		t.Error("Decoded bytes differ from the original")
	}
	if img.Extension() != ".png" {
		t.Errorf("Expected .png extension, got %s", img.Extension())
	}
}

func TestPayloadValidator_Rejections(t *testing.T) {
	v := NewPayloadValidator(0)
	text := base64.StdEncoding.EncodeToString([]byte("definitely not an image"))

	tests := []struct {
		name    string
		payload string
		message string
	}{
		{"not a data url", "image1.png", "Payload must be a data URL"},
		{"no comma", "data:image/png;base64", "Payload data URL has no data section"},
		{"not base64 flagged", "data:image/png," + text, "Payload data URL must be base64 encoded"},
		{"declared non image", "data:text/plain;base64," + text, "Payload is not an image"},
		{"bad base64", "data:image/png;base64,@@@", "Payload is not valid base64"},
		{"empty data", "data:image/png;base64,", "Payload is empty"},
		{"sniffed non image", "data:image/png;base64," + text, "Payload is not an image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate(tt.payload)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error type, got %v", err)
			}
			if apperrors.UserMessage(err) != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, apperrors.UserMessage(err))
			}
		})
	}
}

func TestPayloadValidator_MaxBytes(t *testing.T) {
	v := NewPayloadValidator(10)

	if _, err := v.Validate(pngDataURL()); err == nil {
		t.Error("Expected oversized payload to be rejected")
	}
	if _, err := v.Encode(pngData); err == nil {
		t.Error("Expected oversized file to be rejected")
	}
}

func TestPayloadValidator_EncodeRejectsNonImage(t *testing.T) {
	v := NewPayloadValidator(0)

	if _, err := v.Encode([]byte("%PDF-1.4 not an image")); err == nil {
		t.Error("Expected non-image file to be rejected")
	}
	if _, err := v.Encode(nil); err == nil {
		t.Error("Expected empty file to be rejected")
	}
}
