package validation

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/pkg/models"
)

const dataURLPrefix = "data:"

// PayloadValidator checks that slot payloads are base64 data URLs holding an image
type PayloadValidator struct {
	maxBytes int
}

// NewPayloadValidator creates a validator rejecting decoded payloads above maxBytes.
// maxBytes <= 0 disables the size check.
func NewPayloadValidator(maxBytes int) *PayloadValidator {
	return &PayloadValidator{maxBytes: maxBytes}
}

// Validate parses a data URL and confirms the decoded bytes are an image.
// The detected mime type wins over the declared one.
func (v *PayloadValidator) Validate(dataURL string) (models.ImageData, error) {
	declared, encoded, err := splitDataURL(dataURL)
	if err != nil {
		return models.ImageData{}, err
	}

	if declared != "" && !strings.HasPrefix(declared, "image/") {
		return models.ImageData{}, apperrors.NewValidationError("Payload is not an image", nil).
			WithDetails("declared type " + declared)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return models.ImageData{}, apperrors.NewValidationError("Payload is not valid base64", err)
	}
	if len(data) == 0 {
		return models.ImageData{}, apperrors.NewValidationError("Payload is empty", nil)
	}
	if v.maxBytes > 0 && len(data) > v.maxBytes {
		return models.ImageData{}, apperrors.NewValidationError("Payload is too large", nil)
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return models.ImageData{}, apperrors.NewValidationError("Payload is not an image", nil).
			WithDetails("detected type " + detected.String())
	}

	return models.ImageData{MimeType: detected.String(), Data: data}, nil
}

// Encode turns raw file bytes into a data URL, refusing non-image content
func (v *PayloadValidator) Encode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.NewValidationError("Payload is empty", nil)
	}
	if v.maxBytes > 0 && len(data) > v.maxBytes {
		return "", apperrors.NewValidationError("Payload is too large", nil)
	}
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return "", apperrors.NewValidationError("Selected file is not an image", nil).
			WithDetails("detected type " + detected.String())
	}
	return dataURLPrefix + detected.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// splitDataURL returns the declared mime type and the base64 section
func splitDataURL(dataURL string) (string, string, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return "", "", apperrors.NewValidationError("Payload must be a data URL", nil)
	}
	header, encoded, found := strings.Cut(dataURL[len(dataURLPrefix):], ",")
	if !found {
		return "", "", apperrors.NewValidationError("Payload data URL has no data section", nil)
	}

	params := strings.Split(header, ";")
	if params[len(params)-1] != "base64" {
		return "", "", apperrors.NewValidationError("Payload data URL must be base64 encoded", nil)
	}
	return strings.ToLower(strings.TrimSpace(params[0])), encoded, nil
}
