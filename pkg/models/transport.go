package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ServiceErrorBody is the JSON body the analysis service sends with a non-2xx status
type ServiceErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ImageUploadRequest carries an already encoded data URL for a slot
type ImageUploadRequest struct {
	DataURL string `json:"data_url" binding:"required"`
}

// ModeRequest switches the analysis mode
type ModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=single comparison"`
}

// SelectionRequest updates the method selection. A present Method sets the
// single-mode method, a present Methods replaces the comparison selection.
type SelectionRequest struct {
	Method  *string  `json:"method,omitempty"`
	Methods []string `json:"methods,omitempty"`
}

// ReconcileRequest answers the startup prompt about images from an earlier session
type ReconcileRequest struct {
	Keep *bool `json:"keep" binding:"required"`
}

// ReconcilePrompt describes the pending startup question, if any
type ReconcilePrompt struct {
	Pending  bool     `json:"pending"`
	Question string   `json:"question,omitempty"`
	Slots    []string `json:"slots,omitempty"`
}

// UnloadWarning is returned before the page is left
type UnloadWarning struct {
	Warn    bool   `json:"warn"`
	Message string `json:"message,omitempty"`
}
