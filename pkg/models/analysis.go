package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MethodListing is the body of the service's available-methods endpoint
type MethodListing struct {
	CustomMethods  []string `json:"custom_methods"`
	LibraryMethods []string `json:"library_methods"`
}

// MethodResult is one method's entry in the compare-methods response.
// Name is not part of the wire entry; it is filled from the mapping key.
type MethodResult struct {
	Name              string             `json:"-"`
	Category          string             `json:"category,omitempty"`
	Success           bool               `json:"success"`
	ExecutionTime     float64            `json:"execution_time"`
	Statistics        map[string]float64 `json:"statistics"`
	ComparisonMetrics map[string]float64 `json:"comparison_metrics,omitempty"`
	Error             string             `json:"error,omitempty"`
}

// Statistic returns a named scalar statistic and whether it was reported
func (r MethodResult) Statistic(name string) (float64, bool) {
	v, ok := r.Statistics[name]
	return v, ok
}

// Well-known statistic and comparison metric keys
const (
	StatMeanMagnitude = "mean_magnitude"
	StatMaxMagnitude  = "max_magnitude"

	MetricMSE           = "mse"
	MetricMAE           = "mae"
	MetricEndpointError = "endpoint_error"
	MetricAngularError  = "angular_error"
)

// AggregatedComparison is a method-name keyed mapping of results that keeps
// insertion order. The zero value is an empty, usable mapping.
type AggregatedComparison struct {
	keys    []string
	entries map[string]MethodResult
}

// NewAggregatedComparison creates an empty mapping
func NewAggregatedComparison() *AggregatedComparison {
	return &AggregatedComparison{entries: make(map[string]MethodResult)}
}

// Set inserts or replaces an entry. Replacing keeps the original position.
func (a *AggregatedComparison) Set(name string, result MethodResult) {
	if a.entries == nil {
		a.entries = make(map[string]MethodResult)
	}
	if _, exists := a.entries[name]; !exists {
		a.keys = append(a.keys, name)
	}
	result.Name = name
	a.entries[name] = result
}

// Get returns the entry for name
func (a *AggregatedComparison) Get(name string) (MethodResult, bool) {
	if a == nil {
		return MethodResult{}, false
	}
	r, ok := a.entries[name]
	return r, ok
}

// Keys returns the method names in insertion order
func (a *AggregatedComparison) Keys() []string {
	if a == nil {
		return nil
	}
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of entries
func (a *AggregatedComparison) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Results returns the entries in insertion order
func (a *AggregatedComparison) Results() []MethodResult {
	if a == nil {
		return nil
	}
	out := make([]MethodResult, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, a.entries[k])
	}
	return out
}

// MarshalJSON writes the mapping as a JSON object in insertion order
func (a *AggregatedComparison) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if a != nil {
		for i, k := range a.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(a.entries[k])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of method results, keeping the key order
// the service sent.
func (a *AggregatedComparison) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("comparison response must be a JSON object, got %v", tok)
	}

	out := NewAggregatedComparison()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}
		var result MethodResult
		if err := dec.Decode(&result); err != nil {
			return fmt.Errorf("method %q: %w", name, err)
		}
		out.Set(name, result)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = *out
	return nil
}

// RenderedImage is a binary visualization returned by the service
type RenderedImage struct {
	ContentType string
	Data        []byte
}

// ImageData is a decoded input image ready to be sent as a multipart part
type ImageData struct {
	MimeType string
	Data     []byte
}

// Extension returns a file extension matching the mime type
func (d ImageData) Extension() string {
	switch d.MimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".png"
	}
}
