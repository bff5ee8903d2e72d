package models

import "time"

// NoticeLevel is the severity of a user-facing notification
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is one toast shown to the user
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// MetricValue is a named, already formatted metric
type MetricValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MethodSummary is one row of the comparison method list
type MethodSummary struct {
	Name              string        `json:"name"`
	Category          string        `json:"category"`
	Status            string        `json:"status"`
	Success           bool          `json:"success"`
	ExecutionTime     string        `json:"execution_time,omitempty"`
	MeanMagnitude     string        `json:"mean_magnitude,omitempty"`
	ComparisonMetrics []MetricValue `json:"comparison_metrics,omitempty"`
	Error             string        `json:"error,omitempty"`
}

// ChartSeries is the execution-time bar chart data
type ChartSeries struct {
	Title  string    `json:"title"`
	Label  string    `json:"label"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Colors []string  `json:"colors"`
}

// MetricsPanel is the single-method metrics display
type MetricsPanel struct {
	Method        string `json:"method"`
	ExecutionTime string `json:"execution_time"`
	MeanMagnitude string `json:"mean_magnitude"`
	MaxMagnitude  string `json:"max_magnitude"`
}

// ComparisonView is the comparison-mode metrics display
type ComparisonView struct {
	Chart   ChartSeries     `json:"chart"`
	Methods []MethodSummary `json:"methods"`
}

// PreviewView describes one slot preview
type PreviewView struct {
	Slot     string `json:"slot"`
	Visible  bool   `json:"visible"`
	MimeType string `json:"mime_type,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
}

// ResultView describes the rendered result image currently displayed
type ResultView struct {
	Kind        string `json:"kind"`
	Handle      string `json:"handle"`
	ContentType string `json:"content_type"`
	Bytes       int    `json:"bytes"`
}

// ViewState is everything the page displays
type ViewState struct {
	Mode                string          `json:"mode"`
	State               string          `json:"state"`
	Busy                bool            `json:"busy"`
	InputsReset         int             `json:"inputs_reset"`
	PreviewPanelVisible bool            `json:"preview_panel_visible"`
	Previews            []PreviewView   `json:"previews"`
	Result              *ResultView     `json:"result,omitempty"`
	SingleMetrics       *MetricsPanel   `json:"single_metrics,omitempty"`
	Comparison          *ComparisonView `json:"comparison,omitempty"`
	Notices             []Notice        `json:"notices"`
}
