package presentation

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"go-motion-inspector/pkg/models"
)

// TextRenderer renders the displayed view as plain text tables
type TextRenderer struct {
	Style table.Style
}

func NewTextRenderer() *TextRenderer {
	return &TextRenderer{Style: table.StyleRounded}
}

// RenderComparison renders one row per method summary
func (r *TextRenderer) RenderComparison(view models.ComparisonView) string {
	if len(view.Methods) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(r.Style)
	tw.SetTitle(view.Chart.Title)
	tw.AppendHeader(table.Row{"Method", "Category", "Status", "Time", "Mean Magnitude", "Metrics"})

	for _, m := range view.Methods {
		metrics := make([]string, 0, len(m.ComparisonMetrics))
		for _, mv := range m.ComparisonMetrics {
			metrics = append(metrics, fmt.Sprintf("%s=%s", mv.Name, mv.Value))
		}
		detail := strings.Join(metrics, " ")
		if !m.Success {
			detail = m.Error
		}
		tw.AppendRow(table.Row{m.Name, m.Category, m.Status, m.ExecutionTime, m.MeanMagnitude, detail})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// RenderSingle renders the single-method metrics panel
func (r *TextRenderer) RenderSingle(panel models.MetricsPanel) string {
	tw := table.NewWriter()
	tw.SetStyle(r.Style)
	tw.SetTitle(panel.Method)
	tw.AppendHeader(table.Row{"Metric", "Value"})
	tw.AppendRows([]table.Row{
		{"Execution Time", panel.ExecutionTime},
		{"Mean Magnitude", panel.MeanMagnitude},
		{"Max Magnitude", panel.MaxMagnitude},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// Render renders whichever metrics the view currently shows
func (r *TextRenderer) Render(state models.ViewState) string {
	switch {
	case state.SingleMetrics != nil:
		return r.RenderSingle(*state.SingleMetrics)
	case state.Comparison != nil:
		return r.RenderComparison(*state.Comparison)
	default:
		return ""
	}
}
