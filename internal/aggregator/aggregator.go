package aggregator

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	"go-motion-inspector/pkg/models"
)

// Display constants of the comparison view
const (
	ChartTitle = "Execution Time Comparison"
	ChartLabel = "Execution Time (s)"

	ColorCustom  = "#0d6efd"
	ColorLibrary = "#198754"

	CategoryCustom = "Custom"

	StatusSuccess = "Success"
	StatusFailed  = "Failed"

	UnknownError = "Unknown error"
	NotAvailable = "N/A"
	Placeholder  = "-"
)

// metricOrder is the display order of well-known comparison metrics.
// Any other metric follows in name order.
var metricOrder = []string{
	models.MetricMSE,
	models.MetricMAE,
	models.MetricEndpointError,
	models.MetricAngularError,
}

var qualifierSuffix = regexp.MustCompile(` \(.*\)`)

// DecodeComparison reads a compare-methods body, keeping the key order the
// service sent.
func DecodeComparison(r io.Reader) (*models.AggregatedComparison, error) {
	agg := models.NewAggregatedComparison()
	if err := json.NewDecoder(r).Decode(agg); err != nil {
		return nil, err
	}
	return agg, nil
}

// FilterToSelected keeps only the selected methods present in all, in
// selection order.
func FilterToSelected(all *models.AggregatedComparison, selected []string) *models.AggregatedComparison {
	out := models.NewAggregatedComparison()
	for _, name := range selected {
		if r, ok := all.Get(name); ok {
			out.Set(name, r)
		}
	}
	return out
}

// ChartLabelFor strips a trailing " (qualifier)" from a method name
func ChartLabelFor(name string) string {
	return qualifierSuffix.ReplaceAllString(name, "")
}

// ColorFor returns the bar color of a category
func ColorFor(category string) string {
	if category == CategoryCustom {
		return ColorCustom
	}
	return ColorLibrary
}

// ToChartSeries builds the execution time bar chart. Failed entries plot
// whatever time they report, normally zero.
func ToChartSeries(agg *models.AggregatedComparison) models.ChartSeries {
	series := models.ChartSeries{
		Title:  ChartTitle,
		Label:  ChartLabel,
		Labels: []string{},
		Values: []float64{},
		Colors: []string{},
	}
	for _, r := range agg.Results() {
		series.Labels = append(series.Labels, ChartLabelFor(r.Name))
		series.Values = append(series.Values, r.ExecutionTime)
		series.Colors = append(series.Colors, ColorFor(r.Category))
	}
	return series
}

// ToMethodSummaries builds one display row per entry, in mapping order
func ToMethodSummaries(agg *models.AggregatedComparison) []models.MethodSummary {
	out := make([]models.MethodSummary, 0, agg.Len())
	for _, r := range agg.Results() {
		s := models.MethodSummary{
			Name:     r.Name,
			Category: r.Category,
			Success:  r.Success,
		}
		if !r.Success {
			s.Status = StatusFailed
			s.Error = r.Error
			if s.Error == "" {
				s.Error = UnknownError
			}
			out = append(out, s)
			continue
		}

		s.Status = StatusSuccess
		s.ExecutionTime = FormatSeconds(r.ExecutionTime)
		s.MeanMagnitude = NotAvailable
		if mean, ok := r.Statistic(models.StatMeanMagnitude); ok {
			s.MeanMagnitude = FormatMagnitude(mean)
		}
		s.ComparisonMetrics = orderedMetrics(r.ComparisonMetrics)
		out = append(out, s)
	}
	return out
}

// ToComparisonView combines the chart and the method rows
func ToComparisonView(agg *models.AggregatedComparison) models.ComparisonView {
	return models.ComparisonView{
		Chart:   ToChartSeries(agg),
		Methods: ToMethodSummaries(agg),
	}
}

// SingleMetrics builds the single-method panel; missing statistics show a
// placeholder.
func SingleMetrics(r models.MethodResult) models.MetricsPanel {
	panel := models.MetricsPanel{
		Method:        r.Name,
		ExecutionTime: FormatSeconds(r.ExecutionTime),
		MeanMagnitude: Placeholder,
		MaxMagnitude:  Placeholder,
	}
	if mean, ok := r.Statistic(models.StatMeanMagnitude); ok {
		panel.MeanMagnitude = FormatMagnitude(mean)
	}
	if peak, ok := r.Statistic(models.StatMaxMagnitude); ok {
		panel.MaxMagnitude = FormatMagnitude(peak)
	}
	return panel
}

// FormatSeconds renders an execution time the way the service reported it
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}

// FormatMagnitude renders a magnitude with two decimals
func FormatMagnitude(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func orderedMetrics(metrics map[string]float64) []models.MetricValue {
	if len(metrics) == 0 {
		return nil
	}
	out := make([]models.MetricValue, 0, len(metrics))
	seen := make(map[string]bool, len(metricOrder))
	for _, name := range metricOrder {
		if v, ok := metrics[name]; ok {
			out = append(out, models.MetricValue{Name: name, Value: strconv.FormatFloat(v, 'f', -1, 64)})
			seen[name] = true
		}
	}

	rest := make([]string, 0, len(metrics))
	for name := range metrics {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		out = append(out, models.MetricValue{Name: name, Value: strconv.FormatFloat(metrics[name], 'f', -1, 64)})
	}
	return out
}
