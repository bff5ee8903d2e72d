package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go-motion-inspector/internal/aggregator"
	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/internal/repository"
	"go-motion-inspector/pkg/models"
)

// Failure labels used by comparison submissions
const (
	MetricsFailedMessage       = "Failed to get comparison metrics"
	VisualizationFailedMessage = "Failed to generate comparison visualization"
)

// Request is one validated submission
type Request struct {
	Pair    repository.ImagePair
	Methods []string
}

// Outcome is what a successful submission displays
type Outcome struct {
	Image *models.RenderedImage
	// Results holds the displayed entries: the chosen method in single mode,
	// the selected methods in selection order in comparison mode.
	Results *models.AggregatedComparison
	// All is the complete mapping returned by the service
	All      *models.AggregatedComparison
	Duration time.Duration
}

// SubmissionStrategy runs the remote operations of one analysis mode
type SubmissionStrategy interface {
	Execute(ctx context.Context, req Request) (*Outcome, error)
	GetStrategyName() string
}

// SingleStrategy renders one method and reads its metrics from the
// comparison endpoint.
type SingleStrategy struct {
	service repository.AnalysisService
}

// NewSingleStrategy creates a new single method strategy
func NewSingleStrategy(service repository.AnalysisService) SubmissionStrategy {
	return &SingleStrategy{service: service}
}

// Execute issues both calls concurrently; either failing fails the submission
func (s *SingleStrategy) Execute(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Methods) != 1 || req.Methods[0] == "" {
		return nil, apperrors.NewValidationError("Please select a method for analysis", nil)
	}
	method := req.Methods[0]
	start := time.Now()

	var (
		img *models.RenderedImage
		all *models.AggregatedComparison
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		img, err = s.service.RenderSingle(gctx, req.Pair, method)
		return err
	})
	g.Go(func() error {
		var err error
		all, err = s.service.CompareMethods(gctx, req.Pair)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := models.NewAggregatedComparison()
	if r, ok := all.Get(method); ok {
		results.Set(method, r)
	} else {
		logger.WithFields(logrus.Fields{
			"method":  method,
			"entries": all.Len(),
		}).Warn("Comparison response has no entry for the chosen method")
	}

	return &Outcome{Image: img, Results: results, All: all, Duration: time.Since(start)}, nil
}

// GetStrategyName returns the strategy name
func (s *SingleStrategy) GetStrategyName() string {
	return "single"
}

// ComparisonStrategy fetches every method's metrics and a composite
// visualization of the selected ones.
type ComparisonStrategy struct {
	service repository.AnalysisService
}

// NewComparisonStrategy creates a new comparison strategy
func NewComparisonStrategy(service repository.AnalysisService) SubmissionStrategy {
	return &ComparisonStrategy{service: service}
}

// Execute issues both calls concurrently and keeps only the selected entries
func (s *ComparisonStrategy) Execute(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Methods) == 0 {
		return nil, apperrors.NewValidationError("Please select at least one method for comparison", nil)
	}
	start := time.Now()

	var (
		img *models.RenderedImage
		all *models.AggregatedComparison
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.service.CompareMethods(gctx, req.Pair)
		return relabel(err, MetricsFailedMessage)
	})
	g.Go(func() error {
		var err error
		img, err = s.service.VisualizeComparison(gctx, req.Pair, req.Methods)
		return relabel(err, VisualizationFailedMessage)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := aggregator.FilterToSelected(all, req.Methods)
	return &Outcome{Image: img, Results: results, All: all, Duration: time.Since(start)}, nil
}

// GetStrategyName returns the strategy name
func (s *ComparisonStrategy) GetStrategyName() string {
	return "comparison"
}

// relabel gives a remote failure a fixed user-facing message, keeping the
// service's own text as details.
func relabel(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return apperrors.NewNetworkError(message, err)
	}
	out := *appErr
	out.Message = message
	out.Details = appErr.Message
	out.Cause = err
	return &out
}
