package repository

import (
	"context"

	"go-motion-inspector/pkg/models"
)

// ImagePair is the two input images of one analysis
type ImagePair struct {
	Image1 models.ImageData
	Image2 models.ImageData
}

// AnalysisService defines the remote motion-analysis service consumed by the console
type AnalysisService interface {
	// AvailableMethods lists the selectable methods by category
	AvailableMethods(ctx context.Context) (*models.MethodListing, error)

	// RenderSingle returns the rendered visualization for one method
	RenderSingle(ctx context.Context, pair ImagePair, method string) (*models.RenderedImage, error)

	// CompareMethods runs every method and returns the per-method results
	CompareMethods(ctx context.Context, pair ImagePair) (*models.AggregatedComparison, error)

	// VisualizeComparison returns a composite visualization for the selected methods
	VisualizeComparison(ctx context.Context, pair ImagePair, selected []string) (*models.RenderedImage, error)
}
