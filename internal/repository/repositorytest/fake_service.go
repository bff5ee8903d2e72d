// Package repositorytest provides an in-memory AnalysisService for tests.
package repositorytest

import (
	"context"
	"sync"

	"go-motion-inspector/internal/repository"
	"go-motion-inspector/pkg/models"
)

// PNG is a valid 1x1 PNG image
var PNG = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

// FakeService answers from its fields. Gate, when set, blocks the
// comparison call until it is closed or the context ends.
type FakeService struct {
	mu sync.Mutex

	Listing    *models.MethodListing
	ListingErr error

	Comparison    *models.AggregatedComparison
	ComparisonErr error

	RenderErr    error
	VisualizeErr error

	Gate chan struct{}

	calls        map[string]int
	lastMethod   string
	lastSelected []string
}

var _ repository.AnalysisService = (*FakeService)(nil)

// Rendered is the image every render call returns
func Rendered() *models.RenderedImage {
	return &models.RenderedImage{ContentType: "image/png", Data: PNG}
}

func (f *FakeService) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// Calls returns how often op was invoked
func (f *FakeService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of remote calls of any kind
func (f *FakeService) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// LastMethod returns the method of the last RenderSingle call
func (f *FakeService) LastMethod() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastMethod
}

// LastSelected returns the selection of the last VisualizeComparison call
func (f *FakeService) LastSelected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lastSelected...)
}

func (f *FakeService) AvailableMethods(ctx context.Context) (*models.MethodListing, error) {
	f.record("available_methods")
	if f.ListingErr != nil {
		return nil, f.ListingErr
	}
	return f.Listing, nil
}

func (f *FakeService) RenderSingle(ctx context.Context, pair repository.ImagePair, method string) (*models.RenderedImage, error) {
	f.record("render_single")
	f.mu.Lock()
	f.lastMethod = method
	f.mu.Unlock()
	if f.RenderErr != nil {
		return nil, f.RenderErr
	}
	return Rendered(), nil
}

func (f *FakeService) CompareMethods(ctx context.Context, pair repository.ImagePair) (*models.AggregatedComparison, error) {
	f.record("compare_methods")
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.ComparisonErr != nil {
		return nil, f.ComparisonErr
	}
	if f.Comparison == nil {
		return models.NewAggregatedComparison(), nil
	}
	return f.Comparison, nil
}

func (f *FakeService) VisualizeComparison(ctx context.Context, pair repository.ImagePair, selected []string) (*models.RenderedImage, error) {
	f.record("visualize_comparison")
	f.mu.Lock()
	f.lastSelected = append([]string(nil), selected...)
	f.mu.Unlock()
	if f.VisualizeErr != nil {
		return nil, f.VisualizeErr
	}
	return Rendered(), nil
}
