package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/internal/repository"
	"go-motion-inspector/pkg/models"
)

type fakeService struct {
	repository.AnalysisService
	listing *models.MethodListing
	err     error
	calls   int
}

func (f *fakeService) AvailableMethods(ctx context.Context) (*models.MethodListing, error) {
	f.calls++
	return f.listing, f.err
}

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(level models.NoticeLevel, message string) {
	r.messages = append(r.messages, string(level)+":"+message)
}

func loaded(t *testing.T) *Catalog {
	t.Helper()
	svc := &fakeService{listing: &models.MethodListing{
		CustomMethods:  []string{"LucasKanade (Custom)", "HornSchunck (Custom)", "", "LucasKanade (Custom)"},
		LibraryMethods: []string{"Farneback", "DualTVL1", "HornSchunck (Custom)"},
	}}
	c := New(svc, &recordingNotifier{})
	if _, err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return c
}

func TestLoad_DropsEmptyAndDuplicateNames(t *testing.T) {
	c := loaded(t)

	listing := c.Listing()
	if got := strings.Join(listing.CustomMethods, "|"); got != "LucasKanade (Custom)|HornSchunck (Custom)" {
		t.Errorf("Unexpected custom methods %s", got)
	}
	if got := strings.Join(listing.LibraryMethods, "|"); got != "Farneback|DualTVL1" {
		t.Errorf("Unexpected library methods %s", got)
	}
	if len(c.All()) != 4 {
		t.Errorf("Expected 4 methods, got %d", len(c.All()))
	}
	if cat, ok := c.CategoryOf("HornSchunck (Custom)"); !ok || cat != CategoryCustom {
		t.Errorf("Expected first category to win, got %q", cat)
	}
}

func TestLoad_FetchesOnce(t *testing.T) {
	svc := &fakeService{listing: &models.MethodListing{LibraryMethods: []string{"Farneback"}}}
	c := New(svc, nil)

	for i := 0; i < 3; i++ {
		listing, err := c.Load(context.Background())
		if err != nil {
			t.Fatalf("Load %d failed: %v", i, err)
		}
		if len(listing.LibraryMethods) != 1 {
			t.Errorf("Unexpected listing %+v", listing)
		}
	}
	if svc.calls != 1 {
		t.Errorf("Expected a single fetch, got %d", svc.calls)
	}
}

func TestLoad_FailureLeavesCatalogEmpty(t *testing.T) {
	boom := apperrors.NewNetworkError("down", nil)
	svc := &fakeService{err: boom}
	notifier := &recordingNotifier{}
	c := New(svc, notifier)

	if _, err := c.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Expected load error, got %v", err)
	}
	if _, err := c.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Expected cached load error, got %v", err)
	}

	if svc.calls != 1 {
		t.Errorf("Expected no retry, got %d calls", svc.calls)
	}
	if len(c.All()) != 0 || !c.Loaded() {
		t.Error("Expected an empty, loaded catalog")
	}
	if len(notifier.messages) != 1 || notifier.messages[0] != "error:"+LoadFailedMessage {
		t.Errorf("Expected exactly one error notice, got %v", notifier.messages)
	}
	listing := c.Listing()
	if listing.CustomMethods == nil || listing.LibraryMethods == nil {
		t.Error("Expected empty, non-nil listings")
	}
}

func TestSelectAll(t *testing.T) {
	c := loaded(t)

	if got := strings.Join(c.SelectAll(CategoryLibrary), "|"); got != "Farneback|DualTVL1" {
		t.Errorf("Unexpected library selection %s", got)
	}
	if got := c.SelectAll(CategoryCustom); len(got) != 2 {
		t.Errorf("Expected 2 custom methods, got %v", got)
	}
	if len(c.SelectNone()) != 0 {
		t.Error("Expected empty selection")
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"custom", CategoryCustom, false},
		{"Library", CategoryLibrary, false},
		{" LIBRARY ", CategoryLibrary, false},
		{"none", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestSuggestAndValidate(t *testing.T) {
	c := loaded(t)

	if got, ok := c.Suggest("farneback"); !ok || got != "Farneback" {
		t.Errorf("Expected Farneback, got %q %v", got, ok)
	}
	if got, ok := c.Suggest("DualTV"); !ok || got != "DualTVL1" {
		t.Errorf("Expected DualTVL1, got %q %v", got, ok)
	}
	if _, ok := c.Suggest("zzzzzzzzzzzzzzzzzzzzzzzzzzzz"); ok {
		t.Error("Expected no suggestion for an unrelated name")
	}

	if err := c.Validate("Farneback", "DualTVL1"); err != nil {
		t.Errorf("Expected known names to validate, got %v", err)
	}
	err := c.Validate("Farneback", "Farnebak")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(apperrors.UserMessage(err), `did you mean "Farneback"`) {
		t.Errorf("Expected a suggestion, got %q", apperrors.UserMessage(err))
	}
}

func TestSuggest_EmptyCatalog(t *testing.T) {
	c := New(&fakeService{err: errors.New("down")}, nil)
	c.Load(context.Background())
	if _, ok := c.Suggest("anything"); ok {
		t.Error("Expected no suggestion from an empty catalog")
	}
}
