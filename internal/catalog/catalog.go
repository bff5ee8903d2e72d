package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/arbovm/levenshtein"
	"github.com/sirupsen/logrus"

	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/internal/presentation"
	"go-motion-inspector/internal/repository"
	"go-motion-inspector/pkg/models"
)

// LoadFailedMessage is the notice shown when the method list cannot be fetched
const LoadFailedMessage = "Error loading available methods"

// Category groups methods by where they are implemented
type Category string

const (
	CategoryCustom  Category = "Custom"
	CategoryLibrary Category = "Library"
)

// ParseCategory accepts "custom" or "library" in any case
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "custom":
		return CategoryCustom, nil
	case "library":
		return CategoryLibrary, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("Unknown method category %q", s), nil)
	}
}

// MethodDescriptor names one selectable method
type MethodDescriptor struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Catalog holds the methods the service offers. It is fetched once per
// session; a failed fetch leaves it empty for the rest of the session.
type Catalog struct {
	mu      sync.RWMutex
	service repository.AnalysisService
	notify  presentation.Notifier
	log     *logrus.Entry

	loaded  bool
	loadErr error
	methods []MethodDescriptor
	index   map[string]int
}

func New(service repository.AnalysisService, notifier presentation.Notifier) *Catalog {
	return &Catalog{
		service: service,
		notify:  notifier,
		log:     logger.WithComponent("method_catalog"),
		index:   make(map[string]int),
	}
}

// Load fetches the method listing. Only the first call reaches the service;
// later calls return the cached outcome.
func (c *Catalog) Load(ctx context.Context) (*models.MethodListing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.listingLocked(), c.loadErr
	}
	c.loaded = true

	listing, err := c.service.AvailableMethods(ctx)
	if err != nil {
		c.loadErr = err
		c.log.WithError(err).Error("Failed to load available methods")
		if c.notify != nil {
			c.notify.Notify(models.NoticeError, LoadFailedMessage)
		}
		return c.listingLocked(), err
	}

	c.addLocked(CategoryCustom, listing.CustomMethods)
	c.addLocked(CategoryLibrary, listing.LibraryMethods)

	c.log.WithFields(logrus.Fields{
		"custom":  len(c.byCategoryLocked(CategoryCustom)),
		"library": len(c.byCategoryLocked(CategoryLibrary)),
	}).Info("Loaded available methods")
	return c.listingLocked(), nil
}

// addLocked keeps names unique across both categories since results are
// keyed by name alone; the first listing of a name wins.
func (c *Catalog) addLocked(category Category, names []string) {
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			c.log.WithField("category", category).Warn("Ignoring method with an empty name")
			continue
		}
		if existing, dup := c.index[name]; dup {
			c.log.WithFields(logrus.Fields{
				"method":   name,
				"category": category,
				"kept":     c.methods[existing].Category,
			}).Warn("Ignoring duplicate method")
			continue
		}
		c.index[name] = len(c.methods)
		c.methods = append(c.methods, MethodDescriptor{Name: name, Category: category})
	}
}

// Loaded reports whether Load has run, successfully or not
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err returns the error of the initial load, if it failed
func (c *Catalog) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadErr
}

// Listing returns the validated listing
func (c *Catalog) Listing() *models.MethodListing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.listingLocked()
}

func (c *Catalog) listingLocked() *models.MethodListing {
	return &models.MethodListing{
		CustomMethods:  c.byCategoryLocked(CategoryCustom),
		LibraryMethods: c.byCategoryLocked(CategoryLibrary),
	}
}

func (c *Catalog) byCategoryLocked(category Category) []string {
	out := []string{}
	for _, m := range c.methods {
		if m.Category == category {
			out = append(out, m.Name)
		}
	}
	return out
}

// All returns every method, custom first
func (c *Catalog) All() []MethodDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MethodDescriptor, len(c.methods))
	copy(out, c.methods)
	return out
}

func (c *Catalog) Lookup(name string) (MethodDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[name]
	if !ok {
		return MethodDescriptor{}, false
	}
	return c.methods[i], true
}

// CategoryOf returns the category of a known method
func (c *Catalog) CategoryOf(name string) (Category, bool) {
	m, ok := c.Lookup(name)
	return m.Category, ok
}

// SelectAll returns exactly the methods of one category, in service order
func (c *Catalog) SelectAll(category Category) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byCategoryLocked(category)
}

// SelectNone returns an empty selection
func (c *Catalog) SelectNone() []string {
	return []string{}
}

// Suggest returns the known method name closest to name. Matches further
// away than half the longer name are not suggested.
func (c *Catalog) Suggest(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(name)
	best, bestDist := "", -1
	for _, m := range c.methods {
		d := levenshtein.Distance(needle, strings.ToLower(m.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = m.Name, d
		}
	}
	if bestDist < 0 {
		return "", false
	}

	limit := len(name)
	if len(best) > limit {
		limit = len(best)
	}
	if bestDist > limit/2 {
		return "", false
	}
	return best, true
}

// Validate checks that every name is known, returning a validation error
// that suggests the closest known name for the first unknown one.
func (c *Catalog) Validate(names ...string) error {
	for _, name := range names {
		if _, ok := c.Lookup(name); ok {
			continue
		}
		msg := fmt.Sprintf("Unknown method %q", name)
		if suggestion, ok := c.Suggest(name); ok {
			msg = fmt.Sprintf("%s, did you mean %q?", msg, suggestion)
		}
		return apperrors.NewValidationError(msg, nil)
	}
	return nil
}
