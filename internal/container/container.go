package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"go-motion-inspector/internal/catalog"
	"go-motion-inspector/internal/config"
	"go-motion-inspector/internal/factory"
	"go-motion-inspector/internal/imagecache"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/internal/observer"
	"go-motion-inspector/internal/orchestrator"
	"go-motion-inspector/internal/presentation"
	"go-motion-inspector/internal/repository"
	"go-motion-inspector/internal/storage"
	"go-motion-inspector/internal/transport"
	"go-motion-inspector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config       *config.Config
	store        storage.SlotStore
	cache        *imagecache.ImageCache
	prompter     imagecache.ReconcilePrompter
	catalog      *catalog.Catalog
	orchestrator *orchestrator.Orchestrator
	view         *presentation.ViewModel
	events       *observer.EventPublisher
	handler      http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)

	store, err := factory.NewStorageFactory(cfg).CreateStorage(ctx, factory.StorageType(cfg.StorageBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to open slot storage: %w", err)
	}

	// Build dependency graph
	view := presentation.NewViewModel(presentation.NewLogNotifier())
	cache := imagecache.New(store, validation.NewPayloadValidator(cfg.MaxImageBytes()), view)
	service := repository.NewHTTPAnalysisService(cfg.ServiceBaseURL, repository.Options{
		Timeout:      cfg.ServiceTimeout,
		RateInterval: cfg.ServiceRateInterval,
	})
	cat := catalog.New(service, view)

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	orch := orchestrator.New(orchestrator.Deps{
		Cache:     cache,
		Catalog:   cat,
		Service:   service,
		Presenter: view,
		Events:    events,
	})

	console := transport.Console{
		Cache:        cache,
		Catalog:      cat,
		Orchestrator: orch,
		View:         view,
		Renderer:     presentation.NewTextRenderer(),
		Metrics:      metrics,
	}

	var prompter imagecache.ReconcilePrompter
	switch cfg.ReconcilePolicy {
	case config.ReconcileKeep:
		prompter = imagecache.PolicyPrompter{Discard: false}
	case config.ReconcileDiscard:
		prompter = imagecache.PolicyPrompter{Discard: true}
	default:
		answers := imagecache.NewAnswerPrompter()
		console.Prompter = answers
		prompter = answers
	}

	return &Container{
		config:       cfg,
		store:        store,
		cache:        cache,
		prompter:     prompter,
		catalog:      cat,
		orchestrator: orch,
		view:         view,
		events:       events,
		handler:      transport.NewHandler(console, cfg),
	}, nil
}

// Start reconciles surviving images and loads the method catalog, then
// starts the console. With the prompt policy it blocks until the page answers.
func (c *Container) Start(ctx context.Context) error {
	log := logger.WithComponent("container")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		decision, err := c.cache.Reconcile(gctx, c.prompter)
		if err != nil {
			return fmt.Errorf("reconcile image slots: %w", err)
		}
		log.WithField("decision", decision).Info("Image slots reconciled")
		return nil
	})
	g.Go(func() error {
		// A failed listing leaves the catalog empty and is reported to the page
		c.catalog.Load(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return c.orchestrator.Start(ctx)
}

// Shutdown ends the session: slots are cleared and held results released
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if c.cache.Reconciled() {
		if err := c.cache.Unload(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.view.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.store.Close(); err != nil {
		errs = append(errs, err)
	}
	c.events.Wait()
	return errors.Join(errs...)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
