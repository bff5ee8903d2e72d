package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-motion-inspector/internal/aggregator"
	"go-motion-inspector/internal/catalog"
	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/internal/imagecache"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/internal/observer"
	"go-motion-inspector/internal/presentation"
	"go-motion-inspector/internal/repository"
	"go-motion-inspector/internal/strategy"
	"go-motion-inspector/pkg/models"
)

// User-facing notices
const (
	MsgMissingImages       = "Please upload both images before analyzing"
	MsgNoMethod            = "Please select a method for analysis"
	MsgNoMethods           = "Please select at least one method for comparison"
	MsgInProgress          = "Analysis already in progress"
	MsgNotReady            = "The console is still starting"
	MsgAnalysisSucceeded   = "Analysis completed successfully"
	MsgComparisonSucceeded = "Comparison completed successfully"
	MsgAllCleared          = "All data cleared"
)

// ErrStaleSubmission is returned when a submission settles after the console
// moved on; its result is dropped.
var ErrStaleSubmission = errors.New("submission superseded")

// State of the console
type State string

const (
	StateIdle        State = "idle"
	StateConfiguring State = "configuring"
	StateSubmitting  State = "submitting"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
)

// Mode selects how a submission is analyzed
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeComparison Mode = "comparison"
)

// ParseMode accepts "single" or "comparison" in any case
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSingle:
		return ModeSingle, nil
	case ModeComparison:
		return ModeComparison, nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("Unknown analysis mode %q", s), nil)
	}
}

// Snapshot is the orchestrator's externally visible state
type Snapshot struct {
	State      State    `json:"state"`
	Mode       Mode     `json:"mode"`
	Method     string   `json:"method"`
	Selection  []string `json:"selection"`
	Generation uint64   `json:"generation"`
	Busy       bool     `json:"busy"`
}

// Deps are the collaborators of the orchestrator
type Deps struct {
	Cache     *imagecache.ImageCache
	Catalog   *catalog.Catalog
	Service   repository.AnalysisService
	Presenter presentation.Presenter
	Events    observer.Subject
}

// Orchestrator drives one console: mode, method selection and submissions.
// A submission's result is applied only while its generation is current and
// the console is still submitting.
type Orchestrator struct {
	mu         sync.Mutex
	cache      *imagecache.ImageCache
	catalog    *catalog.Catalog
	presenter  presentation.Presenter
	events     observer.Subject
	strategies map[Mode]strategy.SubmissionStrategy
	log        *logrus.Entry

	state      State
	mode       Mode
	method     string
	selection  []string
	generation uint64
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		cache:     deps.Cache,
		catalog:   deps.Catalog,
		presenter: deps.Presenter,
		events:    deps.Events,
		strategies: map[Mode]strategy.SubmissionStrategy{
			ModeSingle:     strategy.NewSingleStrategy(deps.Service),
			ModeComparison: strategy.NewComparisonStrategy(deps.Service),
		},
		log:   logger.WithComponent("orchestrator"),
		state: StateIdle,
		mode:  ModeSingle,
	}
}

// Start enters Configuring(Single) once the image cache is reconciled and
// the method catalog has been loaded.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.cache.Reconciled() {
		return imagecache.ErrNotReconciled
	}
	if !o.catalog.Loaded() {
		return apperrors.NewInternalError("method catalog not loaded", nil)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return nil
	}
	o.mode = ModeSingle
	o.presenter.SetMode(string(o.mode))
	o.transitionLocked(ctx, StateConfiguring)
	return nil
}

// Started reports whether the console has left Idle
func (o *Orchestrator) Started() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state != StateIdle
}

// SetMode switches the analysis mode and hides the displayed result
func (o *Orchestrator) SetMode(ctx context.Context, mode Mode) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.mode = mode
	o.presenter.SetMode(string(mode))
	o.presenter.HideResults()
	o.presenter.HideMetrics()
	o.editLocked(ctx)
}

// SelectMethod chooses the single-mode method; an empty name clears it
func (o *Orchestrator) SelectMethod(ctx context.Context, name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.method = strings.TrimSpace(name)
	o.editLocked(ctx)
}

// SetSelection replaces the comparison selection. Order is kept and
// repeated names are dropped.
func (o *Orchestrator) SetSelection(ctx context.Context, names []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selection = dedupe(names)
	o.editLocked(ctx)
}

// SelectAll selects exactly the methods of one category
func (o *Orchestrator) SelectAll(ctx context.Context, category catalog.Category) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selection = o.catalog.SelectAll(category)
	o.editLocked(ctx)
}

// ClearSelection empties the comparison selection
func (o *Orchestrator) ClearSelection(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selection = o.catalog.SelectNone()
	o.editLocked(ctx)
}

// ImageChanged records that an image slot was stored or cleared
func (o *Orchestrator) ImageChanged(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.editLocked(ctx)
}

// ClearAll empties both image slots, hides everything and resets the mode
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.cache.ClearAll(ctx); err != nil {
		return err
	}

	o.presenter.ResetInputs()
	o.presenter.HideResults()
	o.presenter.HideMetrics()
	o.mode = ModeSingle
	o.presenter.SetMode(string(o.mode))
	o.method = ""
	o.selection = nil
	o.editLocked(ctx)
	o.presenter.Notify(models.NoticeInfo, MsgAllCleared)
	return nil
}

// Snapshot returns the current state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		State:      o.state,
		Mode:       o.mode,
		Method:     o.method,
		Selection:  append([]string{}, o.selection...),
		Generation: o.generation,
		Busy:       o.state == StateSubmitting,
	}
}

// Submit validates the current configuration and runs the mode's remote
// operations. Rejections leave the state untouched and make no remote call.
func (o *Orchestrator) Submit(ctx context.Context) (*strategy.Outcome, error) {
	o.mu.Lock()

	mode := o.mode
	methods, err := o.validateLocked(ctx)
	if err == nil {
		var pair repository.ImagePair
		if pair, err = o.imagePair(ctx); err == nil {
			return o.runLocked(ctx, mode, methods, pair)
		}
	}

	event := observer.SubmissionEvent{
		EventType:    observer.SubmissionRejected,
		Generation:   o.generation,
		Mode:         string(mode),
		State:        string(o.state),
		Methods:      methods,
		ErrorMessage: apperrors.UserMessage(err),
	}
	o.mu.Unlock()

	o.presenter.Notify(models.NoticeWarning, apperrors.UserMessage(err))
	o.publish(ctx, event)
	return nil, err
}

// runLocked is entered holding o.mu and releases it while the remote
// operations are in flight.
func (o *Orchestrator) runLocked(ctx context.Context, mode Mode, methods []string, pair repository.ImagePair) (*strategy.Outcome, error) {
	o.generation++
	gen := o.generation
	id := observer.NewSubmissionID()
	strat := o.strategies[mode]
	o.transitionLocked(ctx, StateSubmitting)
	o.presenter.SetBusy(true)
	o.mu.Unlock()

	log := o.log.WithFields(logrus.Fields{
		"submission_id": id,
		"generation":    gen,
		"mode":          mode,
		"methods":       methods,
	})
	log.Info("Submitting analysis")
	o.publish(ctx, observer.SubmissionEvent{
		EventType:    observer.SubmissionStarted,
		SubmissionID: id,
		Generation:   gen,
		Mode:         string(mode),
		State:        string(StateSubmitting),
		Methods:      methods,
	})

	outcome, runErr := strat.Execute(ctx, strategy.Request{Pair: pair, Methods: methods})

	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation || o.state != StateSubmitting {
		log.WithField("current_generation", o.generation).Info("Dropping result of a superseded submission")
		o.publish(ctx, observer.SubmissionEvent{
			EventType:    observer.SubmissionDiscarded,
			SubmissionID: id,
			Generation:   gen,
			Mode:         string(mode),
			State:        string(o.state),
			Methods:      methods,
		})
		return nil, ErrStaleSubmission
	}

	o.presenter.SetBusy(false)

	if runErr != nil {
		message := failurePrefix(mode) + apperrors.UserMessage(runErr)
		log.WithError(runErr).Warn("Analysis failed")
		// nothing stays on screen after a failure
		o.presenter.HideResults()
		o.presenter.HideMetrics()
		o.presenter.Notify(models.NoticeError, message)
		o.publish(ctx, observer.SubmissionEvent{
			EventType:    observer.SubmissionFailed,
			SubmissionID: id,
			Generation:   gen,
			Mode:         string(mode),
			State:        string(StateFailed),
			Methods:      methods,
			ErrorMessage: apperrors.UserMessage(runErr),
		})
		o.transitionLocked(ctx, StateFailed)
		o.transitionLocked(ctx, StateConfiguring)
		return nil, runErr
	}

	o.resolveCategories(outcome.Results)
	o.resolveCategories(outcome.All)

	switch mode {
	case ModeSingle:
		var panel *models.MetricsPanel
		if r, ok := outcome.Results.Get(methods[0]); ok && r.Success {
			p := aggregator.SingleMetrics(r)
			panel = &p
		}
		o.presenter.ShowSingleResult(outcome.Image, panel)
		o.presenter.Notify(models.NoticeSuccess, MsgAnalysisSucceeded)
	case ModeComparison:
		o.presenter.ShowComparisonResult(outcome.Image, aggregator.ToComparisonView(outcome.Results))
		o.presenter.Notify(models.NoticeSuccess, MsgComparisonSucceeded)
	}

	o.transitionLocked(ctx, StateCompleted)
	o.publish(ctx, observer.SubmissionEvent{
		EventType:    observer.SubmissionCompleted,
		SubmissionID: id,
		Generation:   gen,
		Mode:         string(mode),
		State:        string(StateCompleted),
		Methods:      methods,
		Duration:     outcome.Duration,
		Success:      true,
	})
	log.WithField("duration_ms", outcome.Duration.Milliseconds()).Info("Analysis completed")
	return outcome, nil
}

// validateLocked checks submit preconditions in order and returns the
// methods to submit.
func (o *Orchestrator) validateLocked(ctx context.Context) ([]string, error) {
	switch o.state {
	case StateIdle:
		return nil, apperrors.NewValidationError(MsgNotReady, nil)
	case StateSubmitting:
		return nil, apperrors.NewValidationError(MsgInProgress, nil)
	}

	if !o.cache.HasBoth(ctx) {
		return nil, apperrors.NewValidationError(MsgMissingImages, nil)
	}

	var methods []string
	switch o.mode {
	case ModeSingle:
		if o.method == "" {
			return nil, apperrors.NewValidationError(MsgNoMethod, nil)
		}
		methods = []string{o.method}
	case ModeComparison:
		if len(o.selection) == 0 {
			return nil, apperrors.NewValidationError(MsgNoMethods, nil)
		}
		methods = append([]string{}, o.selection...)
	}

	if err := o.catalog.Validate(methods...); err != nil {
		return methods, err
	}
	return methods, nil
}

func (o *Orchestrator) imagePair(ctx context.Context) (repository.ImagePair, error) {
	img1, ok1, err := o.cache.Decode(ctx, imagecache.SlotImage1)
	if err != nil {
		return repository.ImagePair{}, err
	}
	img2, ok2, err := o.cache.Decode(ctx, imagecache.SlotImage2)
	if err != nil {
		return repository.ImagePair{}, err
	}
	if !ok1 || !ok2 {
		return repository.ImagePair{}, apperrors.NewValidationError(MsgMissingImages, nil)
	}
	return repository.ImagePair{Image1: img1, Image2: img2}, nil
}

// resolveCategories fills in categories the service left out
func (o *Orchestrator) resolveCategories(agg *models.AggregatedComparison) {
	for _, r := range agg.Results() {
		if r.Category != "" {
			continue
		}
		if cat, ok := o.catalog.CategoryOf(r.Name); ok {
			r.Category = string(cat)
			agg.Set(r.Name, r)
		}
	}
}

// editLocked applies a user edit: it supersedes any in-flight submission and
// returns the console to Configuring.
func (o *Orchestrator) editLocked(ctx context.Context) {
	if o.state == StateIdle {
		return
	}
	if o.state == StateSubmitting {
		o.presenter.SetBusy(false)
	}
	o.generation++
	o.transitionLocked(ctx, StateConfiguring)
}

func (o *Orchestrator) transitionLocked(ctx context.Context, next State) {
	prev := o.state
	o.state = next
	o.presenter.SetState(string(next))
	o.publish(ctx, observer.SubmissionEvent{
		EventType:  observer.StateChanged,
		Generation: o.generation,
		Mode:       string(o.mode),
		State:      string(next),
		Metadata:   map[string]interface{}{"previous_state": string(prev)},
	})
}

func (o *Orchestrator) publish(ctx context.Context, event observer.SubmissionEvent) {
	if o.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	o.events.NotifyObservers(ctx, event)
}

func failurePrefix(mode Mode) string {
	if mode == ModeComparison {
		return "Comparison failed: "
	}
	return "Analysis failed: "
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
