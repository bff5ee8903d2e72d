package observer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SubmissionEvent represents a console state change or submission outcome
type SubmissionEvent struct {
	EventType    EventType              `json:"event_type"`
	Timestamp    time.Time              `json:"timestamp"`
	SubmissionID string                 `json:"submission_id,omitempty"`
	Generation   uint64                 `json:"generation"`
	Mode         string                 `json:"mode"`
	State        string                 `json:"state"`
	Methods      []string               `json:"methods,omitempty"`
	Duration     time.Duration          `json:"duration,omitempty"`
	Success      bool                   `json:"success"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// NewSubmissionID returns a fresh correlation id for one submission
func NewSubmissionID() string {
	return uuid.NewString()
}

// EventType represents the type of console event
type EventType string

const (
	// StateChanged when the console enters a new state
	StateChanged EventType = "state_changed"
	// SubmissionStarted when a submission passes validation
	SubmissionStarted EventType = "submission_started"
	// SubmissionCompleted when a submission's results are displayed
	SubmissionCompleted EventType = "submission_completed"
	// SubmissionFailed when a remote operation of a submission fails
	SubmissionFailed EventType = "submission_failed"
	// SubmissionDiscarded when a superseded submission settles
	SubmissionDiscarded EventType = "submission_discarded"
	// SubmissionRejected when a submission fails validation
	SubmissionRejected EventType = "submission_rejected"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SubmissionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event SubmissionEvent)
}

// LoggingObserver logs console events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles console events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SubmissionEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"generation": event.Generation,
		"mode":       event.Mode,
		"state":      event.State,
	}
	if event.SubmissionID != "" {
		fields["submission_id"] = event.SubmissionID
	}
	if len(event.Methods) > 0 {
		fields["methods"] = event.Methods
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case StateChanged:
		entry.Debug("Console state changed")
	case SubmissionStarted:
		entry.Info("Submission started")
	case SubmissionCompleted:
		entry.Info("Submission completed")
	case SubmissionFailed:
		entry.Error("Submission failed")
	case SubmissionDiscarded:
		entry.Info("Discarded result of a superseded submission")
	case SubmissionRejected:
		entry.Warn("Submission rejected")
	default:
		entry.Info("Console event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of submission counters
type Metrics struct {
	TotalSubmissions     int64            `json:"total_submissions"`
	CompletedSubmissions int64            `json:"completed_submissions"`
	FailedSubmissions    int64            `json:"failed_submissions"`
	DiscardedSubmissions int64            `json:"discarded_submissions"`
	RejectedSubmissions  int64            `json:"rejected_submissions"`
	TotalDuration        time.Duration    `json:"total_duration"`
	AvgDuration          time.Duration    `json:"avg_duration"`
	ByMode               map[string]int64 `json:"by_mode"`
}

// MetricsObserver collects submission counters
type MetricsObserver struct {
	mu            sync.RWMutex
	total         int64
	completed     int64
	failed        int64
	discarded     int64
	rejected      int64
	totalDuration time.Duration
	byMode        map[string]int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{byMode: make(map[string]int64)}
}

// OnEvent handles console events by counting submissions
func (o *MetricsObserver) OnEvent(ctx context.Context, event SubmissionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case SubmissionStarted:
		o.total++
		o.byMode[event.Mode]++
	case SubmissionCompleted:
		o.completed++
		o.totalDuration += event.Duration
	case SubmissionFailed:
		o.failed++
	case SubmissionDiscarded:
		o.discarded++
	case SubmissionRejected:
		o.rejected++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avg := time.Duration(0)
	if o.completed > 0 {
		avg = o.totalDuration / time.Duration(o.completed)
	}

	byMode := make(map[string]int64, len(o.byMode))
	for k, v := range o.byMode {
		byMode[k] = v
	}

	return Metrics{
		TotalSubmissions:     o.total,
		CompletedSubmissions: o.completed,
		FailedSubmissions:    o.failed,
		DiscardedSubmissions: o.discarded,
		RejectedSubmissions:  o.rejected,
		TotalDuration:        o.totalDuration,
		AvgDuration:          avg,
		ByMode:               byMode,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	pending   sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Observers run
// concurrently and must not block the console.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SubmissionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.pending.Add(1)
		go func(obs Observer) {
			defer p.pending.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until every notification sent so far has been handled
func (p *EventPublisher) Wait() {
	p.pending.Wait()
}
