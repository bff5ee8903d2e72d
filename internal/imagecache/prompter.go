package imagecache

import (
	"context"
	"errors"
	"sync"
)

// ReconcileQuestion is the startup prompt shown when images survived
const ReconcileQuestion = "Found previously uploaded images. Clear them?"

// ErrNoPendingPrompt is returned when an answer arrives with no question asked
var ErrNoPendingPrompt = errors.New("no reconcile prompt is pending")

// ReconcilePrompter asks the user what to do with images left from an earlier
// session. Returning true discards them, false keeps and redisplays them.
type ReconcilePrompter interface {
	ConfirmDiscard(ctx context.Context, present []Slot) (bool, error)
}

// PolicyPrompter answers the prompt from configuration without asking
type PolicyPrompter struct {
	Discard bool
}

func (p PolicyPrompter) ConfirmDiscard(ctx context.Context, present []Slot) (bool, error) {
	return p.Discard, nil
}

// AnswerPrompter blocks ConfirmDiscard until Answer is called, which lets the
// page answer the prompt over HTTP.
type AnswerPrompter struct {
	mu      sync.Mutex
	pending []Slot
	asked   bool
	answers chan bool
}

func NewAnswerPrompter() *AnswerPrompter {
	return &AnswerPrompter{answers: make(chan bool, 1)}
}

func (p *AnswerPrompter) ConfirmDiscard(ctx context.Context, present []Slot) (bool, error) {
	p.mu.Lock()
	p.asked = true
	p.pending = append([]Slot(nil), present...)
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.asked = false
		p.pending = nil
		p.mu.Unlock()
	}()

	select {
	case discard := <-p.answers:
		return discard, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Pending reports whether a prompt is waiting and which slots it is about
func (p *AnswerPrompter) Pending() ([]Slot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Slot(nil), p.pending...), p.asked
}

// Answer resolves the pending prompt
func (p *AnswerPrompter) Answer(discard bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.asked {
		return ErrNoPendingPrompt
	}
	select {
	case p.answers <- discard:
		return nil
	default:
		// already answered, waiting to be consumed
		return ErrNoPendingPrompt
	}
}
