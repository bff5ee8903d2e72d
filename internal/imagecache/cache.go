package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/internal/storage"
	"go-motion-inspector/pkg/models"
	"go-motion-inspector/pkg/validation"
)

// UnloadMessage is shown before leaving the page while images are stored
const UnloadMessage = "You have images saved—reloading will clear them."

// ErrNotReconciled is returned when cache state is read before the startup
// reconcile step has been resolved.
var ErrNotReconciled = errors.New("image cache not reconciled")

// ReconcileDecision is the outcome of the startup reconcile step
type ReconcileDecision string

const (
	// ReconcileNone means nothing survived from an earlier session
	ReconcileNone ReconcileDecision = "none"
	// ReconcileDiscarded means surviving images were cleared
	ReconcileDiscarded ReconcileDecision = "discarded"
	// ReconcileKept means surviving images were kept and redisplayed
	ReconcileKept ReconcileDecision = "kept"
)

// Previewer renders slot previews. It is called after the slot is persisted.
type Previewer interface {
	ShowPreview(slot string, img models.ImageData)
	HidePreview(slot string)
	SetPreviewPanel(visible bool)
}

// ImageCache owns the two image slots and is the only writer of the slot store
type ImageCache struct {
	mu         sync.Mutex
	store      storage.SlotStore
	validator  *validation.PayloadValidator
	previewer  Previewer
	reconciled bool
	log        *logrus.Entry
}

func New(store storage.SlotStore, validator *validation.PayloadValidator, previewer Previewer) *ImageCache {
	return &ImageCache{
		store:     store,
		validator: validator,
		previewer: previewer,
		log:       logger.WithComponent("image_cache"),
	}
}

// Reconcile resolves images surviving from an earlier session. Until it has
// run, every other read or write of the cache fails with ErrNotReconciled.
func (c *ImageCache) Reconcile(ctx context.Context, prompter ReconcilePrompter) (ReconcileDecision, error) {
	present, err := c.presentSlots(ctx)
	if err != nil {
		return "", err
	}

	if len(present) == 0 {
		c.markReconciled()
		return ReconcileNone, nil
	}

	c.log.WithField("slots", present).Info("Found images from an earlier session")

	// The prompt may block; the lock is not held while waiting.
	discard, err := prompter.ConfirmDiscard(ctx, present)
	if err != nil {
		return "", fmt.Errorf("reconcile prompt: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconciled = true

	if discard {
		if err := c.clearLocked(ctx, Slots()...); err != nil {
			return "", err
		}
		c.log.Info("Discarded images from an earlier session")
		return ReconcileDiscarded, nil
	}

	for _, slot := range present {
		payload, ok, err := c.store.Get(ctx, slot.String())
		if err != nil {
			return "", apperrors.NewStorageError("failed to read image slot", err)
		}
		if !ok {
			continue
		}
		img, err := c.validator.Validate(payload)
		if err != nil {
			// A corrupt leftover is dropped rather than redisplayed
			c.log.WithError(err).WithField("slot", slot).Warn("Dropping unreadable stored image")
			if err := c.clearLocked(ctx, slot); err != nil {
				return "", err
			}
			continue
		}
		c.previewer.ShowPreview(slot.String(), img)
	}
	c.previewer.SetPreviewPanel(c.hasBothLocked(ctx))
	c.log.Info("Kept images from an earlier session")
	return ReconcileKept, nil
}

// Reconciled reports whether the startup reconcile step has completed
func (c *ImageCache) Reconciled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciled
}

// Store validates the payload, persists it and then renders its preview
func (c *ImageCache) Store(ctx context.Context, slot Slot, payload string) error {
	img, err := c.validator.Validate(payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reconciled {
		return ErrNotReconciled
	}

	if err := c.store.Put(ctx, slot.String(), payload); err != nil {
		return apperrors.NewStorageError("failed to store image", err)
	}
	c.previewer.ShowPreview(slot.String(), img)
	c.previewer.SetPreviewPanel(c.hasBothLocked(ctx))

	c.log.WithFields(logrus.Fields{
		"slot":      slot,
		"mime_type": img.MimeType,
		"bytes":     len(img.Data),
	}).Debug("Stored image")
	return nil
}

// StoreFile reads a selected file, encodes it as a data URL and stores it
func (c *ImageCache) StoreFile(ctx context.Context, slot Slot, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return apperrors.NewValidationError("Failed to read selected file", err)
	}
	payload, err := c.validator.Encode(data)
	if err != nil {
		return err
	}
	return c.Store(ctx, slot, payload)
}

// Get returns the stored payload for slot
func (c *ImageCache) Get(ctx context.Context, slot Slot) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reconciled {
		return "", false, ErrNotReconciled
	}
	payload, ok, err := c.store.Get(ctx, slot.String())
	if err != nil {
		return "", false, apperrors.NewStorageError("failed to read image slot", err)
	}
	return payload, ok, nil
}

// Decode returns the slot's image bytes and mime type
func (c *ImageCache) Decode(ctx context.Context, slot Slot) (models.ImageData, bool, error) {
	payload, ok, err := c.Get(ctx, slot)
	if err != nil || !ok {
		return models.ImageData{}, ok, err
	}
	img, err := c.validator.Validate(payload)
	if err != nil {
		return models.ImageData{}, false, err
	}
	return img, true, nil
}

// Clear removes one slot and its preview; clearing an empty slot is a no-op
func (c *ImageCache) Clear(ctx context.Context, slot Slot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reconciled {
		return ErrNotReconciled
	}
	return c.clearLocked(ctx, slot)
}

// ClearAll removes both slots and their previews
func (c *ImageCache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reconciled {
		return ErrNotReconciled
	}
	return c.clearLocked(ctx, Slots()...)
}

// HasBoth is true only when both slots hold an image
func (c *ImageCache) HasBoth(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.reconciled {
		return false
	}
	return c.hasBothLocked(ctx)
}

// UnloadWarning returns the warning to show before leaving the page, if any
// slot is populated.
func (c *ImageCache) UnloadWarning(ctx context.Context) (string, bool) {
	present, err := c.presentSlots(ctx)
	if err != nil {
		c.log.WithError(err).Warn("Could not read slots for unload warning")
		return UnloadMessage, true
	}
	if len(present) == 0 {
		return "", false
	}
	return UnloadMessage, true
}

// Unload clears both slots unconditionally at session end
func (c *ImageCache) Unload(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.clearLocked(ctx, Slots()...); err != nil {
		return err
	}
	c.log.Info("Session ended, image slots cleared")
	return nil
}

func (c *ImageCache) clearLocked(ctx context.Context, slots ...Slot) error {
	for _, slot := range slots {
		if err := c.store.Delete(ctx, slot.String()); err != nil {
			return apperrors.NewStorageError("failed to clear image slot", err)
		}
		c.previewer.HidePreview(slot.String())
	}
	c.previewer.SetPreviewPanel(c.hasBothLocked(ctx))
	return nil
}

func (c *ImageCache) hasBothLocked(ctx context.Context) bool {
	for _, slot := range Slots() {
		_, ok, err := c.store.Get(ctx, slot.String())
		if err != nil {
			c.log.WithError(err).WithField("slot", slot).Warn("Failed to read image slot")
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

func (c *ImageCache) presentSlots(ctx context.Context) ([]Slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var present []Slot
	for _, slot := range Slots() {
		_, ok, err := c.store.Get(ctx, slot.String())
		if err != nil {
			return nil, apperrors.NewStorageError("failed to read image slot", err)
		}
		if ok {
			present = append(present, slot)
		}
	}
	return present, nil
}

func (c *ImageCache) markReconciled() {
	c.mu.Lock()
	c.reconciled = true
	c.mu.Unlock()
}
