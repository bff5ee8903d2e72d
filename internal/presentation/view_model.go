package presentation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-motion-inspector/internal/logger"
	"go-motion-inspector/pkg/models"
)

const (
	maxNotices = 20

	ResultKindSingle     = "single"
	ResultKindComparison = "comparison"
)

var previewSlots = []string{"image1", "image2"}

type resultImage struct {
	handle      string
	kind        string
	contentType string
	data        []byte
}

// ViewModel is an in-memory Presenter whose snapshot is what the page renders.
// It owns the displayed result image and releases it whenever a newer result
// replaces it, results are hidden or the view is closed.
type ViewModel struct {
	mu      sync.RWMutex
	forward Notifier
	now     func() time.Time
	log     *logrus.Entry

	mode         string
	state        string
	busy         bool
	inputsReset  int
	previewPanel bool
	previews     map[string]models.PreviewView
	result       *resultImage
	released     int
	single       *models.MetricsPanel
	comparison   *models.ComparisonView
	notices      []models.Notice
}

// NewViewModel creates an empty view. Notices are also passed to forward
// when it is not nil.
func NewViewModel(forward Notifier) *ViewModel {
	return &ViewModel{
		forward:  forward,
		now:      time.Now,
		log:      logger.WithComponent("view_model"),
		previews: make(map[string]models.PreviewView),
	}
}

func (v *ViewModel) Notify(level models.NoticeLevel, message string) {
	v.mu.Lock()
	v.notices = append(v.notices, models.Notice{Level: level, Message: message, At: v.now()})
	if len(v.notices) > maxNotices {
		v.notices = append([]models.Notice(nil), v.notices[len(v.notices)-maxNotices:]...)
	}
	v.mu.Unlock()

	if v.forward != nil {
		v.forward.Notify(level, message)
	}
}

func (v *ViewModel) ShowPreview(slot string, img models.ImageData) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.previews[slot] = models.PreviewView{
		Slot:     slot,
		Visible:  true,
		MimeType: img.MimeType,
		Bytes:    len(img.Data),
	}
}

func (v *ViewModel) HidePreview(slot string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.previews, slot)
}

func (v *ViewModel) SetPreviewPanel(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.previewPanel = visible
}

// ShowSingleResult displays a rendered method; a nil panel hides the metrics
func (v *ViewModel) ShowSingleResult(img *models.RenderedImage, metrics *models.MetricsPanel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.replaceResultLocked(ResultKindSingle, img)
	v.single = nil
	if metrics != nil {
		m := *metrics
		v.single = &m
	}
	v.comparison = nil
}

func (v *ViewModel) ShowComparisonResult(img *models.RenderedImage, view models.ComparisonView) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.replaceResultLocked(ResultKindComparison, img)
	v.comparison = &view
	v.single = nil
}

func (v *ViewModel) HideResults() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.releaseLocked()
}

func (v *ViewModel) HideMetrics() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.single = nil
	v.comparison = nil
}

func (v *ViewModel) SetBusy(busy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.busy = busy
}

func (v *ViewModel) SetMode(mode string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
}

func (v *ViewModel) SetState(state string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = state
}

// ResetInputs clears the file inputs; the counter lets the page notice it
func (v *ViewModel) ResetInputs() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inputsReset++
}

// Result returns the displayed result image, if any
func (v *ViewModel) Result() (*models.RenderedImage, string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.result == nil {
		return nil, "", false
	}
	return &models.RenderedImage{ContentType: v.result.contentType, Data: v.result.data}, v.result.handle, true
}

// Released returns how many result images have been released so far
func (v *ViewModel) Released() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.released
}

// Close releases the displayed result image
func (v *ViewModel) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.releaseLocked()
	return nil
}

// Snapshot returns a copy of everything the page displays
func (v *ViewModel) Snapshot() models.ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := models.ViewState{
		Mode:                v.mode,
		State:               v.state,
		Busy:                v.busy,
		InputsReset:         v.inputsReset,
		PreviewPanelVisible: v.previewPanel,
		Previews:            make([]models.PreviewView, 0, len(previewSlots)),
		Notices:             append([]models.Notice{}, v.notices...),
	}
	for _, slot := range previewSlots {
		if p, ok := v.previews[slot]; ok {
			s.Previews = append(s.Previews, p)
		} else {
			s.Previews = append(s.Previews, models.PreviewView{Slot: slot})
		}
	}
	if v.result != nil {
		s.Result = &models.ResultView{
			Kind:        v.result.kind,
			Handle:      v.result.handle,
			ContentType: v.result.contentType,
			Bytes:       len(v.result.data),
		}
	}
	if v.single != nil {
		m := *v.single
		s.SingleMetrics = &m
	}
	if v.comparison != nil {
		c := *v.comparison
		s.Comparison = &c
	}
	return s
}

func (v *ViewModel) replaceResultLocked(kind string, img *models.RenderedImage) {
	v.releaseLocked()
	if img == nil {
		return
	}
	v.result = &resultImage{
		handle:      uuid.NewString(),
		kind:        kind,
		contentType: img.ContentType,
		data:        img.Data,
	}
	v.log.WithFields(logrus.Fields{
		"handle": v.result.handle,
		"kind":   kind,
		"bytes":  len(img.Data),
	}).Debug("Displaying result image")
}

func (v *ViewModel) releaseLocked() {
	if v.result == nil {
		return
	}
	v.log.WithField("handle", v.result.handle).Debug("Released result image")
	v.result = nil
	v.released++
}
