package presentation

import (
	"github.com/sirupsen/logrus"

	"go-motion-inspector/internal/logger"
	"go-motion-inspector/pkg/models"
)

// Notifier shows transient notices to the user
type Notifier interface {
	Notify(level models.NoticeLevel, message string)
}

// Presenter is everything the console drives on the page
type Presenter interface {
	Notifier

	ShowPreview(slot string, img models.ImageData)
	HidePreview(slot string)
	SetPreviewPanel(visible bool)

	ShowSingleResult(img *models.RenderedImage, metrics *models.MetricsPanel)
	ShowComparisonResult(img *models.RenderedImage, view models.ComparisonView)
	HideResults()
	HideMetrics()

	SetBusy(busy bool)
	SetMode(mode string)
	SetState(state string)
	ResetInputs()
}

// LogNotifier writes notices to the structured log
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.WithComponent("notifier")}
}

func (n *LogNotifier) Notify(level models.NoticeLevel, message string) {
	entry := n.log.WithField("level", level)
	switch level {
	case models.NoticeError:
		entry.Error(message)
	case models.NoticeWarning:
		entry.Warn(message)
	default:
		entry.Info(message)
	}
}
