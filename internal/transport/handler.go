package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-motion-inspector/internal/catalog"
	"go-motion-inspector/internal/config"
	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/internal/imagecache"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/internal/observer"
	"go-motion-inspector/internal/orchestrator"
	"go-motion-inspector/internal/presentation"
	"go-motion-inspector/pkg/models"
)

// Console is everything the page host drives
type Console struct {
	Cache        *imagecache.ImageCache
	Catalog      *catalog.Catalog
	Orchestrator *orchestrator.Orchestrator
	View         *presentation.ViewModel
	Renderer     *presentation.TextRenderer

	// Prompter is nil unless the startup question is answered by the page
	Prompter *imagecache.AnswerPrompter
	Metrics  *observer.MetricsObserver
}

// ViewResponse is the page's complete state
type ViewResponse struct {
	Console orchestrator.Snapshot `json:"console"`
	View    models.ViewState      `json:"view"`
}

// MethodsResponse is the method catalog as the page sees it
type MethodsResponse struct {
	models.MethodListing
	Methods []catalog.MethodDescriptor `json:"methods"`
	Loaded  bool                       `json:"loaded"`
	Error   string                     `json:"error,omitempty"`
}

func NewHandler(console Console, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	h := &handler{console: console, requestTimeout: cfg.RequestTimeout}

	// Configure routes
	r.GET("/health", healthCheck)

	api := r.Group("/api")
	api.GET("/methods", h.methods)

	api.PUT("/images/:slot", h.storeImage)
	api.GET("/images/:slot", h.getImage)
	api.DELETE("/images/:slot", h.clearImage)
	api.DELETE("/images", h.clearAll)

	api.GET("/session/reconcile", h.reconcilePrompt)
	api.POST("/session/reconcile", h.answerReconcile)
	api.GET("/session/unload", h.unloadWarning)
	api.POST("/session/unload", h.unload)

	api.PUT("/mode", h.setMode)
	api.PUT("/selection", h.setSelection)
	api.POST("/selection/all/:category", h.selectAll)
	api.DELETE("/selection", h.clearSelection)

	api.POST("/analyze", h.analyze)

	api.GET("/view", h.view)
	api.GET("/view/result", h.result)
	api.GET("/view/text", h.text)
	api.GET("/metrics", h.metrics)

	return r
}

type handler struct {
	console        Console
	requestTimeout time.Duration
}

func (h *handler) methods(c *gin.Context) {
	resp := MethodsResponse{
		MethodListing: *h.console.Catalog.Listing(),
		Methods:       h.console.Catalog.All(),
		Loaded:        h.console.Catalog.Loaded(),
	}
	if err := h.console.Catalog.Err(); err != nil {
		resp.Error = catalog.LoadFailedMessage
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) storeImage(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, ferr := c.FormFile("file")
		if ferr != nil {
			respondError(c, http.StatusBadRequest, "missing file", apperrors.NewValidationError("Missing file field", ferr))
			return
		}
		f, ferr := file.Open()
		if ferr != nil {
			respondError(c, http.StatusBadRequest, "unreadable file", apperrors.NewValidationError("Failed to read selected file", ferr))
			return
		}
		defer f.Close()
		err = h.console.Cache.StoreFile(ctx, slot, f)
	} else {
		var req models.ImageUploadRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", berr)
			return
		}
		err = h.console.Cache.Store(ctx, slot, req.DataURL)
	}
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			h.console.View.Notify(models.NoticeWarning, apperrors.UserMessage(err))
		}
		respondError(c, determineStatusCode(err), "failed to store image", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"slot": slot,
		"ip":   c.ClientIP(),
	}).Info("Stored image")

	h.console.Orchestrator.ImageChanged(ctx)
	h.view(c)
}

func (h *handler) getImage(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	img, found, err := h.console.Cache.Decode(c.Request.Context(), slot)
	if err != nil {
		respondError(c, determineStatusCode(err), "failed to read image", err)
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "image not found", apperrors.NewNotFoundError("No image in slot "+slot.String(), nil))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, img.MimeType, img.Data)
}

func (h *handler) clearImage(c *gin.Context) {
	slot, ok := parseSlot(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.console.Cache.Clear(ctx, slot); err != nil {
		respondError(c, determineStatusCode(err), "failed to clear image", err)
		return
	}
	h.console.Orchestrator.ImageChanged(ctx)
	h.view(c)
}

func (h *handler) clearAll(c *gin.Context) {
	if err := h.console.Orchestrator.ClearAll(c.Request.Context()); err != nil {
		respondError(c, determineStatusCode(err), "failed to clear data", err)
		return
	}
	h.view(c)
}

func (h *handler) reconcilePrompt(c *gin.Context) {
	resp := models.ReconcilePrompt{}
	if h.console.Prompter != nil {
		if slots, pending := h.console.Prompter.Pending(); pending {
			resp.Pending = true
			resp.Question = imagecache.ReconcileQuestion
			for _, s := range slots {
				resp.Slots = append(resp.Slots, s.String())
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) answerReconcile(c *gin.Context) {
	var req models.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	if h.console.Prompter == nil {
		respondError(c, http.StatusConflict, "no question pending", imagecache.ErrNoPendingPrompt)
		return
	}
	if err := h.console.Prompter.Answer(!*req.Keep); err != nil {
		respondError(c, http.StatusConflict, "no question pending", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"keep": *req.Keep})
}

func (h *handler) unloadWarning(c *gin.Context) {
	message, warn := h.console.Cache.UnloadWarning(c.Request.Context())
	c.JSON(http.StatusOK, models.UnloadWarning{Warn: warn, Message: message})
}

func (h *handler) unload(c *gin.Context) {
	if err := h.console.Cache.Unload(c.Request.Context()); err != nil {
		respondError(c, determineStatusCode(err), "failed to end session", err)
		return
	}
	h.console.View.Close()
	logger.WithFields(logrus.Fields{
		"released_results": h.console.View.Released(),
		"ip":               c.ClientIP(),
	}).Info("Session ended")
	c.Status(http.StatusNoContent)
}

func (h *handler) setMode(c *gin.Context) {
	var req models.ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	mode, err := orchestrator.ParseMode(req.Mode)
	if err != nil {
		respondError(c, determineStatusCode(err), "invalid mode", err)
		return
	}
	h.console.Orchestrator.SetMode(c.Request.Context(), mode)
	h.view(c)
}

func (h *handler) setSelection(c *gin.Context) {
	var req models.SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	ctx := c.Request.Context()
	if req.Method != nil {
		h.console.Orchestrator.SelectMethod(ctx, *req.Method)
	}
	if req.Methods != nil {
		h.console.Orchestrator.SetSelection(ctx, req.Methods)
	}
	h.view(c)
}

func (h *handler) selectAll(c *gin.Context) {
	category, err := catalog.ParseCategory(c.Param("category"))
	if err != nil {
		respondError(c, determineStatusCode(err), "invalid category", err)
		return
	}
	h.console.Orchestrator.SelectAll(c.Request.Context(), category)
	h.view(c)
}

func (h *handler) clearSelection(c *gin.Context) {
	h.console.Orchestrator.ClearSelection(c.Request.Context())
	h.view(c)
}

func (h *handler) analyze(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info("Processing analysis request")

	if _, err := h.console.Orchestrator.Submit(ctx); err != nil {
		respondError(c, determineStatusCode(err), "analysis failed", err)
		return
	}

	logger.WithFields(logrus.Fields{
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Analysis request completed")
	h.view(c)
}

func (h *handler) view(c *gin.Context) {
	c.JSON(http.StatusOK, ViewResponse{
		Console: h.console.Orchestrator.Snapshot(),
		View:    h.console.View.Snapshot(),
	})
}

func (h *handler) result(c *gin.Context) {
	img, handle, ok := h.console.View.Result()
	if !ok {
		respondError(c, http.StatusNotFound, "no result", apperrors.NewNotFoundError("No result is displayed", nil))
		return
	}
	c.Header("X-Result-Handle", handle)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func (h *handler) text(c *gin.Context) {
	out := h.console.Renderer.Render(h.console.View.Snapshot())
	logger.Debug("Rendered text view")
	c.String(http.StatusOK, out)
}

func (h *handler) metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.console.Metrics.GetMetrics())
}

func parseSlot(c *gin.Context) (imagecache.Slot, bool) {
	slot, err := imagecache.ParseSlot(c.Param("slot"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid slot", apperrors.NewValidationError("Unknown image slot", err))
		return "", false
	}
	return slot, true
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Sentinels first, they may be wrapped by an AppError
	switch {
	case errors.Is(err, orchestrator.ErrStaleSubmission),
		errors.Is(err, imagecache.ErrNotReconciled),
		errors.Is(err, imagecache.ErrNoPendingPrompt):
		return http.StatusConflict
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: apperrors.UserMessage(err),
	})
}
