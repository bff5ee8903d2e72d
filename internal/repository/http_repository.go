package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"go-motion-inspector/internal/aggregator"
	apperrors "go-motion-inspector/internal/errors"
	"go-motion-inspector/internal/logger"
	"go-motion-inspector/pkg/models"
)

// Service endpoint paths, relative to the base URL
const (
	PathAvailableMethods    = "/available-methods"
	PathSingleMethod        = "/single-method"
	PathCompareMethods      = "/compare-methods"
	PathVisualizeComparison = "/visualize-comparison"
)

const maxErrorBodyBytes = 64 * 1024

// HTTPAnalysisService implements AnalysisService over HTTP multipart requests.
// Failed calls are reported once and never retried.
type HTTPAnalysisService struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Options tunes the HTTP client
type Options struct {
	Timeout time.Duration
	// RateInterval spaces outbound calls; zero disables limiting
	RateInterval time.Duration
	// Client overrides the default client, mostly for tests
	Client *http.Client
}

// NewHTTPAnalysisService creates a client for the service rooted at baseURL
func NewHTTPAnalysisService(baseURL string, opts Options) *HTTPAnalysisService {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}

		transport := &http.Transport{
			// A console talks to one service host
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,

			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,

			MaxResponseHeaderBytes: 16 * 1024,
		}

		client = &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		}
	}

	var limiter *rate.Limiter
	if opts.RateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RateInterval), 2)
	}

	return &HTTPAnalysisService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: limiter,
	}
}

func (s *HTTPAnalysisService) AvailableMethods(ctx context.Context) (*models.MethodListing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+PathAvailableMethods, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var listing models.MethodListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, apperrors.NewMalformedResponseError("Malformed method listing", err)
	}
	return &listing, nil
}

func (s *HTTPAnalysisService) RenderSingle(ctx context.Context, pair ImagePair, method string) (*models.RenderedImage, error) {
	req, err := s.multipartRequest(ctx, PathSingleMethod, pair, map[string]string{
		"method_name": method,
	})
	if err != nil {
		return nil, err
	}
	return s.doImage(req)
}

func (s *HTTPAnalysisService) CompareMethods(ctx context.Context, pair ImagePair) (*models.AggregatedComparison, error) {
	req, err := s.multipartRequest(ctx, PathCompareMethods, pair, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	agg, err := aggregator.DecodeComparison(resp.Body)
	if err != nil {
		return nil, apperrors.NewMalformedResponseError("Malformed comparison response", err)
	}
	return agg, nil
}

func (s *HTTPAnalysisService) VisualizeComparison(ctx context.Context, pair ImagePair, selected []string) (*models.RenderedImage, error) {
	encoded, err := json.Marshal(selected)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode selected methods", err)
	}
	req, err := s.multipartRequest(ctx, PathVisualizeComparison, pair, map[string]string{
		"selected_methods": string(encoded),
	})
	if err != nil {
		return nil, err
	}
	return s.doImage(req)
}

// multipartRequest builds a POST with image1, image2 and extra text fields
func (s *HTTPAnalysisService) multipartRequest(ctx context.Context, path string, pair ImagePair, fields map[string]string) (*http.Request, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	parts := []struct {
		field string
		img   models.ImageData
	}{
		{"image1", pair.Image1},
		{"image2", pair.Image2},
	}
	for _, p := range parts {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.field+p.img.Extension()))
		header.Set("Content-Type", p.img.MimeType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to build multipart body", err)
		}
		if _, err := part.Write(p.img.Data); err != nil {
			return nil, apperrors.NewInternalError("failed to build multipart body", err)
		}
	}

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, apperrors.NewInternalError("failed to build multipart body", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, apperrors.NewInternalError("failed to build multipart body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, &body)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, nil
}

// do sends the request once and converts transport failures and non-2xx
// statuses into AppErrors. On success the caller owns resp.Body.
func (s *HTTPAnalysisService) do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, classifyTransportError(fmt.Errorf("rate limiter: %w", err))
		}
	}

	req.Header.Set("User-Agent", "Go-Motion-Inspector/1.0")

	start := time.Now()
	resp, err := s.client.Do(req)
	fields := logrus.Fields{
		"method":      req.Method,
		"path":        req.URL.Path,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		logger.WithError(err).WithFields(fields).Warn("Analysis service request failed")
		return nil, classifyTransportError(err)
	}
	fields["status"] = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		statusErr := &StatusError{StatusCode: resp.StatusCode, Message: readServiceError(resp.Body)}
		logger.WithFields(fields).WithField("error", statusErr.Message).Warn("Analysis service returned an error status")

		message := statusErr.Message
		if message == "" {
			message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, apperrors.NewNetworkError(message, statusErr)
	}

	logger.WithFields(fields).Debug("Analysis service request completed")
	return resp, nil
}

// doImage sends the request and expects a binary image body
func (s *HTTPAnalysisService) doImage(req *http.Request) (*models.RenderedImage, error) {
	req.Header.Set("Accept", "image/png, image/jpeg, image/*")

	resp, err := s.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("Failed to read visualization", err)
	}
	if len(data) == 0 {
		return nil, apperrors.NewMalformedResponseError("Empty visualization response", ErrUnexpectedContent)
	}

	contentType := mimetype.Detect(data).String()
	if declared, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && strings.HasPrefix(declared, "image/") {
		contentType = declared
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewMalformedResponseError("Visualization response is not an image", ErrUnexpectedContent).
			WithDetails("content type " + contentType)
	}

	return &models.RenderedImage{ContentType: contentType, Data: data}, nil
}

// readServiceError extracts the service's error text from a JSON error body.
// FastAPI style {"detail": "..."} bodies are accepted as well.
func readServiceError(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var parsed models.ServiceErrorBody
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Detail != "" {
			return parsed.Detail
		}
	}
	return ""
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("Analysis service timed out", err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError("Analysis service timed out", err)
	}
	return apperrors.NewNetworkError("Failed to reach analysis service", err)
}
