package validation

import (
	"net/url"
	"strings"

	apperrors "go-motion-inspector/internal/errors"
)

// ServiceURLValidator checks the base URL of the remote analysis service.
// Endpoint paths are appended to it, so it must be a plain http(s) origin
// with an optional path prefix.
type ServiceURLValidator struct {
	hosts map[string]struct{}
}

// NewServiceURLValidator restricts the service to allowedHosts; with no
// hosts every host is accepted.
func NewServiceURLValidator(allowedHosts ...string) *ServiceURLValidator {
	v := &ServiceURLValidator{hosts: make(map[string]struct{}, len(allowedHosts))}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			v.hosts[h] = struct{}{}
		}
	}
	return v
}

func (v *ServiceURLValidator) Validate(serviceURL string) error {
	if strings.TrimSpace(serviceURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	u, err := url.Parse(serviceURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if u.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	if !v.allows(u.Hostname()) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return apperrors.NewValidationError("URL must not carry a query or fragment", nil)
	}
	return nil
}

func (v *ServiceURLValidator) allows(host string) bool {
	if len(v.hosts) == 0 {
		return true
	}
	_, ok := v.hosts[strings.ToLower(host)]
	return ok
}
