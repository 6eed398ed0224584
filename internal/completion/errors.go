package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
)

// Reason classifies a failed completion call.
type Reason string

const (
	ReasonQuota     Reason = "quota"
	ReasonTimeout   Reason = "timeout"
	ReasonTransport Reason = "transport"
	ReasonUpstream  Reason = "upstream"
	ReasonEmpty     Reason = "empty"
)

var (
	// ErrNotConfigured is returned before any call when no API key is set.
	ErrNotConfigured   = apperr.New(apperr.KindServiceUnavailable, "AI service is not properly configured")
	ErrEmptyCompletion = errors.New("completion returned no text")
)

// Error is a call that was attempted and failed.
type Error struct {
	Reason    Reason
	LatencyMs int64
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion %s after %dms: %v", e.Reason, e.LatencyMs, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// PublicMessage is safe to show to end users.
func (e *Error) PublicMessage() string {
	switch e.Reason {
	case ReasonQuota:
		return "AI service quota exceeded. Please try again later."
	case ReasonTimeout:
		return "AI service timed out. Please try again later."
	case ReasonEmpty:
		return "AI service returned empty response"
	default:
		return "AI service is temporarily unavailable"
	}
}

func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || quotaSignal(fmt.Sprint(apiErr.Code), apiErr.Type, apiErr.Message) {
			return ReasonQuota
		}
		return ReasonUpstream
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == http.StatusTooManyRequests:
			return ReasonQuota
		case reqErr.HTTPStatusCode != 0:
			return ReasonUpstream
		}
	}
	return ReasonTransport
}

func quotaSignal(fields ...string) bool {
	for _, f := range fields {
		f = strings.ToLower(f)
		if strings.Contains(f, "quota") || strings.Contains(f, "rate_limit") || strings.Contains(f, "rate limit") {
			return true
		}
	}
	return false
}
