package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-learning/pkg/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Detail  string `json:"detail"`
	Type    string `json:"type"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status and writes an ErrorBody. Errors without
// a public message are logged with the full chain and answered generically.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, r *http.Request, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	typed := apperr.As(err)
	if typed == nil {
		typed = apperr.Wrap(apperr.KindInternal, err, "")
	}
	meta := apperr.MetadataFor(typed.Kind)

	body := ErrorBody{Detail: meta.PublicMessage, Type: string(typed.Kind)}
	if meta.ExposeMessage && typed.Message != "" {
		body.Detail = typed.Message
	}
	if meta.DetailsAllowed && typed.Details != nil {
		body.Details = typed.Details
	}

	if logger != nil {
		fields := []any{"type", typed.Kind, "status", meta.HTTPStatus, "err", err}
		if r != nil {
			fields = append(fields, "method", r.Method, "path", r.URL.Path)
		}
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logger.Errorw("request failed", fields...)
		} else {
			logger.Debugw("request rejected", fields...)
		}
	}

	WriteJSON(w, meta.HTTPStatus, body)
}

// Message is the body for endpoints that only acknowledge.
type Message struct {
	Message string `json:"message"`
}
