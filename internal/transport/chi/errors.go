package chi

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/citysnap/gateway/internal/domain"
	"github.com/citysnap/gateway/internal/logger"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "not_found"
	CodeUpstreamError    = "upstream_error"
	CodeRateLimited      = "rate_limited"
	CodePayloadTooLarge  = "payload_too_large"
	CodeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error, msg string) bool

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, r, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, r, err, msg) {
			log.Warn("Request failed", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// safeDomainMessage returns a client-facing message. Upstream causes stay in the logs.
func safeDomainMessage(err error) string {
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return "upstream provider " + ue.Provider + " failed"
	}
	if domain.Kind(err) != nil {
		return err.Error()
	}
	return "internal error"
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message})
}
