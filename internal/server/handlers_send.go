package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/minehubyt/Anand-Pandey/internal/messaging"
)

// handleSend is the email relay. It answers with the provider's own
// response so clients in relay mode see what the provider saw.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		s.errorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if s.deps.Provider == nil {
		s.log.Error("send requested but no email provider is configured")
		s.errorResponse(w, http.StatusInternalServerError, "Email provider is not configured")
		return
	}

	var msg messaging.Message
	if err := s.decode(w, r, &msg); err != nil {
		s.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.sendTimeout)
	defer cancel()

	rcpt, err := s.deps.Provider.Send(ctx, msg)
	if err != nil {
		var de *messaging.DeliveryError
		if errors.As(err, &de) && de.Rejected() {
			s.log.Warn("provider rejected message", zap.String("subject", msg.Subject), zap.Error(err))
			s.errorResponse(w, http.StatusBadRequest, de.Message)
			return
		}
		s.log.Error("send failed", zap.String("subject", msg.Subject), zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if len(rcpt.Payload) > 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(rcpt.Payload)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"id": rcpt.ID})
}

// NewSendHandler serves the email relay on its own, for deployments that
// run it as a separate function. Every path is the relay.
func NewSendHandler(provider messaging.Provider, allowedOrigin string, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	s := &Server{
		deps:        Deps{Provider: provider, Logger: log},
		cfg:         Config{AllowedOrigin: allowedOrigin},
		log:         log,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		sendTimeout: 20 * time.Second,
	}
	return s.withLogging(s.withCORS(http.HandlerFunc(s.handleSend)))
}
