package handlers

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/biometric-advisor/pkg/apperrors"
	"github.com/ekaya-inc/biometric-advisor/pkg/audit"
	"github.com/ekaya-inc/biometric-advisor/pkg/llm"
	"github.com/ekaya-inc/biometric-advisor/pkg/middleware"
	"github.com/ekaya-inc/biometric-advisor/pkg/services"
	sqlcheck "github.com/ekaya-inc/biometric-advisor/pkg/sql"
)

// DateParamLayout is the accepted format of the from/to query parameters.
const DateParamLayout = "2006-01-02"

// AdviceHandler serves the advice endpoint.
type AdviceHandler struct {
	service services.AdviceService
	auditor *audit.SecurityAuditor
	logger  *zap.Logger
}

// NewAdviceHandler creates a new AdviceHandler.
func NewAdviceHandler(service services.AdviceService, auditor *audit.SecurityAuditor, logger *zap.Logger) *AdviceHandler {
	return &AdviceHandler{
		service: service,
		auditor: auditor,
		logger:  logger.Named("advice_handler"),
	}
}

// RegisterRoutes registers GET / only; other methods get 405 from the mux.
func (h *AdviceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.GetAdvice)
}

// GetAdvice handles GET /?id=<participant>&from=YYYY-MM-DD&to=YYYY-MM-DD.
// All parameters are optional.
func (h *AdviceHandler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	requestID, ok := middleware.GetRequestID(r.Context())
	if !ok {
		requestID = uuid.New()
	}
	clientIP := clientIPFromRequest(r)

	query := r.URL.Query()
	req := services.FetchRequest{ParticipantID: strings.TrimSpace(query.Get("id"))}

	params := map[string]string{"id": req.ParticipantID, "from": query.Get("from"), "to": query.Get("to")}
	for _, result := range sqlcheck.CheckAllParameters(params) {
		h.auditor.LogInjectionAttempt(r.Context(), requestID, audit.SQLInjectionDetails{
			ParamName:   result.ParamName,
			ParamValue:  result.ParamValue,
			Fingerprint: result.Fingerprint,
		}, clientIP)
	}

	var err error
	if req.From, err = parseDateParam(query.Get("from")); err != nil {
		h.rejectParam(w, r, requestID, clientIP, "from", err)
		return
	}
	if req.To, err = parseDateParam(query.Get("to")); err != nil {
		h.rejectParam(w, r, requestID, clientIP, "to", err)
		return
	}

	ctx := llm.WithConversationID(r.Context(), requestID)
	advice, err := h.service.GetAdvice(ctx, req)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, advice); err != nil {
		h.logger.Error("Failed to encode advice response",
			zap.String("request_id", requestID.String()),
			zap.Error(err))
	}
}

func (h *AdviceHandler) rejectParam(w http.ResponseWriter, r *http.Request, requestID uuid.UUID, clientIP, name string, err error) {
	msg := fmt.Sprintf("Invalid '%s' date; expected YYYY-MM-DD", name)
	h.auditor.LogParameterValidation(r.Context(), requestID, fmt.Sprintf("%s: %v", msg, err), clientIP)
	if err := ErrorResponse(w, http.StatusBadRequest, ErrorBody{Error: msg}); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// writeError maps a stage failure to its status code and JSON body.
func (h *AdviceHandler) writeError(w http.ResponseWriter, requestID uuid.UUID, err error) {
	var stageErr *apperrors.StageError
	if !errors.As(err, &stageErr) {
		h.logger.Error("Advice request failed",
			zap.String("request_id", requestID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, ErrorBody{Error: "Internal server error"}); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	status := StatusForKind(stageErr.Kind)
	fields := []zap.Field{
		zap.String("request_id", requestID.String()),
		zap.String("kind", string(stageErr.Kind)),
		zap.Int("status", status),
		zap.String("error", stageErr.Message),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Advice request failed", fields...)
	} else {
		h.logger.Warn("Advice request rejected", fields...)
	}

	body := ErrorBody{Error: stageErr.Message, Details: stageErr.Details}
	if stageErr.Payload != nil {
		body.Advice = stageErr.Payload
	}
	if err := ErrorResponse(w, status, body); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

// StatusForKind returns the HTTP status for a stage failure.
func StatusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindGenerationTimeout:
		return http.StatusRequestTimeout
	case apperrors.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseDateParam returns the zero time for an absent parameter.
func parseDateParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateParamLayout, value)
}

// clientIPFromRequest prefers the first X-Forwarded-For hop set by the load balancer.
func clientIPFromRequest(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
