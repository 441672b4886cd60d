package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/sigil/internal/domain"
	"github.com/prn-tf/sigil/internal/service"
)

// DiagnosticHandler serves the object store health check.
type DiagnosticHandler struct {
	diagnosticService *service.DiagnosticService
	logger            zerolog.Logger
}

// NewDiagnosticHandler creates a new DiagnosticHandler.
func NewDiagnosticHandler(diagnosticService *service.DiagnosticService, logger zerolog.Logger) *DiagnosticHandler {
	return &DiagnosticHandler{
		diagnosticService: diagnosticService,
		logger:            logger.With().Str("handler", "diagnostic").Logger(),
	}
}

// R2 handles GET /api/health/r2.
//
// 200 with the step report on success; 500 with the failed step otherwise;
// 503 when the store is not configured or another check is running.
func (h *DiagnosticHandler) R2(w http.ResponseWriter, r *http.Request) {
	report, err := h.diagnosticService.Run(r.Context())
	if err == nil {
		writeJSON(w, http.StatusOK, report)
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrDiagnosticBusy) || errors.Is(err, domain.ErrNotConfigured) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h.diagnosticService.NewDiagnosticFailure(err))
}
