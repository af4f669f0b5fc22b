package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/tournament-bot/models"
	"github.com/Dosada05/tournament-bot/services"
	"github.com/go-chi/chi/v5"
)

type ReportHandler struct {
	errorReporter
	reportService services.ReportService
	authorizer    *services.Authorizer
	now           func() time.Time
}

func NewReportHandler(rs services.ReportService, authorizer *services.Authorizer, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		errorReporter: errorReporter{logger: logger},
		reportService: rs,
		authorizer:    authorizer,
		now:           time.Now,
	}
}

// GetReport обрабатывает GET /api/admin/reports/{period}, period: day, week или month.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	admin, err := currentAdmin(r, h.authorizer)
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	period, err := models.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, fmt.Errorf("%w: %v", services.ErrInvalidPeriod, err))
		return
	}

	report, err := h.reportService.Collect(r.Context(), admin, period, h.now())
	if err != nil {
		h.mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
