package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"teamclock/middleware"
	"teamclock/services"
)

type ReportHandler struct {
	reports  *services.ReportService
	location *time.Location
	now      func() time.Time
}

func NewReportHandler(reports *services.ReportService, location *time.Location) *ReportHandler {
	if location == nil {
		location = time.UTC
	}
	return &ReportHandler{reports: reports, location: location, now: time.Now}
}

func (h *ReportHandler) Team(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Team(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExportCSV streams a month of time entries. Month and year default to the
// current month; team_id narrows the export to one team.
func (h *ReportHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.location)
	params := services.ExportParams{Month: int(now.Month()), Year: now.Year()}

	query := r.URL.Query()
	if monthStr := query.Get("month"); monthStr != "" {
		month, err := strconv.Atoi(monthStr)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "Invalid month.")
			return
		}
		params.Month = month
	}
	if yearStr := query.Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "Invalid year.")
			return
		}
		params.Year = year
	}
	if teamIDStr := query.Get("team_id"); teamIDStr != "" {
		tid, err := strconv.ParseUint(teamIDStr, 10, 32)
		if err != nil || tid == 0 {
			writeErrorMessage(w, http.StatusBadRequest, "Invalid team_id.")
			return
		}
		teamID := uint(tid)
		params.TeamID = &teamID
	}

	export, err := h.reports.Export(r.Context(), currentUser(r), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename))
	if err := export.WriteCSV(w, h.location); err != nil {
		// The response is already committed at this point.
		middleware.LoggerFromContext(r.Context()).Error("write csv export", "error", err)
	}
}
