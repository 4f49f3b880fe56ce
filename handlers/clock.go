package handlers

import (
	"net/http"

	"teamclock/models"
	"teamclock/services"
)

type ClockHandler struct {
	sessions *services.SessionManager
}

func NewClockHandler(sessions *services.SessionManager) *ClockHandler {
	return &ClockHandler{sessions: sessions}
}

type entryResponse struct {
	Message string            `json:"message"`
	Entry   *models.TimeEntry `json:"entry"`
}

func (h *ClockHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.ClockIn(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Message: "Clocked in successfully.", Entry: entry})
}

func (h *ClockHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sessions.ClockOut(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{Message: "Clocked out successfully.", Entry: entry})
}

func (h *ClockHandler) MyEntries(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	entries, err := h.sessions.ListEntries(r.Context(), user, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *ClockHandler) MemberEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.sessions.ListEntries(r.Context(), currentUser(r), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type upsertRequest struct {
	UserID   uint   `json:"user_id"`
	ClockIn  string `json:"clock_in"`
	ClockOut string `json:"clock_out"`
	EntryID  uint   `json:"entry_id"`
}

func (h *ClockHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.sessions.Upsert(r.Context(), currentUser(r), services.UpsertParams{
		UserID:   req.UserID,
		ClockIn:  req.ClockIn,
		ClockOut: req.ClockOut,
		EntryID:  req.EntryID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
