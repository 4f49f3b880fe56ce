package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"teamclock/services"
)

type TeamHandler struct {
	teams  *services.TeamService
	status *services.StatusService
	hours  *services.WorkingHoursService
}

func NewTeamHandler(teams *services.TeamService, status *services.StatusService, hours *services.WorkingHoursService) *TeamHandler {
	return &TeamHandler{
		teams:  teams,
		status: status,
		hours:  hours,
	}
}

type teamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := h.teams.Create(r.Context(), currentUser(r), services.TeamParams{Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	team, err := h.teams.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req teamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := h.teams.Update(r.Context(), currentUser(r), id, services.TeamParams{Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "teamID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.teams.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	UserID uint  `json:"user_id"`
	TeamID *uint `json:"team_id"`
}

func (h *TeamHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := h.teams.AssignMember(r.Context(), currentUser(r), req.UserID, req.TeamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if team == nil {
		writeMessage(w, http.StatusOK, "User removed from team.")
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("User assigned to team %s", team.Name))
}

func (h *TeamHandler) Members(w http.ResponseWriter, r *http.Request) {
	roster, err := h.teams.TeamMembers(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (h *TeamHandler) MyTeam(w http.ResponseWriter, r *http.Request) {
	view, err := h.teams.MyTeam(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TeamHandler) MyStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.status.Today(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type statusRequest struct {
	UserID uint   `json:"user_id"`
	Status string `json:"status"`
	Note   string `json:"note"`
	Date   string `json:"date"`
}

func (h *TeamHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := h.status.Set(r.Context(), currentUser(r), services.SetStatusParams{
		UserID: req.UserID,
		Status: req.Status,
		Note:   req.Note,
		Date:   req.Date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *TeamHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	hours, err := h.hours.Get(r.Context(), currentUser(r), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hours)
}

type scheduleRequest struct {
	Schedules json.RawMessage `json:"schedules"`
}

type scheduleItem struct {
	DayOfWeek any    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *TeamHandler) SetWorkingHours(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var raw []scheduleItem
	if len(req.Schedules) > 0 && string(req.Schedules) != "null" {
		if err := json.Unmarshal(req.Schedules, &raw); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "schedules must be an array.")
			return
		}
	}

	items := make([]services.ScheduleItem, 0, len(raw))
	for _, item := range raw {
		items = append(items, services.ScheduleItem{
			DayOfWeek: dayOfWeek(item.DayOfWeek),
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
		})
	}
	hours, err := h.hours.Replace(r.Context(), currentUser(r), userID, items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hours)
}

// dayOfWeek accepts the day as a JSON number or a numeric string.
func dayOfWeek(v any) *int {
	switch d := v.(type) {
	case float64:
		if d == math.Trunc(d) {
			day := int(d)
			return &day
		}
	case string:
		if day, err := strconv.Atoi(strings.TrimSpace(d)); err == nil {
			return &day
		}
	}
	return nil
}
