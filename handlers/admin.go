package handlers

import (
	"fmt"
	"net/http"

	"teamclock/services"
)

type AdminHandler struct {
	users *services.UserStore
}

func NewAdminHandler(users *services.UserStore) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]userView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

type roleRequest struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.SetRole(r.Context(), currentUser(r), req.UserID, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

type resetPasswordRequest struct {
	UserID      uint   `json:"user_id"`
	NewPassword string `json:"new_password"`
}

func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.ResetPassword(r.Context(), currentUser(r), req.UserID, req.NewPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Password for %s has been reset.", user.Email))
}
