package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"teamclock/middleware"
	"teamclock/models"
	"teamclock/services"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("Invalid JSON body.")

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, message{Message: msg})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps service errors onto status codes. Anything unknown is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, services.ErrAlreadyOpenSession),
		errors.Is(err, services.ErrNoOpenSession),
		errors.Is(err, services.ErrInvalidTimestamp),
		errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		middleware.LoggerFromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorMessage(w, status, "Internal server error.")
		return
	}
	writeErrorMessage(w, status, err.Error())
}

// decodeJSON reads a JSON object body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// pathID parses the numeric URL parameter name.
func pathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil || id == 0 {
		return 0, &services.Error{Kind: services.ErrNotFound, Message: "Not found."}
	}
	return uint(id), nil
}

func currentUser(r *http.Request) *models.User {
	return middleware.GetUserFromContext(r.Context())
}

// userView is the public shape of an account.
type userView struct {
	ID               uint        `json:"id"`
	Email            string      `json:"email"`
	FirstName        string      `json:"first_name"`
	LastName         string      `json:"last_name"`
	FullName         string      `json:"full_name"`
	PhoneNumber      string      `json:"phone_number"`
	Role             models.Role `json:"role"`
	TeamID           *uint       `json:"team_id"`
	TwoFactorEnabled bool        `json:"two_factor_enabled"`
}

func newUserView(u *models.User) userView {
	return userView{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		FullName:         u.FullName(),
		PhoneNumber:      u.PhoneNumber,
		Role:             u.Role,
		TeamID:           u.TeamID,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}
