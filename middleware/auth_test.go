package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"teamclock/database"
	"teamclock/models"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *models.User) {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	user := models.User{Email: "a@x.com", FirstName: "A", LastName: "X", PhoneNumber: "1", PasswordHash: "x", Role: models.RoleManager}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewAuthenticator(db, "test-secret", time.Hour), &user
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	json.NewEncoder(w).Encode(map[string]any{"id": user.ID, "role": user.Role})
}

func serve(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	auth, user := newTestAuthenticator(t)
	handler := auth.Authenticate(http.HandlerFunc(echoUser))

	token, err := auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil || claims.UserID != user.ID || claims.Email != user.Email || claims.Role != models.RoleManager {
		t.Fatalf("claims = %+v, err %v", claims, err)
	}

	rec := serve(handler, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]any
	json.NewDecoder(rec.Body).Decode(&body)
	if body["id"] != float64(user.ID) {
		t.Fatalf("body = %v", body)
	}

	for name, tok := range map[string]string{"missing": "", "garbage": "not-a-jwt"} {
		if rec := serve(handler, tok); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s token: status = %d", name, rec.Code)
		}
	}

	other := NewAuthenticator(auth.db, "other-secret", time.Hour)
	forged, _ := other.GenerateToken(user)
	if rec := serve(handler, forged); rec.Code != http.StatusUnauthorized {
		t.Errorf("forged token: status = %d", rec.Code)
	}
}

func TestAuthenticateExpiredToken(t *testing.T) {
	auth, user := newTestAuthenticator(t)
	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	auth.now = time.Now

	_, err = auth.ValidateToken(token)
	if !IsExpired(err) {
		t.Fatalf("expected expired token, got %v", err)
	}
	rec := serve(auth.Authenticate(http.HandlerFunc(echoUser)), token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	gate := RequireRole(models.RoleManager, models.RoleAdmin)(ok)

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"user", &models.User{Role: models.RoleUser}, http.StatusForbidden},
		{"manager", &models.User{Role: models.RoleManager}, http.StatusNoContent},
		{"admin", &models.User{Role: models.RoleAdmin}, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != nil {
				req = req.WithContext(WithUser(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()
			gate.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	var seen string
	h := RequestLogger(LoggerFromContext(context.Background()))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(RequestIDHeader)
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot || seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("status %d, request id %q / %q", rec.Code, seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("incoming request id not kept: %q", rec.Header().Get(RequestIDHeader))
	}
}
