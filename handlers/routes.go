package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"teamclock/middleware"
	"teamclock/models"
	"teamclock/services"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions carries what the HTTP layer needs beyond the services.
type RouterOptions struct {
	Auth     *middleware.Authenticator
	Logger   *slog.Logger
	Location *time.Location
}

// NewRouter builds the JSON API.
func NewRouter(svc *services.Services, opts RouterOptions) http.Handler {
	authHandler := NewAuthHandler(svc.Users, opts.Auth)
	clockHandler := NewClockHandler(svc.Sessions)
	taskHandler := NewTaskHandler(svc.Tasks)
	teamHandler := NewTeamHandler(svc.Teams, svc.Status, svc.WorkingHours)
	reportHandler := NewReportHandler(svc.Reports, opts.Location)
	adminHandler := NewAdminHandler(svc.Users)

	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.CORS)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api/users", func(r chi.Router) {
		// Public routes
		r.Post("/register/", authHandler.Register)
		r.Post("/login/", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.Authenticate)

			r.Get("/me/", authHandler.Me)
			r.Put("/update/", authHandler.UpdateProfile)
			r.Put("/change-password/", authHandler.ChangePassword)
			r.Delete("/delete/", authHandler.DeleteAccount)

			r.Post("/clock-in/", clockHandler.ClockIn)
			r.Post("/clock-out/", clockHandler.ClockOut)
			r.Get("/time-entries/", clockHandler.MyEntries)

			r.Get("/me/status/", teamHandler.MyStatus)
			r.Get("/me/team/", teamHandler.MyTeam)

			r.Get("/tasks/", taskHandler.List)
			r.Post("/tasks/", taskHandler.Create)
			r.Get("/tasks/{taskID}/", taskHandler.Get)
			r.Put("/tasks/{taskID}/", taskHandler.Update)
			r.Delete("/tasks/{taskID}/", taskHandler.Delete)

			r.Get("/teams/", teamHandler.List)

			// Manager and admin routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleManager, models.RoleAdmin))
				r.Put("/team/assign/", teamHandler.Assign)
				r.Get("/team/members/", teamHandler.Members)
				r.Get("/team/members/{userID}/time-entries/", clockHandler.MemberEntries)
				r.Get("/team/members/{userID}/working-hours/", teamHandler.WorkingHours)
				r.Put("/team/members/{userID}/working-hours/", teamHandler.SetWorkingHours)
				r.Post("/team/status/", teamHandler.SetStatus)
				r.Post("/team/time-entries/upsert/", clockHandler.Upsert)
				r.Get("/team/reports/", reportHandler.Team)
				r.Get("/team/reports/export/", reportHandler.ExportCSV)
			})

			// Admin only routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/", adminHandler.ListUsers)
				r.Post("/teams/", teamHandler.Create)
				r.Get("/teams/{teamID}/", teamHandler.Get)
				r.Put("/teams/{teamID}/", teamHandler.Update)
				r.Delete("/teams/{teamID}/", teamHandler.Delete)
				r.Put("/admin/role/", adminHandler.SetRole)
				r.Post("/admin/reset-password/", adminHandler.ResetPassword)
			})
		})
	})

	return router
}
