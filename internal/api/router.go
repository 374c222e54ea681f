package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/amelfeddag/SanoX-public/internal/appointment"
)

type RouterConfig struct {
	Bookings        BookingService
	Notifications   NotificationService
	Directory       DirectoryService
	Reviews         ReviewService
	DB              Pinger
	Cache           Pinger
	Log             *zap.Logger
	JWTSecret       []byte
	CORSOrigins     []string
	RateLimitPerMin int
	Env             string
	Version         string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.RateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.DB, cfg.Cache, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	appts := &appointmentHandlers{svc: cfg.Bookings, log: cfg.Log}
	notes := &notificationHandlers{svc: cfg.Notifications, log: cfg.Log}
	dir := &directoryHandlers{svc: cfg.Directory, log: cfg.Log}
	reviews := &reviewHandlers{svc: cfg.Reviews, log: cfg.Log}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Get("/doctors", dir.list)
		r.Get("/doctors/specialties", dir.specialties)
		r.Get("/doctors/{doctorID}/reviews", reviews.forDoctor)

		// Patient endpoints
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(appointment.RolePatient))
			r.Get("/doctors/{doctorID}/available-slots", appts.availableSlots)
			r.Post("/appointments", appts.book)
			r.Get("/appointments/mine", appts.listMine)
			r.Patch("/appointments/{id}/cancel", appts.cancel())
			r.Post("/reviews", reviews.create)
			r.Get("/reviews/mine", reviews.mine)
			r.Patch("/reviews/{id}", reviews.update)
			r.Delete("/reviews/{id}", reviews.delete)
		})

		// Doctor endpoints
		r.Route("/doctor", func(r chi.Router) {
			r.Use(RequireRole(appointment.RoleDoctor))
			r.Get("/appointments", appts.listDoctor)
			r.Patch("/appointments/{id}/confirm", appts.confirm())
			r.Patch("/appointments/{id}/reject", appts.reject())
			r.Patch("/appointments/{id}/complete", appts.complete())
			r.Get("/availability", appts.getAvailability)
			r.Put("/availability", appts.putAvailability)
			r.Get("/reviews", reviews.aboutMe)
			r.Get("/reviews/summary", reviews.summary)
			r.Post("/reviews/{id}/respond", reviews.respond)
		})

		r.Get("/appointments/{id}", appts.get)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notes.list)
			r.Get("/stats", notes.stats)
			r.Patch("/read-all", notes.markAllRead)
			r.Patch("/{id}/read", notes.markRead)
			r.Delete("/{id}", notes.delete)
		})
	})

	return r
}
