package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/highshift/highshift/internal/auth"
	"github.com/highshift/highshift/internal/http/handlers"
	"github.com/highshift/highshift/internal/http/middlewares"
)

// Deps carries everything the HTTP surface needs. Handlers are
// constructed by the caller so tests can swap pieces out.
type Deps struct {
	Connect  *handlers.Connect
	Publish  *handlers.Publish
	Schedule *handlers.Schedule
	Accounts *handlers.Accounts
	Keys     *handlers.Keys
	Cron     *handlers.Cron
	Health   *handlers.Health

	Resolver   auth.Resolver
	CronSecret string
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middlewares.Recover)
	r.Use(middlewares.RequestID)
	r.Use(middlewares.Logging)

	// Public surface.
	r.Get("/health", d.Health.Check)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/connect/{provider}", d.Connect.Start)
	r.Get("/connect/{provider}/callback", d.Connect.Callback)

	// API-key guarded surface.
	r.Group(func(r chi.Router) {
		r.Use(middlewares.APIKey(d.Resolver))

		r.Post("/publish/multi", d.Publish.Multi)
		r.Post("/publish/{provider}", d.Publish.Single)

		r.Post("/schedule", d.Schedule.Create)
		r.Get("/schedule", d.Schedule.List)
		r.Get("/schedule/{id}", d.Schedule.Get)
		r.Delete("/schedule/{id}", d.Schedule.Cancel)

		r.Get("/linked-accounts", d.Accounts.List)
		r.Delete("/linked-accounts/{provider}/{accountId}", d.Accounts.Disconnect)

		r.Get("/key/me", d.Keys.Me)
		r.Post("/key/regenerate", d.Keys.Regenerate)
	})

	// Cron surface, shared-secret guarded.
	r.Group(func(r chi.Router) {
		r.Use(middlewares.CronSecret(d.CronSecret))

		r.Get("/cron/publish-scheduled", d.Cron.PublishScheduled)
		r.Post("/cron/publish-scheduled", d.Cron.PublishScheduled)
	})

	return r
}
