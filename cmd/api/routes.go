package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/audit"
	"github.com/noah-isme/ecofor-market/internal/auth"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/catalog"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/health"
	"github.com/noah-isme/ecofor-market/internal/invoice"
	"github.com/noah-isme/ecofor-market/internal/messaging"
	"github.com/noah-isme/ecofor-market/internal/obs"
	"github.com/noah-isme/ecofor-market/internal/order"
	"github.com/noah-isme/ecofor-market/internal/ratelimit"
	"github.com/noah-isme/ecofor-market/internal/security"
	"github.com/noah-isme/ecofor-market/internal/session"
)

// server bundles every HTTP-facing component so routes can be built (and
// tested) without the process bootstrap.
type server struct {
	Logger      zerolog.Logger
	ServiceName string
	Tracing     bool
	Metrics     *obs.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Session   session.Middleware
	Auth      auth.Middleware
	Idem      common.Idem
	CSRF      *security.CSRF
	CORS      func(http.Handler) http.Handler
	Headers   security.Headers
	BodyLimit security.BodyLimit
	AuthLimit ratelimit.Handler
	OrderRate ratelimit.Handler

	Health    health.Handler
	AuthH     *auth.Handler
	Catalog   *catalog.Handler
	Cart      *cart.Handler
	Orders    *order.Handler
	Invoices  *invoice.Handler
	Messaging *messaging.Handler
	Reports   audit.Handler
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if s.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: s.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: s.Logger}.Middleware)
	r.Use(s.Headers.Middleware)
	if s.CORS != nil {
		r.Use(s.CORS)
	}

	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", s.Health.Live)
	r.Get("/health/ready", s.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		if s.Tracing {
			v.Use(obs.TracingMiddleware(s.ServiceName))
		}
		v.Use(s.BodyLimit.Middleware)
		v.Use(s.Session.Handler)
		v.Use(s.Auth.Authenticate)
		if s.CSRF != nil {
			v.Use(s.CSRF.Middleware)
			v.Get("/csrf", s.CSRF.Issue)
		}

		v.Route("/catalog", func(c chi.Router) {
			c.Get("/categories", s.Catalog.Categories)
			c.Get("/products", s.Catalog.Products)
			c.Get("/products/{id}", s.Catalog.Product)
		})

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", s.Cart.Get)
			c.Delete("/", s.Cart.Clear)
			c.Post("/items/{productID}", s.Cart.AddItem)
			c.Post("/items/{productID}/decrement", s.Cart.DecrementItem)
			c.Delete("/items/{productID}", s.Cart.RemoveItem)
		})

		v.Route("/auth", func(a chi.Router) {
			a.With(s.AuthLimit.Middleware).Post("/register", s.AuthH.Register)
			a.With(s.AuthLimit.Middleware).Post("/login", s.AuthH.Login)
			a.With(s.Auth.RequireAuth).Get("/me", s.AuthH.Me)
		})

		v.Group(func(p chi.Router) {
			p.Use(s.Auth.RequireAuth)

			p.Group(func(w chi.Router) {
				w.Use(s.OrderRate.Middleware, s.Idem.Middleware)
				w.Post("/checkout", s.Orders.Checkout)
				w.Post("/quotes", s.Orders.CreateQuote)
				w.Post("/quotes/{id}/request", s.Messaging.RequestQuote)
				w.Post("/orders/{id}/confirm-payment", s.Orders.ConfirmPayment)
				w.Post("/invoices", s.Invoices.Generate)
			})
			p.Get("/quotes/{id}/document", s.Orders.QuoteDocument)

			p.Get("/orders", s.Orders.List)
			p.Get("/orders/{id}", s.Orders.Get)

			p.Get("/invoices/preview", s.Invoices.Preview)
			p.Get("/invoices", s.Invoices.List)
			p.Get("/invoices/{id}", s.Invoices.Get)
			p.Get("/invoices/{id}/document", s.Invoices.Document)

			p.With(auth.RequireRole(db.RoleCustomerSupport, db.RoleAdmin)).Get("/messages", s.Messaging.Inbox)

			p.Route("/admin", func(a chi.Router) {
				a.Use(auth.RequireRole(db.RoleAdmin))
				a.Get("/products", s.Catalog.AdminList)
				a.Post("/products", s.Catalog.AdminCreate)
				a.Put("/products/{id}", s.Catalog.AdminUpdate)
				a.Delete("/products/{id}", s.Catalog.AdminDelete)
				a.Get("/reports", s.Reports.List)
			})
		})
	})
	return r
}
