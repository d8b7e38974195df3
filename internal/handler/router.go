package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/topup-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина пополнений.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/packages", h.ListPackages)
		r.Get("/packages/{id}/quote", h.Quote)
		r.Get("/settings", h.GetSettings)

		r.Route("/user", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Get("/me", h.Me)
				r.Post("/orders", h.PlaceOrder)
				r.Get("/orders", h.GetOrders)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)
			r.Use(h.requireAdmin)

			r.Get("/orders", h.AdminListOrders)
			r.Patch("/orders/{id}", h.UpdateOrderStatus)

			r.Post("/packages", h.AddPackage)
			r.Patch("/packages/{id}", h.UpdatePackage)
			r.Delete("/packages/{id}", h.DeletePackage)

			r.Put("/settings", h.UpdateSettings)
			r.Get("/stats", h.Stats)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
