package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutesForTest returns a router with the auth routes mounted.
func (h *Handler) MountRoutesForTest() http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}
