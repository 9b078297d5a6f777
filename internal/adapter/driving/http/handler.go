package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sorenkv/glance/internal/core/port"
	"github.com/sorenkv/glance/internal/core/service"
)

type Handler struct {
	CallService  *service.CallService
	RelayService *service.RelayService
	Identity     port.IdentityResolver
}

func NewHandler(calls *service.CallService, relay *service.RelayService, identity port.IdentityResolver) *Handler {
	return &Handler{
		CallService:  calls,
		RelayService: relay,
		Identity:     identity,
	}
}

func (h *Handler) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.WithIdentity)

		r.Post("/calls", h.CreateCall)
		r.Get("/calls/incoming", h.IncomingCalls)
		r.Delete("/calls/{callID}", h.EndCall)
		r.Get("/calls/{callID}/events", h.CallEvents)

		r.Get("/signaling/{callID}", h.LookupCall)
		r.Post("/signaling/{callID}/answer", h.AnswerCall)
		r.Post("/signaling/{callID}/candidates", h.PublishCandidate)
		r.Get("/signaling/{callID}/candidates", h.CandidateFeed)
	})

	return r
}
