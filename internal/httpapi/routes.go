package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fairwaylive/draw-backend/internal/hub"
	"github.com/fairwaylive/draw-backend/internal/store"
	"github.com/fairwaylive/draw-backend/internal/ws"
)

// SetupRoutes wires the control surface (admin; authorization happens
// upstream of this service) and the read surface (any tournament viewer).
func SetupRoutes(h *hub.Hub, st store.Store, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Control surface
	r.Post("/api/sessions", CreateSession(h, log))
	r.Post("/api/sessions/{sessionID}/actions", DispatchAction(h, log))

	// Read surface
	r.Get("/api/sessions/{sessionID}", GetSession(h))
	r.Get("/api/tournaments/{tournamentID}/draw", GetTournamentDraw(h))
	r.Get("/api/sessions/{sessionID}/audit", GetAudit(st, log))
	r.Get("/api/sessions/{sessionID}/export", ExportAssignments(st, log))
	r.Get("/ws", ws.Handler(h))

	r.Get("/healthz", Healthz)
	return r
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
