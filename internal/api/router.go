package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/api/handlers"
	"github.com/talkcircle/talkcircle-backend/internal/service"
	"github.com/talkcircle/talkcircle-backend/internal/websocket"
)

func NewRouter(services *service.Services, hub *websocket.Hub, logger *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	matchmakingHandler := handlers.NewMatchmakingHandler(services.Matchmaking)
	roomHandler := handlers.NewRoomHandler(services.Room, services.Scoring)
	wsHandler := handlers.NewWebSocketHandler(hub, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/queue", func(r chi.Router) {
			r.Post("/join", matchmakingHandler.Join)
			r.Get("/status", matchmakingHandler.Status)
			r.Post("/leave", matchmakingHandler.Leave)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Post("/", roomHandler.Create)
			r.Get("/{id}", roomHandler.Get)
			r.Post("/{id}/start", roomHandler.Start)
			r.Post("/{id}/leave", roomHandler.Leave)
			r.Delete("/{id}", roomHandler.Delete)
			r.Get("/{id}/transcript", roomHandler.Transcript)
			r.Get("/{id}/scores", roomHandler.Scores)
			r.Get("/{id}/metrics", roomHandler.LiveMetrics)
		})

		r.Get("/ws", wsHandler.Handle)
	})

	return r
}
