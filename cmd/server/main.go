package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/api"
	"github.com/talkcircle/talkcircle-backend/internal/config"
	"github.com/talkcircle/talkcircle-backend/internal/features"
	"github.com/talkcircle/talkcircle-backend/internal/ingest"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/repository/postgres"
	"github.com/talkcircle/talkcircle-backend/internal/service"
	"github.com/talkcircle/talkcircle-backend/internal/websocket"
)

func main() {
	// Optional local overrides; the environment wins in deployment.
	godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	repos := postgres.NewRepositories(db)

	extractor := features.NewLexiconExtractor()
	liveStore := live.NewStore(extractor, cfg.Tuning(), logger)

	// The ingest manager and hub reference each other: the hub routes audio
	// frames into sessions, sessions broadcast snapshots through the hub.
	// A small indirection breaks the construction cycle; the hub is bound
	// before anything can broadcast.
	broadcaster := &hubBroadcaster{}
	manager := ingest.NewManager(
		ingest.WebsocketDialer(cfg.STTURL, logger),
		liveStore,
		repos.Utterance,
		broadcaster,
		logger,
	)
	hub := websocket.NewHub(manager, logger)
	broadcaster.hub = hub
	go hub.Run()

	services := service.NewServices(repos, liveStore, manager, hub, cfg, logger)
	router := api.NewRouter(services, hub, logger)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("server forced to shutdown")
	}
	hub.Stop()

	logger.Info("server stopped")
}

type hubBroadcaster struct {
	hub *websocket.Hub
}

func (b *hubBroadcaster) BroadcastRoomMetrics(roomID uuid.UUID, snapshot live.RoomMetricsSnapshot) {
	b.hub.BroadcastRoomMetrics(roomID, snapshot)
}
