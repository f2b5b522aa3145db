package service

import (
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/config"
	"github.com/talkcircle/talkcircle-backend/internal/features"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
	"github.com/talkcircle/talkcircle-backend/internal/scoring"
)

type Services struct {
	Matchmaking *MatchmakingService
	Room        *RoomService
	Scoring     *ScoringService
}

func NewServices(
	repos *repository.Repositories,
	liveStore *live.Store,
	sessions SessionEnder,
	notifier MatchNotifier,
	cfg *config.Config,
	logger *logrus.Logger,
) *Services {
	scorer := scoring.NewScorer(features.NewLexiconExtractor(), cfg.Tuning())
	scoringService := NewScoringService(repos.Room, repos.Utterance, repos.ScoreReport, scorer, logger)
	return &Services{
		Matchmaking: NewMatchmakingService(repos.Ticket, repos.Matchmaking, repos.Room, liveStore, notifier, cfg, logger),
		Room:        NewRoomService(repos.Room, repos.Utterance, liveStore, sessions, scoringService, logger),
		Scoring:     scoringService,
	}
}
