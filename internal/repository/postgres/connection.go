package postgres

import (
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	err = db.AutoMigrate(
		&domain.DiscussionRoom{},
		&domain.WaitingTicket{},
		&domain.Utterance{},
		&domain.ScoreReport{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Room:        NewRoomRepository(db),
		Ticket:      NewTicketRepository(db),
		Matchmaking: NewMatchmakingRepository(db),
		Utterance:   NewUtteranceRepository(db),
		ScoreReport: NewScoreReportRepository(db),
	}
}
