package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talkcircle/talkcircle-backend/internal/api"
	"github.com/talkcircle/talkcircle-backend/internal/config"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/features"
	"github.com/talkcircle/talkcircle-backend/internal/ingest"
	"github.com/talkcircle/talkcircle-backend/internal/live"
	"github.com/talkcircle/talkcircle-backend/internal/repository"
	repoPostgres "github.com/talkcircle/talkcircle-backend/internal/repository/postgres"
	"github.com/talkcircle/talkcircle-backend/internal/scoring"
	"github.com/talkcircle/talkcircle-backend/internal/service"
	"github.com/talkcircle/talkcircle-backend/internal/stt"
	"github.com/talkcircle/talkcircle-backend/internal/websocket"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance.
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB starts a PostgreSQL container and migrates the schema.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_talkcircle"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&domain.DiscussionRoom{},
		&domain.WaitingTicket{},
		&domain.Utterance{},
		&domain.ScoreReport{},
	)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container.
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation.
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"score_reports",
		"utterances",
		"waiting_tickets",
		"discussion_rooms",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing.
func TestConfig() *config.Config {
	tuning := scoring.DefaultTuning()
	return &config.Config{
		Port:                   "0",
		LogLevel:               "panic",
		GroupSize:              3,
		DefaultTopic:           "remote work",
		DefaultDurationSeconds: 120,
		InterruptWindowMs:      tuning.InterruptWindowMs,
		FillerRateCeiling:      tuning.FillerRateCeiling,
		WPMBandLow:             tuning.WPMBandLow,
		WPMBandHigh:            tuning.WPMBandHigh,
		WPMFalloff:             tuning.WPMFalloff,
	}
}

// TestLogger returns a silent logger.
func TestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// TestServer holds all components for integration testing. The ingestion
// dialer fails fast: tests exercise the HTTP and persistence paths, not a
// live STT upstream.
type TestServer struct {
	Server    *httptest.Server
	DB        *TestDB
	Repos     *repository.Repositories
	Services  *service.Services
	Hub       *websocket.Hub
	LiveStore *live.Store
	Config    *config.Config
}

// NewTestServer creates a complete test server with all dependencies.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()
	log := TestLogger()

	repos := repoPostgres.NewRepositories(testDB.DB)
	liveStore := live.NewStore(features.NewLexiconExtractor(), cfg.Tuning(), log)

	dialer := func(ctx context.Context, start stt.StartMessage) (ingest.Upstream, error) {
		return nil, fmt.Errorf("no stt upstream in tests")
	}

	broadcaster := &hubBroadcaster{}
	manager := ingest.NewManager(dialer, liveStore, repos.Utterance, broadcaster, log)
	hub := websocket.NewHub(manager, log)
	broadcaster.hub = hub
	go hub.Run()

	services := service.NewServices(repos, liveStore, manager, hub, cfg, log)
	router := api.NewRouter(services, hub, log)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:    server,
		DB:        testDB,
		Repos:     repos,
		Services:  services,
		Hub:       hub,
		LiveStore: liveStore,
		Config:    cfg,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL.
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path.
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the websocket endpoint URL.
func (ts *TestServer) WebSocketURL() string {
	return "ws" + ts.Server.URL[4:] + "/api/v1/ws"
}

type hubBroadcaster struct {
	hub *websocket.Hub
}

func (b *hubBroadcaster) BroadcastRoomMetrics(roomID uuid.UUID, snapshot live.RoomMetricsSnapshot) {
	b.hub.BroadcastRoomMetrics(roomID, snapshot)
}
