package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UtterancesFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talkcircle_utterances_finalized_total",
		Help: "Finalized utterances received from the upstream STT service.",
	})

	UtterancePersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talkcircle_utterance_persist_failures_total",
		Help: "Utterance writes that failed; the live path is unaffected.",
	})

	SnapshotsBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talkcircle_snapshots_broadcast_total",
		Help: "Room metric snapshots fanned out to subscribers.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "talkcircle_ingest_sessions_active",
		Help: "Transcript ingestion sessions currently running.",
	})

	GroupsFormed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "talkcircle_matchmaking_groups_formed_total",
		Help: "Global rooms created by the matchmaking queue.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "talkcircle_matchmaking_queue_depth",
		Help: "Waiting tickets observed by the most recent queue operation.",
	})
)
