package scoring

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/features"
)

// Tuning holds the fixed behavioral constants. The defaults reproduce the
// observed system; each is overridable through configuration.
type Tuning struct {
	// InterruptWindowMs is how close (ms) to another speaker's trailing edge
	// an utterance must start to count as an interruption.
	InterruptWindowMs int64
	// FillerRateCeiling is the filler-per-word rate treated as the worst case.
	FillerRateCeiling float64
	// WPMBandLow/WPMBandHigh bound the words-per-minute range scored as ideal.
	WPMBandLow  float64
	WPMBandHigh float64
	// WPMFalloff is the distance (wpm) outside the band at which the score
	// reaches zero.
	WPMFalloff float64
}

func DefaultTuning() Tuning {
	return Tuning{
		InterruptWindowMs: 200,
		FillerRateCeiling: 0.06,
		WPMBandLow:        90,
		WPMBandHigh:       170,
		WPMFalloff:        80,
	}
}

// Aggregate is the running per-speaker statistics accumulated across a
// room's utterances. It lives in memory only; the durable transcript allows
// recomputing it at any time.
type Aggregate struct {
	UserName       string
	TalkMs         int64
	Turns          int
	Words          int
	Fillers        int
	Interruptions  int
	SentimentSum   float64
	OnTopicSum     float64
	CollabCues     int
	LeadershipCues int
	WpmSum         int
	WpmCount       int
	LastStart      int64
	LastEnd        int64
	LastText       string
}

// AvgWPM returns the running words-per-minute average, 0 before any turn
// produced a positive wpm.
func (a *Aggregate) AvgWPM() float64 {
	if a.WpmCount == 0 {
		return 0
	}
	return float64(a.WpmSum) / float64(a.WpmCount)
}

// SentimentAvg returns the mean sentiment across turns.
func (a *Aggregate) SentimentAvg() float64 {
	if a.Turns == 0 {
		return 0
	}
	return a.SentimentSum / float64(a.Turns)
}

// OnTopicAvg returns the mean on-topic score across turns.
func (a *Aggregate) OnTopicAvg() float64 {
	if a.Turns == 0 {
		return 0
	}
	return a.OnTopicSum / float64(a.Turns)
}

// FillerRate returns fillers per word.
func (a *Aggregate) FillerRate() float64 {
	return float64(a.Fillers) / float64(max(1, a.Words))
}

// Accumulator folds utterances into per-speaker aggregates for one room.
// It is pure state plus arithmetic: the live store wraps it with locking,
// and the offline scorer replays a transcript through an identical instance
// so both paths agree by construction.
type Accumulator struct {
	Topic       string
	PerUser     map[uuid.UUID]*Aggregate
	LastSpeaker uuid.UUID

	extractor features.Extractor
	tuning    Tuning
}

func NewAccumulator(topic string, extractor features.Extractor, tuning Tuning) *Accumulator {
	return &Accumulator{
		Topic:     topic,
		PerUser:   make(map[uuid.UUID]*Aggregate),
		extractor: extractor,
		tuning:    tuning,
	}
}

// Apply folds one finalized utterance into the table and returns the
// speaker's updated aggregate. Callers must serialize Apply calls for a
// given room.
func (acc *Accumulator) Apply(userID uuid.UUID, userName, text string, startMs, endMs int64) *Aggregate {
	duration := endMs - startMs
	if duration < 1 {
		duration = 1
	}

	f := acc.extractor.Extract(text, acc.Topic)

	wpm := int(math.Round(float64(f.Words) / (float64(duration) / 60000.0)))

	// A single overlap is credited per utterance. Other speakers are checked
	// in ascending userID order so a fixed input ordering is deterministic.
	interrupted := false
	for _, otherID := range acc.sortedUserIDs() {
		if otherID == userID {
			continue
		}
		if acc.PerUser[otherID].LastEnd > startMs-acc.tuning.InterruptWindowMs {
			interrupted = true
			break
		}
	}

	agg, ok := acc.PerUser[userID]
	if !ok {
		agg = &Aggregate{}
		acc.PerUser[userID] = agg
	}

	agg.TalkMs += duration
	agg.Turns++
	agg.Words += f.Words
	agg.Fillers += f.Fillers
	agg.SentimentSum += f.Sentiment
	agg.OnTopicSum += f.OnTopicScore
	agg.CollabCues += f.CollabCues
	agg.LeadershipCues += f.LeadershipCues
	if interrupted {
		agg.Interruptions++
	}
	if wpm > 0 {
		agg.WpmSum += wpm
		agg.WpmCount++
	}
	agg.LastStart = startMs
	agg.LastEnd = endMs
	agg.LastText = text
	agg.UserName = userName
	acc.LastSpeaker = userID

	return agg
}

// TotalTalkMs sums talk time across all speakers.
func (acc *Accumulator) TotalTalkMs() int64 {
	var total int64
	for _, agg := range acc.PerUser {
		total += agg.TalkMs
	}
	return total
}

func (acc *Accumulator) sortedUserIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(acc.PerUser))
	for id := range acc.PerUser {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}
