package scoring

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/talkcircle/talkcircle-backend/internal/domain"
	"github.com/talkcircle/talkcircle-backend/internal/features"
)

const shareEpsilon = 1e-9

// UserScore is one participant's normalized result.
type UserScore struct {
	UserID         uuid.UUID `json:"userId"`
	Name           string    `json:"name"`
	TalkMs         int64     `json:"talkMs"`
	Share          float64   `json:"share"`
	Turns          int       `json:"turns"`
	Words          int       `json:"words"`
	Fillers        int       `json:"fillers"`
	Interruptions  int       `json:"interruptions"`
	CollabCues     int       `json:"collabCues"`
	LeadershipCues int       `json:"leadershipCues"`
	WPM            float64   `json:"wpm"`
	SentimentAvg   float64   `json:"sentimentAvg"`
	OnTopicAvg     float64   `json:"onTopicAvg"`
	Participation  int       `json:"participation"`
	Communication  int       `json:"communication"`
	Knowledge      int       `json:"knowledge"`
	Teamwork       int       `json:"teamwork"`
	Overall        int       `json:"overall"`
}

// GroupScore is the full scoring result for one room.
type GroupScore struct {
	Topic         string      `json:"topic"`
	TotalTalkMs   int64       `json:"totalTalkMs"`
	PerUser       []UserScore `json:"perUser"`
	Participation int         `json:"participation"`
	Communication int         `json:"communication"`
	Knowledge     int         `json:"knowledge"`
	Teamwork      int         `json:"teamwork"`
	Overall       int         `json:"overall"`
}

// Scorer recomputes per-user aggregates from a persisted transcript and
// normalizes them across the group. It is deterministic and side-effect
// free: the same (utterances, participants, topic) always yields the same
// GroupScore, live or offline.
type Scorer struct {
	extractor features.Extractor
	tuning    Tuning
}

func NewScorer(extractor features.Extractor, tuning Tuning) *Scorer {
	return &Scorer{extractor: extractor, tuning: tuning}
}

// Score replays the room's utterances in timestamp order through the same
// accumulation logic the live path uses, then derives group-normalized
// composite scores.
func (s *Scorer) Score(utterances []domain.Utterance, participants []domain.Participant, topic string) GroupScore {
	ordered := make([]domain.Utterance, len(utterances))
	copy(ordered, utterances)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartMs != ordered[j].StartMs {
			return ordered[i].StartMs < ordered[j].StartMs
		}
		return ordered[i].EndMs < ordered[j].EndMs
	})

	acc := NewAccumulator(topic, s.extractor, s.tuning)
	for _, u := range ordered {
		acc.Apply(u.UserID, u.UserName, u.Text, u.StartMs, u.EndMs)
	}

	// Participants are authoritative; speakers missing from the list (e.g.
	// transcripts predating the room record) are still scored.
	roster := make([]domain.Participant, len(participants))
	copy(roster, participants)
	known := make(map[uuid.UUID]bool, len(roster))
	for _, p := range roster {
		known[p.UserID] = true
	}
	for _, u := range ordered {
		if !known[u.UserID] {
			known[u.UserID] = true
			roster = append(roster, domain.Participant{UserID: u.UserID, Name: u.UserName})
		}
	}

	result := GroupScore{Topic: topic, TotalTalkMs: acc.TotalTalkMs()}
	if len(roster) == 0 {
		return result
	}

	targetShare := 1.0 / float64(len(roster))

	maxTurns, maxInterruptions, maxCollab, maxLeadership := 0, 0, 0, 0
	for _, p := range roster {
		if agg, ok := acc.PerUser[p.UserID]; ok {
			maxTurns = max(maxTurns, agg.Turns)
			maxInterruptions = max(maxInterruptions, agg.Interruptions)
			maxCollab = max(maxCollab, agg.CollabCues)
			maxLeadership = max(maxLeadership, agg.LeadershipCues)
		}
	}

	var sumP, sumC, sumK, sumT, sumO int
	for _, p := range roster {
		agg := acc.PerUser[p.UserID]
		if agg == nil {
			agg = &Aggregate{UserName: p.Name}
		}

		share := 0.0
		if result.TotalTalkMs > 0 {
			share = float64(agg.TalkMs) / float64(result.TotalTalkMs)
		}
		shareScore := clamp01(1 - math.Abs(share-targetShare)/math.Max(shareEpsilon, 1-targetShare))

		turnsNorm := float64(agg.Turns) / float64(max(1, maxTurns))
		interruptionsNorm := float64(agg.Interruptions) / float64(max(1, maxInterruptions))
		collabNorm := float64(agg.CollabCues) / float64(max(1, maxCollab))
		leadershipNorm := float64(agg.LeadershipCues) / float64(max(1, maxLeadership))
		fillerNorm := clamp01(agg.FillerRate() / s.tuning.FillerRateCeiling)
		wpmScore := s.wpmScore(agg.AvgWPM())

		participation := round100(0.4*shareScore + 0.3*turnsNorm + 0.3*(1-interruptionsNorm))
		communication := round100(0.4*wpmScore + 0.6*(1-fillerNorm))
		knowledge := round100(0.6*agg.OnTopicAvg() + 0.4*wpmScore)
		teamwork := round100(0.4*leadershipNorm + 0.3*collabNorm + 0.3*agg.SentimentAvg())
		overall := int(math.Round(float64(participation+communication+knowledge+teamwork) / 4.0))

		name := agg.UserName
		if name == "" {
			name = p.Name
		}
		result.PerUser = append(result.PerUser, UserScore{
			UserID:         p.UserID,
			Name:           name,
			TalkMs:         agg.TalkMs,
			Share:          share,
			Turns:          agg.Turns,
			Words:          agg.Words,
			Fillers:        agg.Fillers,
			Interruptions:  agg.Interruptions,
			CollabCues:     agg.CollabCues,
			LeadershipCues: agg.LeadershipCues,
			WPM:            agg.AvgWPM(),
			SentimentAvg:   agg.SentimentAvg(),
			OnTopicAvg:     agg.OnTopicAvg(),
			Participation:  participation,
			Communication:  communication,
			Knowledge:      knowledge,
			Teamwork:       teamwork,
			Overall:        overall,
		})

		sumP += participation
		sumC += communication
		sumK += knowledge
		sumT += teamwork
		sumO += overall
	}

	n := float64(len(result.PerUser))
	result.Participation = int(math.Round(float64(sumP) / n))
	result.Communication = int(math.Round(float64(sumC) / n))
	result.Knowledge = int(math.Round(float64(sumK) / n))
	result.Teamwork = int(math.Round(float64(sumT) / n))
	result.Overall = int(math.Round(float64(sumO) / n))

	return result
}

// wpmScore is 1 inside the ideal band and decays linearly to 0 at
// WPMFalloff distance outside it.
func (s *Scorer) wpmScore(wpm float64) float64 {
	if wpm >= s.tuning.WPMBandLow && wpm <= s.tuning.WPMBandHigh {
		return 1
	}
	var dist float64
	if wpm < s.tuning.WPMBandLow {
		dist = s.tuning.WPMBandLow - wpm
	} else {
		dist = wpm - s.tuning.WPMBandHigh
	}
	return math.Max(0, 1-dist/s.tuning.WPMFalloff)
}

func round100(v float64) int {
	return int(math.Round(100 * clamp01(v)))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
