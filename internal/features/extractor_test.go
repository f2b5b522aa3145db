package features_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/talkcircle/talkcircle-backend/internal/features"
)

func TestLexiconExtractor_Extract(t *testing.T) {
	extractor := features.NewLexiconExtractor()

	tests := []struct {
		name           string
		text           string
		topic          string
		wantWords      int
		wantFillers    int
		minCollab      int
		minLeadership  int
		wantOnTopic    float64
	}{
		{
			name:          "agreement with facilitation cues off topic",
			text:          "i agree, we should summarize and move on",
			topic:         "remote work",
			wantWords:     8,
			wantFillers:   0,
			minCollab:     1,
			minLeadership: 1,
			wantOnTopic:   0.5,
		},
		{
			name:        "fillers are counted from the lexicon",
			text:        "um so like basically this is uh fine",
			topic:       "climate change",
			wantWords:   8,
			wantFillers: 4,
			wantOnTopic: 0.5,
		},
		{
			name:        "all topic tokens present",
			text:        "remote work changed how teams work remotely",
			topic:       "remote work",
			wantWords:   7,
			wantOnTopic: 1.0,
		},
		{
			name:        "half the topic tokens present",
			text:        "working from home has tradeoffs",
			topic:       "remote work",
			wantWords:   5,
			wantOnTopic: 0.5,
		},
		{
			name:        "topic with only stopwords is neutral",
			text:        "anything at all",
			topic:       "on the and",
			wantWords:   3,
			wantOnTopic: 0.5,
		},
		{
			name:        "empty text",
			text:        "",
			topic:       "remote work",
			wantWords:   0,
			wantOnTopic: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extractor.Extract(tt.text, tt.topic)

			assert.Equal(t, tt.wantWords, f.Words)
			assert.Equal(t, tt.wantFillers, f.Fillers)
			assert.GreaterOrEqual(t, f.CollabCues, tt.minCollab)
			assert.GreaterOrEqual(t, f.LeadershipCues, tt.minLeadership)
			assert.InDelta(t, tt.wantOnTopic, f.OnTopicScore, 1e-9)
			assert.GreaterOrEqual(t, f.Sentiment, 0.0)
			assert.LessOrEqual(t, f.Sentiment, 1.0)
		})
	}
}

func TestLexiconExtractor_Sentiment(t *testing.T) {
	extractor := features.NewLexiconExtractor()

	tests := []struct {
		name string
		text string
		want float64
	}{
		{
			name: "neutral text sits at the midpoint",
			text: "the meeting starts tomorrow morning",
			want: 0.5,
		},
		{
			name: "positive words raise the score",
			text: "great idea",
			want: 1.0,
		},
		{
			name: "negative words lower the score",
			text: "wrong terrible",
			want: 0.0,
		},
		{
			name: "mixed words cancel out",
			text: "good idea but wrong timing",
			want: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := extractor.Extract(tt.text, "")
			assert.InDelta(t, tt.want, f.Sentiment, 1e-9)
		})
	}
}

func TestLexiconExtractor_Deterministic(t *testing.T) {
	extractor := features.NewLexiconExtractor()

	text := "um i agree, let's actually focus on the agenda and summarize"
	topic := "team communication"

	first := extractor.Extract(text, topic)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, extractor.Extract(text, topic))
	}
}
