package features

import (
	"regexp"
	"strings"
)

// Features holds the deterministic signals extracted from a single
// utterance's text against the room topic.
type Features struct {
	Words          int
	Fillers        int
	CollabCues     int
	LeadershipCues int
	Sentiment      float64
	OnTopicScore   float64
}

// Extractor maps utterance text and a room topic to Features. Implementations
// must be pure so live and offline scoring agree; a model-backed extractor
// can replace the lexicon one without touching its callers.
type Extractor interface {
	Extract(text, topic string) Features
}

var tokenPattern = regexp.MustCompile(`[a-z']+`)

var fillerLexicon = map[string]bool{
	"um": true, "uh": true, "erm": true, "hmm": true, "like": true,
	"actually": true, "basically": true, "literally": true, "y'know": true,
	"kinda": true, "sorta": true,
}

var positiveLexicon = map[string]bool{
	"good": true, "great": true, "agree": true, "yes": true, "right": true,
	"helpful": true, "love": true, "excellent": true, "interesting": true,
	"thanks": true, "appreciate": true, "strong": true, "better": true,
	"best": true, "useful": true, "important": true, "valid": true,
}

var negativeLexicon = map[string]bool{
	"bad": true, "wrong": true, "disagree": true, "no": true, "never": true,
	"hate": true, "terrible": true, "worse": true, "worst": true,
	"useless": true, "boring": true, "pointless": true, "awful": true,
	"problem": true, "fail": true,
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "of": true,
	"in": true, "on": true, "to": true, "for": true, "is": true, "are": true,
	"be": true, "with": true, "at": true, "by": true, "about": true,
	"should": true, "we": true, "it": true, "that": true, "this": true,
}

var collabPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bi agree\b`),
	regexp.MustCompile(`\bgood point\b`),
	regexp.MustCompile(`\bbuilding on\b`),
	regexp.MustCompile(`\bthat makes sense\b`),
	regexp.MustCompile(`\byes,? and\b`),
	regexp.MustCompile(`\bas \w+ said\b`),
	regexp.MustCompile(`\bwhat do you think\b`),
	regexp.MustCompile(`\bgo ahead\b`),
}

var leadershipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\blet's\b`),
	regexp.MustCompile(`\bwe should\b`),
	regexp.MustCompile(`\bwe could\b`),
	regexp.MustCompile(`\bto summarize\b`),
	regexp.MustCompile(`\bsummariz\w*`),
	regexp.MustCompile(`\bagenda\b`),
	regexp.MustCompile(`\bnext step\b`),
	regexp.MustCompile(`\bmoving on\b`),
	regexp.MustCompile(`\bstay(ing)? on topic\b`),
	regexp.MustCompile(`\bwrap(ping)? up\b`),
}

// LexiconExtractor is the default Extractor: fixed lexicons and phrase
// patterns, cheap and reproducible offline from a transcript.
type LexiconExtractor struct{}

func NewLexiconExtractor() *LexiconExtractor {
	return &LexiconExtractor{}
}

func (e *LexiconExtractor) Extract(text, topic string) Features {
	lower := strings.ToLower(text)
	tokens := tokenPattern.FindAllString(lower, -1)

	f := Features{Words: len(tokens)}

	pos, neg := 0, 0
	for _, tok := range tokens {
		if fillerLexicon[tok] {
			f.Fillers++
		}
		if positiveLexicon[tok] {
			pos++
		}
		if negativeLexicon[tok] {
			neg++
		}
	}

	for _, p := range collabPatterns {
		f.CollabCues += len(p.FindAllString(lower, -1))
	}
	for _, p := range leadershipPatterns {
		f.LeadershipCues += len(p.FindAllString(lower, -1))
	}

	f.Sentiment = clamp01(float64(pos-neg)/float64(max(1, f.Words)) + 0.5)
	f.OnTopicScore = onTopicScore(lower, topic)

	return f
}

// onTopicScore is the fraction of distinct non-stopword topic tokens that
// appear as substrings of the utterance text. With no usable topic tokens,
// or none of them present, the score is a neutral 0.5.
func onTopicScore(lowerText, topic string) float64 {
	topicTokens := tokenPattern.FindAllString(strings.ToLower(topic), -1)

	distinct := make(map[string]bool)
	for _, tok := range topicTokens {
		if !stopwords[tok] {
			distinct[tok] = true
		}
	}
	if len(distinct) == 0 {
		return 0.5
	}

	matched := 0
	for tok := range distinct {
		if strings.Contains(lowerText, tok) {
			matched++
		}
	}
	if matched == 0 {
		return 0.5
	}
	return float64(matched) / float64(len(distinct))
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
