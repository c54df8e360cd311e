package respondersdk

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"
)

// ──────────────────────────────────────────────
// Context Personalizer — placeholder filling + local style post-processing
// ──────────────────────────────────────────────

// PersonalizerConfig controls embellishment odds and length enforcement.
// The embellishment percentages are tunable, not load-bearing.
type PersonalizerConfig struct {
	MaxLength          int     // rune limit, default 480
	MinLength          int     // pad below this, default 20
	MinEmbellishLength int     // no embellishment below this, default 40
	MemoryOdds         float64 // default 0.35
	RelationshipOdds   float64 // default 0.30
	EmotionAckOdds     float64 // default 0.25
	MemoryRelevanceMin float64 // default 0.6
}

// DefaultPersonalizerConfig returns production defaults.
func DefaultPersonalizerConfig() PersonalizerConfig {
	return PersonalizerConfig{
		MaxLength:          480,
		MinLength:          20,
		MinEmbellishLength: 40,
		MemoryOdds:         0.35,
		RelationshipOdds:   0.30,
		EmotionAckOdds:     0.25,
		MemoryRelevanceMin: 0.6,
	}
}

// paddingClauses are appended when a response falls below the minimum length.
var paddingClauses = []string{
	"I'm here whenever you want to talk.",
	"I'm glad you told me.",
	"Take all the time you need.",
}

// emotionAcknowledgments keyed by emotion, appended probabilistically.
var emotionAcknowledgments = map[Emotion][]string{
	EmotionSad:     {"It's okay to feel sad about this.", "It makes sense that this weighs on you."},
	EmotionAnxious: {"It's understandable to feel on edge about it.", "Anyone would feel tense in your place."},
	EmotionWorried: {"Your concern makes a lot of sense."},
	EmotionAngry:   {"It sounds like that really got under your skin, and fairly so."},
	EmotionDown:    {"Some days are just heavier than others."},
	EmotionLonely:  {"Feeling disconnected is hard, and it matters."},
	EmotionHappy:   {"I love hearing you like this."},
	EmotionExcited: {"Your excitement is contagious!"},
}

// Personalizer fills template placeholders from user context and applies
// local style corrections: whitespace cleanup, terminal punctuation,
// sentence-boundary truncation and minimum-length padding.
type Personalizer struct {
	config PersonalizerConfig
	rng    *rand.Rand
}

// NewPersonalizer creates a personalizer. rng may be nil (time-seeded).
func NewPersonalizer(rng *rand.Rand, config ...PersonalizerConfig) *Personalizer {
	cfg := DefaultPersonalizerConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	if rng == nil {
		rng = newLockedRand(0)
	}
	return &Personalizer{config: cfg, rng: rng}
}

// Personalize renders the template text with the user's context and the
// message analysis. The result always ends with terminal punctuation and
// respects the configured length bounds.
func (p *Personalizer) Personalize(templateText string, analysis *AnalysisResult, uctx *UserContext) string {
	result := p.fillPlaceholders(templateText, analysis, uctx)
	result = p.embellish(result, analysis, uctx)
	return p.Finalize(result)
}

// FillName substitutes only the {name} placeholder; used by the basic
// template strategy which skips enrichment.
func (p *Personalizer) FillName(templateText, name string) string {
	if name == "" {
		name = "friend"
	}
	return p.Finalize(strings.ReplaceAll(templateText, "{name}", name))
}

// Finalize normalizes whitespace and punctuation and enforces length
// bounds. Safe to call on any text, including generative output.
func (p *Personalizer) Finalize(text string) string {
	result := cleanupWhitespace(strings.TrimSpace(text))
	result = p.truncateAtSentence(result)
	result = ensureTerminalPunctuation(result)
	if utf8.RuneCountInString(result) < p.config.MinLength {
		pad := paddingClauses[p.rng.Intn(len(paddingClauses))]
		result = strings.TrimSpace(result + " " + pad)
	}
	return result
}

func (p *Personalizer) fillPlaceholders(text string, analysis *AnalysisResult, uctx *UserContext) string {
	name := "friend"
	if uctx != nil && uctx.PreferredName != "" {
		name = uctx.PreferredName
	}
	replacements := map[string]string{
		"{name}": name,
	}
	if analysis != nil && analysis.PrimaryEmotion != EmotionNeutral {
		replacements["{emotion}"] = string(analysis.PrimaryEmotion)
	}
	if uctx != nil {
		if len(uctx.RecentMemories) > 0 {
			replacements["{memory}"] = uctx.RecentMemories[0].Content
		}
		if rel, relName := firstRelationship(uctx.KeyRelationships); rel != "" {
			replacements["{relationship}"] = fmt.Sprintf("your %s %s", rel, relName)
		}
		if len(uctx.Preferences.TopicsOfInterest) > 0 {
			replacements["{topic}"] = uctx.Preferences.TopicsOfInterest[0]
		}
	}
	for placeholder, value := range replacements {
		text = strings.ReplaceAll(text, placeholder, value)
	}
	return text
}

// embellish probabilistically appends a memory reference, relationship
// mention or emotion acknowledgment. Short responses stay terse.
func (p *Personalizer) embellish(text string, analysis *AnalysisResult, uctx *UserContext) string {
	if utf8.RuneCountInString(text) < p.config.MinEmbellishLength {
		return text
	}

	if uctx != nil && len(uctx.RecentMemories) > 0 &&
		uctx.RecentMemories[0].Relevance >= p.config.MemoryRelevanceMin &&
		p.rng.Float64() < p.config.MemoryOdds {
		mem := uctx.RecentMemories[0]
		return text + " " + fmt.Sprintf("I remember you mentioned %s.", strings.TrimRight(mem.Content, ".!?"))
	}

	if uctx != nil && len(uctx.KeyRelationships) > 0 && p.rng.Float64() < p.config.RelationshipOdds {
		rel, relName := firstRelationship(uctx.KeyRelationships)
		if relName != "" {
			return text + " " + fmt.Sprintf("How is %s doing, by the way?", relName)
		}
		return text + " " + fmt.Sprintf("How is your %s doing, by the way?", rel)
	}

	if analysis != nil && p.rng.Float64() < p.config.EmotionAckOdds {
		if acks, ok := emotionAcknowledgments[analysis.PrimaryEmotion]; ok {
			return text + " " + acks[p.rng.Intn(len(acks))]
		}
	}

	return text
}

// truncateAtSentence trims text beyond MaxLength at the nearest sentence
// boundary, searching back no further than half the limit.
func (p *Personalizer) truncateAtSentence(text string) string {
	max := p.config.MaxLength
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	bestCut := max
	for i := max - 1; i >= max/2; i-- {
		if isSentenceEnd(runes[i]) {
			bestCut = i + 1
			break
		}
	}
	return strings.TrimSpace(string(runes[:bestCut]))
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

func ensureTerminalPunctuation(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return trimmed
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	switch last {
	case '.', '!', '?':
		return trimmed
	case ',', ';', ':', '-':
		return strings.TrimRight(trimmed, ",;:- ") + "."
	default:
		return trimmed + "."
	}
}

func cleanupWhitespace(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

func firstRelationship(rels map[string]string) (relType, name string) {
	bestName := ""
	for n := range rels {
		if bestName == "" || n < bestName {
			bestName = n
		}
	}
	if bestName == "" {
		return "", ""
	}
	return rels[bestName], bestName
}
