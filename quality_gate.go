package respondersdk

import (
	"strings"
	"unicode/utf8"
)

// ──────────────────────────────────────────────
// Quality Assurance Gate — scores the final output, can force fallback
// ──────────────────────────────────────────────

// QualityLevel maps the overall score to a label.
type QualityLevel string

const (
	QualityExcellent    QualityLevel = "excellent"
	QualityGood         QualityLevel = "good"
	QualityAcceptable   QualityLevel = "acceptable"
	QualityPoor         QualityLevel = "poor"
	QualityUnacceptable QualityLevel = "unacceptable"
)

// QualityDimension names one scored aspect of a response.
type QualityDimension string

const (
	DimensionEmpathy         QualityDimension = "empathy"
	DimensionCoherence       QualityDimension = "coherence"
	DimensionAppropriateness QualityDimension = "appropriateness"
	DimensionPersonality     QualityDimension = "personality_consistency"
	DimensionSafety          QualityDimension = "safety"
	DimensionEngagement      QualityDimension = "engagement"
	DimensionPersonalization QualityDimension = "personalization"
)

// Fixed dimension weights; they sum to 1.0.
var dimensionWeights = map[QualityDimension]float64{
	DimensionEmpathy:         0.25,
	DimensionCoherence:       0.20,
	DimensionAppropriateness: 0.20,
	DimensionPersonality:     0.15,
	DimensionSafety:          0.10,
	DimensionEngagement:      0.05,
	DimensionPersonalization: 0.05,
}

// QualityAssessment is the gate's verdict on a candidate response.
type QualityAssessment struct {
	DimensionScores map[QualityDimension]float64 `json:"dimension_scores"`
	OverallScore    float64                      `json:"overall_score"`
	Level           QualityLevel                 `json:"level"`
	Issues          []string                     `json:"issues,omitempty"`
	Passed          bool                         `json:"passed"`
}

// blacklistedPhrases hard-fail any response containing them: dismissive
// or minimizing language that has no place in a supportive reply.
var blacklistedPhrases = []string{
	"don't worry",
	"calm down",
	"get over it",
	"stop being",
	"it's not a big deal",
	"you're overreacting",
	"that's nothing",
	"just relax",
	"as an ai",
	"as a language model",
}

// crisisUnsafePhrases hard-fail a crisis response: minimizing platitudes
// that are unsafe when someone is in acute distress.
var crisisUnsafePhrases = []string{
	"cheer up",
	"it could be worse",
	"look on the bright side",
	"everything happens for a reason",
	"snap out of it",
	"you'll get over it",
	"don't be dramatic",
}

// empathyMarkers indicate an emotionally attuned response.
var empathyMarkers = []string{
	"i hear you", "i'm here", "i am here", "that sounds", "it sounds",
	"makes sense", "i understand", "i'm listening", "thank you for",
	"i'm sorry", "with you", "take your time", "that must",
}

// QualityGateConfig bounds the hard length validation.
type QualityGateConfig struct {
	MinLength int // default 5 runes
	MaxLength int // default 1000 runes
}

// DefaultQualityGateConfig returns the fixed production bounds.
func DefaultQualityGateConfig() QualityGateConfig {
	return QualityGateConfig{MinLength: 5, MaxLength: 1000}
}

// QualityGate validates final output. Hard validation failures force the
// orchestrator to substitute a FallbackSystem response regardless of which
// strategy produced the original.
type QualityGate struct {
	config QualityGateConfig
}

// NewQualityGate creates a gate.
func NewQualityGate(config ...QualityGateConfig) *QualityGate {
	cfg := DefaultQualityGateConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	return &QualityGate{config: cfg}
}

// Assess scores the seven dimensions and runs hard validation.
// Passed is false whenever any hard rule fails, independent of the score.
func (g *QualityGate) Assess(response string, analysis *AnalysisResult, uctx *UserContext) *QualityAssessment {
	lower := strings.ToLower(response)
	scores := map[QualityDimension]float64{
		DimensionEmpathy:         empathyScore(lower, analysis),
		DimensionCoherence:       coherenceScore(response),
		DimensionAppropriateness: appropriatenessScore(lower, analysis),
		DimensionPersonality:     personalityScore(lower),
		DimensionSafety:          safetyScore(lower, analysis),
		DimensionEngagement:      engagementScore(lower),
		DimensionPersonalization: personalizationScore(lower, uctx),
	}

	overall := 0.0
	for dim, score := range scores {
		overall += score * dimensionWeights[dim]
	}

	issues := g.hardValidate(response, lower, analysis)

	return &QualityAssessment{
		DimensionScores: scores,
		OverallScore:    overall,
		Level:           qualityLevelFor(overall),
		Issues:          issues,
		Passed:          len(issues) == 0,
	}
}

// hardValidate applies the non-negotiable rules.
func (g *QualityGate) hardValidate(response, lower string, analysis *AnalysisResult) []string {
	var issues []string
	n := utf8.RuneCountInString(strings.TrimSpace(response))
	if n < g.config.MinLength {
		issues = append(issues, "response too short")
	}
	if n > g.config.MaxLength {
		issues = append(issues, "response too long")
	}
	for _, phrase := range blacklistedPhrases {
		if strings.Contains(lower, phrase) {
			issues = append(issues, "blacklisted phrase: "+phrase)
		}
	}
	if analysis != nil && analysis.IsCrisis {
		for _, phrase := range crisisUnsafePhrases {
			if strings.Contains(lower, phrase) {
				issues = append(issues, "crisis-unsafe phrase: "+phrase)
			}
		}
	}
	if placeholderPattern.MatchString(response) {
		issues = append(issues, "unfilled placeholder")
	}
	return issues
}

func qualityLevelFor(score float64) QualityLevel {
	switch {
	case score >= 0.9:
		return QualityExcellent
	case score >= 0.75:
		return QualityGood
	case score >= 0.5:
		return QualityAcceptable
	case score >= 0.3:
		return QualityPoor
	default:
		return QualityUnacceptable
	}
}

// empathyScore rewards attuned language when the user is struggling; a
// neutral exchange gets a neutral baseline.
func empathyScore(lower string, analysis *AnalysisResult) float64 {
	needed := analysis != nil && negativeEmotions[analysis.PrimaryEmotion]
	hits := 0
	for _, marker := range empathyMarkers {
		if strings.Contains(lower, marker) {
			hits++
		}
	}
	if !needed {
		if hits > 0 {
			return 0.8
		}
		return 0.6
	}
	switch {
	case hits >= 2:
		return 1.0
	case hits == 1:
		return 0.8
	default:
		return 0.3
	}
}

// coherenceScore checks for basic structural sanity: sentences of
// reasonable length and no word repeated in immediate succession.
func coherenceScore(response string) float64 {
	tokens := tokenize(response)
	if len(tokens) == 0 {
		return 0
	}
	score := 1.0
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == tokens[i-1] {
			score -= 0.2
		}
	}
	sentences := strings.FieldsFunc(response, func(r rune) bool { return r == '.' || r == '!' || r == '?' })
	for _, s := range sentences {
		if len(tokenize(s)) > 60 {
			score -= 0.2
		}
	}
	return clamp01(score)
}

func appropriatenessScore(lower string, analysis *AnalysisResult) float64 {
	score := 1.0
	for _, phrase := range blacklistedPhrases {
		if strings.Contains(lower, phrase) {
			score -= 0.5
		}
	}
	// A cheerful exclamation is off key against a struggling user.
	if analysis != nil && negativeEmotions[analysis.PrimaryEmotion] {
		if strings.Contains(lower, "awesome!") || strings.Contains(lower, "great news") {
			score -= 0.4
		}
	}
	return clamp01(score)
}

func personalityScore(lower string) float64 {
	score := 1.0
	for _, phrase := range []string{"as an ai", "as a language model", "i am a bot", "i cannot feel"} {
		if strings.Contains(lower, phrase) {
			score -= 0.6
		}
	}
	return clamp01(score)
}

func safetyScore(lower string, analysis *AnalysisResult) float64 {
	score := 1.0
	if analysis != nil && analysis.IsCrisis {
		for _, phrase := range crisisUnsafePhrases {
			if strings.Contains(lower, phrase) {
				score -= 0.7
			}
		}
		// A crisis response should point at real support.
		if !strings.Contains(lower, "crisis") && !strings.Contains(lower, "helpline") &&
			!strings.Contains(lower, "support") && !strings.Contains(lower, "someone you trust") {
			score -= 0.3
		}
	}
	return clamp01(score)
}

func engagementScore(lower string) float64 {
	if strings.Contains(lower, "?") {
		return 1.0
	}
	for _, invite := range []string{"tell me", "i'm listening", "whenever you're ready", "go on"} {
		if strings.Contains(lower, invite) {
			return 0.9
		}
	}
	return 0.5
}

func personalizationScore(lower string, uctx *UserContext) float64 {
	if uctx == nil {
		return 0.5
	}
	score := 0.4
	if uctx.PreferredName != "" && strings.Contains(lower, strings.ToLower(uctx.PreferredName)) {
		score += 0.4
	}
	for name := range uctx.KeyRelationships {
		if strings.Contains(lower, strings.ToLower(name)) {
			score += 0.2
			break
		}
	}
	return clamp01(score)
}
