package respondersdk

import (
	"math/rand"
	"strings"
)

// ──────────────────────────────────────────────
// Fallback System — tiered safe responses, the function of last resort
// ──────────────────────────────────────────────

// FallbackLevel is one of four safety tiers.
type FallbackLevel string

const (
	FallbackBasicTemplate FallbackLevel = "basic_template"
	FallbackEmpathy       FallbackLevel = "empathy_focused"
	FallbackEmergencySafe FallbackLevel = "emergency_safe"
	FallbackCrisisSupport FallbackLevel = "crisis_support"
)

// FallbackContext is the minimal input to fallback generation.
type FallbackContext struct {
	UserName   string
	Emotion    Emotion
	Confidence float64
	IsCrisis   bool
	HasContext bool
	HasHistory bool
}

// FallbackResponse is a guaranteed-safe reply.
type FallbackResponse struct {
	Text        string        `json:"text"`
	Level       FallbackLevel `json:"level"`
	Confidence  float64       `json:"confidence"`
	SafetyScore float64       `json:"safety_score"`
}

// empathyEmotions select the empathy-focused tier when confidence is high.
var empathyEmotions = map[Emotion]bool{
	EmotionSad: true, EmotionAngry: true, EmotionAnxious: true, EmotionWorried: true,
}

// Hand-curated phrase banks. {name} is the only placeholder ever filled
// here — no external dependency, no failure path.
var crisisSupportPhrases = []string{
	"{name}, I'm really glad you told me this, and I'm taking it seriously. You deserve support right now — please reach out to a crisis line or someone you trust, and stay with me while you do.",
	"What you're feeling sounds overwhelming, {name}, and you don't have to face it alone. Please consider talking to a crisis counselor right now; I'm here with you too.",
	"{name}, thank you for trusting me with this. Your life matters. If you can, please contact a crisis helpline or someone close to you — and keep talking to me as long as you need.",
}

var empathyPhrases = map[Emotion][]string{
	EmotionSad: {
		"I'm sorry things feel so heavy right now, {name}. I'm here, and I'm listening.",
		"That sounds really painful, {name}. Take your time — I'm not going anywhere.",
	},
	EmotionAngry: {
		"It makes sense that you're upset, {name}. I'm here to listen to all of it.",
		"That would frustrate anyone, {name}. Tell me what happened.",
	},
	EmotionAnxious: {
		"That sounds stressful, {name}. Let's take it one piece at a time together.",
		"I can tell this is weighing on you, {name}. I'm right here with you.",
	},
	EmotionWorried: {
		"Your worry makes sense, {name}. Want to talk through what's on your mind?",
		"I hear the concern in your words, {name}. I'm here for whatever you need.",
	},
}

var basicFallbackPhrases = []string{
	"I'm here with you, {name}. Tell me more about what's going on.",
	"Thanks for sharing that with me, {name}. What's on your mind?",
	"I'm listening, {name}. Go on whenever you're ready.",
}

var emergencySafePhrases = []string{
	"I'm here and I'm listening. Tell me more whenever you're ready.",
	"Thank you for reaching out. I'm here for you.",
	"I'm with you. Take your time.",
}

// FallbackSystem generates safe responses from fixed phrase banks.
// It is pure, synchronous and side-effect free; the strategy selector
// treats its cost as zero.
type FallbackSystem struct {
	rng *rand.Rand
}

// NewFallbackSystem creates the fallback generator. rng may be nil.
func NewFallbackSystem(rng *rand.Rand) *FallbackSystem {
	if rng == nil {
		rng = newLockedRand(0)
	}
	return &FallbackSystem{rng: rng}
}

// GenerateFallback picks the safety tier and renders a phrase.
// Crisis always wins; strong negative emotions get the empathy tier; any
// available context selects the basic tier; otherwise emergency-safe.
func (f *FallbackSystem) GenerateFallback(fc FallbackContext) *FallbackResponse {
	switch {
	case fc.IsCrisis:
		return f.render(crisisSupportPhrases, fc, FallbackCrisisSupport, 0.9, 1.0)
	case fc.Confidence > 0.7 && empathyEmotions[fc.Emotion]:
		bank := empathyPhrases[fc.Emotion]
		return f.render(bank, fc, FallbackEmpathy, 0.75, 0.95)
	case fc.HasContext || fc.HasHistory:
		return f.render(basicFallbackPhrases, fc, FallbackBasicTemplate, 0.6, 0.95)
	default:
		return f.render(emergencySafePhrases, fc, FallbackEmergencySafe, 0.5, 1.0)
	}
}

func (f *FallbackSystem) render(bank []string, fc FallbackContext, level FallbackLevel, confidence, safety float64) *FallbackResponse {
	name := fc.UserName
	if name == "" {
		name = "friend"
	}
	phrase := bank[f.rng.Intn(len(bank))]
	return &FallbackResponse{
		Text:        strings.ReplaceAll(phrase, "{name}", name),
		Level:       level,
		Confidence:  confidence,
		SafetyScore: safety,
	}
}
