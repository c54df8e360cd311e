package respondersdk

import (
	"strings"
	"unicode"
)

// ──────────────────────────────────────────────
// Analysis Layer — emotion, intent and entity extraction over static tables
// ──────────────────────────────────────────────

// Emotion is one of the fixed emotion labels produced by analysis.
type Emotion string

const (
	EmotionNeutral   Emotion = "neutral"
	EmotionHappy     Emotion = "happy"
	EmotionSad       Emotion = "sad"
	EmotionAngry     Emotion = "angry"
	EmotionAnxious   Emotion = "anxious"
	EmotionWorried   Emotion = "worried"
	EmotionDepressed Emotion = "depressed"
	EmotionDown      Emotion = "down"
	EmotionExcited   Emotion = "excited"
	EmotionGrateful  Emotion = "grateful"
	EmotionLonely    Emotion = "lonely"
	EmotionConfused  Emotion = "confused"
)

// negativeEmotions participate in crisis heuristics and empathy routing.
var negativeEmotions = map[Emotion]bool{
	EmotionSad:       true,
	EmotionAngry:     true,
	EmotionAnxious:   true,
	EmotionWorried:   true,
	EmotionDepressed: true,
	EmotionDown:      true,
	EmotionLonely:    true,
}

// Intensity classifies how strongly the primary emotion is expressed.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityMedium   Intensity = "medium"
	IntensityHigh     Intensity = "high"
	IntensityVeryHigh Intensity = "very_high"
)

// ConversationType classifies the kind of exchange the message opens.
type ConversationType string

const (
	ConversationGreeting  ConversationType = "greeting"
	ConversationEmotional ConversationType = "emotional_support"
	ConversationCasual    ConversationType = "casual_chat"
	ConversationQuestion  ConversationType = "question"
	ConversationCrisis    ConversationType = "crisis"
	ConversationFarewell  ConversationType = "farewell"
)

var validConversationTypes = map[ConversationType]bool{
	ConversationGreeting:  true,
	ConversationEmotional: true,
	ConversationCasual:    true,
	ConversationQuestion:  true,
	ConversationCrisis:    true,
	ConversationFarewell:  true,
}

// UserIntent classifies what the user wants from the reply.
type UserIntent string

const (
	IntentSeekingSupport UserIntent = "seeking_support"
	IntentSharing        UserIntent = "sharing"
	IntentAsking         UserIntent = "asking"
	IntentVenting        UserIntent = "venting"
	IntentGreeting       UserIntent = "greeting"
	IntentClosing        UserIntent = "closing"
)

// AnalysisResult is the immutable output of Analyze, produced once per message.
type AnalysisResult struct {
	PrimaryEmotion   Emotion             `json:"primary_emotion"`
	Confidence       float64             `json:"confidence"` // 0.0-1.0
	Intensity        Intensity           `json:"intensity"`
	DetectedEmotions map[Emotion]float64 `json:"detected_emotions"`
	ConversationType ConversationType    `json:"conversation_type"`
	UserIntent       UserIntent          `json:"user_intent"`
	Entities         []Entity            `json:"entities,omitempty"`
	IsCrisis         bool                `json:"is_crisis"`
}

// MessageAnalyzer runs the full analysis pass: emotion scoring, conversation
// type and intent classification, entity extraction and crisis detection.
// It holds only static lookup tables and never performs I/O.
type MessageAnalyzer struct {
	emotions *EmotionDetector
	intents  *IntentClassifier
	entities *EntityExtractor
}

// NewMessageAnalyzer creates an analyzer with the built-in pattern tables.
func NewMessageAnalyzer() *MessageAnalyzer {
	return &MessageAnalyzer{
		emotions: NewEmotionDetector(),
		intents:  NewIntentClassifier(),
		entities: NewEntityExtractor(),
	}
}

// Analyze produces an AnalysisResult for a single user message.
// history holds the user's prior messages, oldest first (may be nil).
// Malformed input never fails; the worst case is the neutral/casual default.
func (a *MessageAnalyzer) Analyze(message string, history []string) *AnalysisResult {
	result := &AnalysisResult{
		PrimaryEmotion:   EmotionNeutral,
		Confidence:       0.5,
		Intensity:        IntensityLow,
		DetectedEmotions: map[Emotion]float64{},
		ConversationType: ConversationCasual,
		UserIntent:       IntentSharing,
	}
	if strings.TrimSpace(message) == "" {
		return result
	}

	emo := a.emotions.Detect(message)
	result.PrimaryEmotion = emo.Primary
	result.Confidence = emo.Confidence
	result.Intensity = emo.Intensity
	result.DetectedEmotions = emo.Scores

	convType, intent := a.intents.Classify(message, history, emo)
	result.ConversationType = convType
	result.UserIntent = intent

	result.Entities = a.entities.Extract(message)

	result.IsCrisis = a.emotions.DetectCrisis(message, emo)
	if result.IsCrisis {
		result.ConversationType = ConversationCrisis
		result.UserIntent = IntentSeekingSupport
	}

	return result
}

// tokenize lowercases the message and splits it into word tokens,
// keeping apostrophes inside contractions ("don't" stays one token).
func tokenize(message string) []string {
	lower := strings.ToLower(message)
	return strings.FieldsFunc(lower, func(r rune) bool {
		if r == '\'' {
			return false
		}
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
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
