package respondersdk

import "strings"

// ──────────────────────────────────────────────
// Intent Classifier — conversation type and user intent over keyword groups
// ──────────────────────────────────────────────

// IntentClassifier classifies the conversation type and user intent of a
// message using the same keyword-group-with-weight technique as emotion
// detection, biased by conversation history.
type IntentClassifier struct {
	typePatterns   map[ConversationType][]weightedKeyword
	intentPatterns map[UserIntent][]weightedKeyword
}

// NewIntentClassifier creates a classifier with the built-in pattern tables.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{
		typePatterns:   defaultTypePatterns(),
		intentPatterns: defaultIntentPatterns(),
	}
}

func defaultTypePatterns() map[ConversationType][]weightedKeyword {
	return map[ConversationType][]weightedKeyword{
		ConversationGreeting: {
			{keyword: "hello", weight: 0.6}, {keyword: "hi", weight: 0.5},
			{keyword: "hey", weight: 0.5}, {keyword: "good morning", weight: 0.6},
			{keyword: "good evening", weight: 0.6}, {keyword: "what's up", weight: 0.4},
			{keyword: "howdy", weight: 0.5},
		},
		ConversationEmotional: {
			{keyword: "feel", weight: 0.4}, {keyword: "feeling", weight: 0.4},
			{keyword: "felt", weight: 0.3}, {keyword: "i'm so", weight: 0.3},
			{keyword: "struggling", weight: 0.5}, {keyword: "hard time", weight: 0.5},
			{keyword: "going through", weight: 0.4}, {keyword: "need someone", weight: 0.5},
			{keyword: "listen", weight: 0.3},
		},
		ConversationQuestion: {
			{keyword: "?", weight: 0.4}, {keyword: "how do", weight: 0.4},
			{keyword: "what is", weight: 0.4}, {keyword: "what should", weight: 0.5},
			{keyword: "why", weight: 0.3}, {keyword: "can you", weight: 0.3},
			{keyword: "should i", weight: 0.5}, {keyword: "do you think", weight: 0.4},
		},
		ConversationFarewell: {
			{keyword: "bye", weight: 0.6}, {keyword: "goodbye", weight: 0.7},
			{keyword: "good night", weight: 0.6}, {keyword: "see you", weight: 0.5},
			{keyword: "talk later", weight: 0.5}, {keyword: "gotta go", weight: 0.5},
		},
		ConversationCasual: {
			{keyword: "today", weight: 0.2}, {keyword: "just", weight: 0.1},
			{keyword: "by the way", weight: 0.3}, {keyword: "guess what", weight: 0.4},
			{keyword: "funny", weight: 0.2}, {keyword: "weather", weight: 0.2},
		},
	}
}

func defaultIntentPatterns() map[UserIntent][]weightedKeyword {
	return map[UserIntent][]weightedKeyword{
		IntentSeekingSupport: {
			{keyword: "help", weight: 0.4}, {keyword: "advice", weight: 0.5},
			{keyword: "need someone", weight: 0.6}, {keyword: "what should i", weight: 0.5},
			{keyword: "support", weight: 0.4}, {keyword: "struggling", weight: 0.4},
		},
		IntentVenting: {
			{keyword: "so annoying", weight: 0.5}, {keyword: "fed up", weight: 0.6},
			{keyword: "sick of", weight: 0.6}, {keyword: "can't believe", weight: 0.4},
			{keyword: "ugh", weight: 0.4}, {keyword: "always happens", weight: 0.4},
		},
		IntentAsking: {
			{keyword: "?", weight: 0.4}, {keyword: "how", weight: 0.2},
			{keyword: "what", weight: 0.2}, {keyword: "when", weight: 0.2},
			{keyword: "can you", weight: 0.3}, {keyword: "do you know", weight: 0.4},
		},
		IntentSharing: {
			{keyword: "guess what", weight: 0.5}, {keyword: "today i", weight: 0.4},
			{keyword: "i just", weight: 0.3}, {keyword: "happened", weight: 0.3},
			{keyword: "wanted to tell", weight: 0.5},
		},
		IntentGreeting: {
			{keyword: "hello", weight: 0.5}, {keyword: "hi", weight: 0.4},
			{keyword: "hey", weight: 0.4}, {keyword: "morning", weight: 0.3},
		},
		IntentClosing: {
			{keyword: "bye", weight: 0.6}, {keyword: "good night", weight: 0.6},
			{keyword: "talk later", weight: 0.5}, {keyword: "thanks for", weight: 0.3},
		},
	}
}

// History bias constants. Empty history favors a greeting; a prior
// emotional message favors continued emotional support.
const (
	greetingFirstTurnBoost = 0.3
	emotionalCarryBoost    = 0.25
)

// Classify returns the conversation type and user intent for the message.
// history holds prior user messages, oldest first; emo is the emotion signal
// already computed for the current message.
func (c *IntentClassifier) Classify(message string, history []string, emo *EmotionSignal) (ConversationType, UserIntent) {
	lower := strings.ToLower(message)

	typeScores := make(map[ConversationType]float64)
	for convType, patterns := range c.typePatterns {
		for _, p := range patterns {
			if containsKeyword(lower, p.keyword) {
				typeScores[convType] += p.weight
			}
		}
	}

	// Strong emotion on the current message leans emotional support.
	if emo != nil && emo.Primary != EmotionNeutral && negativeEmotions[emo.Primary] {
		typeScores[ConversationEmotional] += emo.Confidence * 0.5
	}

	// History bias.
	if len(history) == 0 {
		typeScores[ConversationGreeting] += greetingFirstTurnBoost
	} else if lastMessageEmotional(history) {
		typeScores[ConversationEmotional] += emotionalCarryBoost
	}

	convType := ConversationCasual
	best := 0.0
	for t, s := range typeScores {
		if s > best {
			best = s
			convType = t
		}
	}

	intentScores := make(map[UserIntent]float64)
	for intent, patterns := range c.intentPatterns {
		for _, p := range patterns {
			if containsKeyword(lower, p.keyword) {
				intentScores[intent] += p.weight
			}
		}
	}
	if emo != nil && negativeEmotions[emo.Primary] && emo.Confidence >= 0.5 {
		intentScores[IntentSeekingSupport] += 0.3
	}

	intent := defaultIntentFor(convType)
	bestIntent := 0.0
	for i, s := range intentScores {
		if s > bestIntent {
			bestIntent = s
			intent = i
		}
	}

	return convType, intent
}

// containsKeyword does substring matching for phrases and whole-token
// matching for single words, so "hi" does not fire inside "this".
func containsKeyword(lower, keyword string) bool {
	if strings.ContainsAny(keyword, " ?") {
		return strings.Contains(lower, keyword)
	}
	for _, tok := range tokenize(lower) {
		if tok == keyword {
			return true
		}
	}
	return false
}

// lastMessageEmotional runs a cheap emotion check on the most recent
// history entry. A fresh detector per call would be wasteful, so a shared
// read-only instance is used.
var historyEmotionDetector = NewEmotionDetector()

func lastMessageEmotional(history []string) bool {
	last := history[len(history)-1]
	sig := historyEmotionDetector.Detect(last)
	return sig.Primary != EmotionNeutral && sig.Confidence >= 0.4
}

func defaultIntentFor(t ConversationType) UserIntent {
	switch t {
	case ConversationGreeting:
		return IntentGreeting
	case ConversationEmotional, ConversationCrisis:
		return IntentSeekingSupport
	case ConversationQuestion:
		return IntentAsking
	case ConversationFarewell:
		return IntentClosing
	default:
		return IntentSharing
	}
}
