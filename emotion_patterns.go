package respondersdk

// ──────────────────────────────────────────────
// Emotion Pattern Tables — static keyword/emoji data, loaded once
// ──────────────────────────────────────────────

type weightedKeyword struct {
	keyword string
	weight  float64
}

// defaultEmotionKeywords maps single-token keywords to emotions.
// Weights are differentiated so weak words need multiple hits to trigger.
func defaultEmotionKeywords() map[Emotion][]weightedKeyword {
	return map[Emotion][]weightedKeyword{
		EmotionHappy: {
			{keyword: "happy", weight: 0.5}, {keyword: "glad", weight: 0.4},
			{keyword: "great", weight: 0.3}, {keyword: "good", weight: 0.2},
			{keyword: "wonderful", weight: 0.5}, {keyword: "awesome", weight: 0.4},
			{keyword: "nice", weight: 0.2}, {keyword: "fun", weight: 0.3},
			{keyword: "joy", weight: 0.5}, {keyword: "smiling", weight: 0.4},
		},
		EmotionSad: {
			{keyword: "sad", weight: 0.6}, {keyword: "unhappy", weight: 0.5},
			{keyword: "crying", weight: 0.6}, {keyword: "cried", weight: 0.5},
			{keyword: "heartbroken", weight: 0.7}, {keyword: "miserable", weight: 0.6},
			{keyword: "tears", weight: 0.4}, {keyword: "hurt", weight: 0.4},
			{keyword: "upset", weight: 0.4}, {keyword: "grief", weight: 0.6},
		},
		EmotionAngry: {
			{keyword: "angry", weight: 0.6}, {keyword: "furious", weight: 0.7},
			{keyword: "mad", weight: 0.5}, {keyword: "annoyed", weight: 0.4},
			{keyword: "irritated", weight: 0.4}, {keyword: "hate", weight: 0.5},
			{keyword: "rage", weight: 0.7}, {keyword: "unfair", weight: 0.3},
			{keyword: "frustrated", weight: 0.5},
		},
		EmotionAnxious: {
			{keyword: "anxious", weight: 0.7}, {keyword: "nervous", weight: 0.5},
			{keyword: "panic", weight: 0.6}, {keyword: "panicking", weight: 0.7},
			{keyword: "overwhelmed", weight: 0.5}, {keyword: "stressed", weight: 0.5},
			{keyword: "stress", weight: 0.4}, {keyword: "tense", weight: 0.4},
			{keyword: "dread", weight: 0.5}, {keyword: "exam", weight: 0.2},
			{keyword: "deadline", weight: 0.2}, {keyword: "interview", weight: 0.2},
		},
		EmotionWorried: {
			{keyword: "worried", weight: 0.6}, {keyword: "worry", weight: 0.5},
			{keyword: "concerned", weight: 0.4}, {keyword: "scared", weight: 0.5},
			{keyword: "afraid", weight: 0.5}, {keyword: "fear", weight: 0.4},
		},
		EmotionDepressed: {
			{keyword: "depressed", weight: 0.7}, {keyword: "hopeless", weight: 0.7},
			{keyword: "empty", weight: 0.4}, {keyword: "numb", weight: 0.5},
			{keyword: "worthless", weight: 0.7}, {keyword: "pointless", weight: 0.5},
		},
		EmotionDown: {
			{keyword: "down", weight: 0.4}, {keyword: "low", weight: 0.3},
			{keyword: "tired", weight: 0.3}, {keyword: "exhausted", weight: 0.4},
			{keyword: "drained", weight: 0.4}, {keyword: "blah", weight: 0.3},
		},
		EmotionExcited: {
			{keyword: "excited", weight: 0.6}, {keyword: "thrilled", weight: 0.6},
			{keyword: "amazing", weight: 0.4}, {keyword: "incredible", weight: 0.4},
			{keyword: "fantastic", weight: 0.5}, {keyword: "yay", weight: 0.5},
			{keyword: "hyped", weight: 0.5},
		},
		EmotionGrateful: {
			{keyword: "grateful", weight: 0.6}, {keyword: "thankful", weight: 0.6},
			{keyword: "thanks", weight: 0.4}, {keyword: "thank", weight: 0.4},
			{keyword: "appreciate", weight: 0.5}, {keyword: "blessed", weight: 0.4},
		},
		EmotionLonely: {
			{keyword: "lonely", weight: 0.7}, {keyword: "alone", weight: 0.4},
			{keyword: "isolated", weight: 0.5}, {keyword: "nobody", weight: 0.3},
			{keyword: "ignored", weight: 0.4},
		},
		EmotionConfused: {
			{keyword: "confused", weight: 0.6}, {keyword: "lost", weight: 0.3},
			{keyword: "unsure", weight: 0.4}, {keyword: "confusing", weight: 0.5},
			{keyword: "stuck", weight: 0.3},
		},
	}
}

// defaultEmotionPhrases are multi-word expressions matched by substring.
// They bypass the token window logic and add their weight directly.
func defaultEmotionPhrases() map[Emotion][]weightedKeyword {
	return map[Emotion][]weightedKeyword{
		EmotionSad:       {{keyword: "feeling blue", weight: 0.5}, {keyword: "broke up", weight: 0.4}},
		EmotionAnxious:   {{keyword: "freaking out", weight: 0.6}, {keyword: "on edge", weight: 0.5}, {keyword: "can't sleep", weight: 0.3}},
		EmotionDepressed: {{keyword: "no point", weight: 0.5}, {keyword: "given up", weight: 0.5}},
		EmotionDown:      {{keyword: "not great", weight: 0.4}, {keyword: "been better", weight: 0.4}},
		EmotionLonely:    {{keyword: "no one to talk", weight: 0.6}, {keyword: "by myself", weight: 0.3}},
		EmotionHappy:     {{keyword: "so good", weight: 0.3}, {keyword: "love it", weight: 0.3}},
		EmotionExcited:   {{keyword: "can't wait", weight: 0.5}, {keyword: "best day", weight: 0.4}},
	}
}

// defaultEmojiEmotions maps emoji to an emotion with a fixed weight.
func defaultEmojiEmotions() map[string]weightedEmotion {
	return map[string]weightedEmotion{
		"😀": {EmotionHappy, 0.4}, "😄": {EmotionHappy, 0.4}, "🙂": {EmotionHappy, 0.3},
		"😊": {EmotionHappy, 0.4}, "❤": {EmotionHappy, 0.3}, "❤️": {EmotionHappy, 0.3},
		"🎉": {EmotionExcited, 0.5}, "🤩": {EmotionExcited, 0.5}, "🔥": {EmotionExcited, 0.3},
		"😢": {EmotionSad, 0.5}, "😭": {EmotionSad, 0.6}, "💔": {EmotionSad, 0.5},
		"😞": {EmotionDown, 0.4}, "😔": {EmotionDown, 0.4}, "😩": {EmotionDown, 0.4},
		"😡": {EmotionAngry, 0.6}, "😠": {EmotionAngry, 0.5}, "🤬": {EmotionAngry, 0.7},
		"😰": {EmotionAnxious, 0.5}, "😱": {EmotionAnxious, 0.5}, "😬": {EmotionAnxious, 0.3},
		"😟": {EmotionWorried, 0.4}, "🥺": {EmotionSad, 0.3}, "🙏": {EmotionGrateful, 0.4},
	}
}

type weightedEmotion struct {
	emotion Emotion
	weight  float64
}

// defaultNegationMarkers invert a keyword hit when they appear within
// three tokens before it ("not sad", "don't feel happy").
func defaultNegationMarkers() map[string]bool {
	return map[string]bool{
		"not": true, "no": true, "never": true, "hardly": true, "barely": true,
		"don't": true, "dont": true, "doesn't": true, "doesnt": true,
		"isn't": true, "isnt": true, "wasn't": true, "wasnt": true,
		"can't": true, "cant": true, "won't": true, "wont": true,
	}
}

// defaultIntensityModifiers scale a keyword hit when they appear within
// three tokens of it. Values below 1.0 soften, above 1.0 amplify.
func defaultIntensityModifiers() map[string]float64 {
	return map[string]float64{
		"very": 1.5, "so": 1.4, "really": 1.4, "extremely": 1.8,
		"incredibly": 1.7, "totally": 1.4, "absolutely": 1.5, "super": 1.4,
		"completely": 1.5, "utterly": 1.6, "deeply": 1.5,
		"slightly": 0.6, "somewhat": 0.7, "kinda": 0.7, "kind": 0.8,
		"bit": 0.6, "little": 0.7, "mildly": 0.6,
	}
}

// defaultCrisisKeywords are matched by substring against the lowercased
// message. Any hit is a hard crisis override.
func defaultCrisisKeywords() []string {
	return []string{
		"kill myself", "end my life", "end it all", "want to die",
		"suicide", "suicidal", "self harm", "self-harm", "hurt myself",
		"no reason to live", "better off without me", "can't go on",
		"don't want to be here anymore",
	}
}

// emotionAffinity scores similarity between non-identical emotions for
// template matching (sad ~ depressed ~ down, anxious ~ worried, ...).
var emotionAffinity = map[Emotion]map[Emotion]float64{
	EmotionSad:       {EmotionDepressed: 0.8, EmotionDown: 0.8, EmotionLonely: 0.6, EmotionWorried: 0.4},
	EmotionDepressed: {EmotionSad: 0.8, EmotionDown: 0.7, EmotionLonely: 0.6},
	EmotionDown:      {EmotionSad: 0.8, EmotionDepressed: 0.7, EmotionLonely: 0.5},
	EmotionLonely:    {EmotionSad: 0.6, EmotionDepressed: 0.6, EmotionDown: 0.5},
	EmotionAnxious:   {EmotionWorried: 0.85, EmotionConfused: 0.4},
	EmotionWorried:   {EmotionAnxious: 0.85, EmotionSad: 0.4},
	EmotionAngry:     {EmotionDown: 0.3},
	EmotionHappy:     {EmotionExcited: 0.8, EmotionGrateful: 0.6},
	EmotionExcited:   {EmotionHappy: 0.8, EmotionGrateful: 0.5},
	EmotionGrateful:  {EmotionHappy: 0.6, EmotionExcited: 0.5},
	EmotionConfused:  {EmotionAnxious: 0.4, EmotionWorried: 0.4},
}

// AffinityBetween returns the fixed similarity between two emotions:
// 1.0 for identical, table value for related, 0 otherwise.
func AffinityBetween(a, b Emotion) float64 {
	if a == b {
		return 1.0
	}
	if m, ok := emotionAffinity[a]; ok {
		return m[b]
	}
	return 0
}
