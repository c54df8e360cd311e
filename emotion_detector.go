package respondersdk

import "strings"

// ──────────────────────────────────────────────
// Emotion Detector — weighted keyword/emoji scoring with negation windows
// ──────────────────────────────────────────────

// EmotionSignal holds the detected emotion, confidence and per-emotion scores.
type EmotionSignal struct {
	Primary    Emotion             `json:"primary"`
	Confidence float64             `json:"confidence"` // 0.0-1.0
	Intensity  Intensity           `json:"intensity"`
	Scores     map[Emotion]float64 `json:"scores"`
}

// EmotionDetector scores user messages against static keyword, phrase and
// emoji tables. No I/O, safe for concurrent use after construction.
type EmotionDetector struct {
	keywords     map[Emotion][]weightedKeyword
	phrases      map[Emotion][]weightedKeyword
	emoji        map[string]weightedEmotion
	negations    map[string]bool
	intensifiers map[string]float64
	crisisWords  []string
}

// NewEmotionDetector creates a detector with the built-in pattern tables.
func NewEmotionDetector() *EmotionDetector {
	return &EmotionDetector{
		keywords:     defaultEmotionKeywords(),
		phrases:      defaultEmotionPhrases(),
		emoji:        defaultEmojiEmotions(),
		negations:    defaultNegationMarkers(),
		intensifiers: defaultIntensityModifiers(),
		crisisWords:  defaultCrisisKeywords(),
	}
}

// negationWindow and modifierWindow bound how far a marker reaches, in tokens.
const (
	negationWindow = 3
	modifierWindow = 3
)

// Detect scores the message and returns the top emotion.
// If no signal exceeds zero the result is neutral with confidence 0.5.
func (d *EmotionDetector) Detect(message string) *EmotionSignal {
	tokens := tokenize(message)
	lower := strings.ToLower(message)

	scores := make(map[Emotion]float64)

	// Single-token keywords with negation and intensity windows.
	index := tokenIndex(tokens)
	for emotion, kws := range d.keywords {
		for _, kw := range kws {
			positions, ok := index[kw.keyword]
			if !ok {
				continue
			}
			for _, pos := range positions {
				w := kw.weight
				if mult := d.nearbyModifier(tokens, pos); mult != 0 {
					w *= mult
				}
				if d.negatedAt(tokens, pos) {
					w = -w
				}
				scores[emotion] += w
			}
		}
	}

	// Phrases: substring match, no window logic.
	for emotion, phrases := range d.phrases {
		for _, p := range phrases {
			if strings.Contains(lower, p.keyword) {
				scores[emotion] += p.weight
			}
		}
	}

	// Emoji hits.
	for glyph, we := range d.emoji {
		if n := strings.Count(message, glyph); n > 0 {
			scores[we.emotion] += we.weight * float64(n)
		}
	}

	// Negated contributions can drive a score below zero; floor at zero.
	for emotion, s := range scores {
		if s < 0 {
			scores[emotion] = 0
		}
	}

	primary := EmotionNeutral
	top := 0.0
	for emotion, s := range scores {
		if s > top {
			top = s
			primary = emotion
		}
	}

	if top <= 0 {
		return &EmotionSignal{
			Primary:    EmotionNeutral,
			Confidence: 0.5,
			Intensity:  IntensityLow,
			Scores:     scores,
		}
	}

	confidence := clamp01(top)
	return &EmotionSignal{
		Primary:    primary,
		Confidence: confidence,
		Intensity:  classifyIntensity(confidence, message),
		Scores:     scores,
	}
}

// crisisProneEmotions limits the heuristic branch of crisis detection to
// despair-type emotions. Anxiety or anger alone never trip it.
var crisisProneEmotions = map[Emotion]bool{
	EmotionSad:       true,
	EmotionDepressed: true,
	EmotionDown:      true,
	EmotionLonely:    true,
}

// DetectCrisis reports whether the message is a crisis: either a fixed
// keyword hit, or a high-confidence despair emotion at high intensity.
// Downstream components must treat a crisis as a hard override.
func (d *EmotionDetector) DetectCrisis(message string, signal *EmotionSignal) bool {
	lower := strings.ToLower(message)
	for _, kw := range d.crisisWords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if signal == nil {
		return false
	}
	if crisisProneEmotions[signal.Primary] && signal.Confidence >= 0.85 &&
		(signal.Intensity == IntensityHigh || signal.Intensity == IntensityVeryHigh) {
		return true
	}
	return false
}

// nearbyModifier returns the intensity multiplier of the closest modifier
// within the window around pos, or 0 if none applies.
func (d *EmotionDetector) nearbyModifier(tokens []string, pos int) float64 {
	start := pos - modifierWindow
	if start < 0 {
		start = 0
	}
	end := pos + modifierWindow
	if end >= len(tokens) {
		end = len(tokens) - 1
	}
	for i := start; i <= end; i++ {
		if i == pos {
			continue
		}
		if mult, ok := d.intensifiers[tokens[i]]; ok {
			return mult
		}
	}
	return 0
}

// negatedAt reports whether a negation marker precedes pos within the window.
func (d *EmotionDetector) negatedAt(tokens []string, pos int) bool {
	start := pos - negationWindow
	if start < 0 {
		start = 0
	}
	for i := start; i < pos; i++ {
		if d.negations[tokens[i]] {
			return true
		}
	}
	return false
}

func tokenIndex(tokens []string) map[string][]int {
	index := make(map[string][]int, len(tokens))
	for i, tok := range tokens {
		index[tok] = append(index[tok], i)
	}
	return index
}

// classifyIntensity maps confidence plus punctuation emphasis to a level.
func classifyIntensity(confidence float64, message string) Intensity {
	level := 0
	switch {
	case confidence >= 0.85:
		level = 3
	case confidence >= 0.65:
		level = 2
	case confidence >= 0.4:
		level = 1
	}
	if strings.Count(message, "!") >= 2 && level < 3 {
		level++
	}
	switch level {
	case 3:
		return IntensityVeryHigh
	case 2:
		return IntensityHigh
	case 1:
		return IntensityMedium
	default:
		return IntensityLow
	}
}
