package respondersdk

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ──────────────────────────────────────────────
// Template Catalog — validated, read-only response template collection
// ──────────────────────────────────────────────

// PersonalityTone labels the voice of a template.
type PersonalityTone string

const (
	ToneWarm       PersonalityTone = "warm"
	ToneSupportive PersonalityTone = "supportive"
	ToneGentle     PersonalityTone = "gentle"
	ToneCalm       PersonalityTone = "calm"
	TonePlayful    PersonalityTone = "playful"
)

var validTones = map[PersonalityTone]bool{
	ToneWarm: true, ToneSupportive: true, ToneGentle: true, ToneCalm: true, TonePlayful: true,
}

// toneCompatibility scores non-identical tone pairs for selection.
var toneCompatibility = map[PersonalityTone]map[PersonalityTone]bool{
	ToneWarm:       {ToneSupportive: true, ToneGentle: true, TonePlayful: true},
	ToneSupportive: {ToneWarm: true, ToneGentle: true, ToneCalm: true},
	ToneGentle:     {ToneWarm: true, ToneSupportive: true, ToneCalm: true},
	ToneCalm:       {ToneGentle: true, ToneSupportive: true},
	TonePlayful:    {ToneWarm: true},
}

// Template is one response template. Immutable once loaded.
type Template struct {
	ID                  string           `yaml:"id" json:"id"`
	EmotionTags         []Emotion        `yaml:"emotion_tags" json:"emotion_tags"`
	ConversationType    ConversationType `yaml:"conversation_type" json:"conversation_type"`
	BaseText            string           `yaml:"base_text" json:"base_text"`
	Variations          []string         `yaml:"variations,omitempty" json:"variations,omitempty"`
	FollowUps           []string         `yaml:"follow_ups,omitempty" json:"follow_ups,omitempty"`
	ContextRequirements []string         `yaml:"context_requirements,omitempty" json:"context_requirements,omitempty"`
	PersonalityTone     PersonalityTone  `yaml:"personality_tone" json:"personality_tone"`
	MinConfidence       float64          `yaml:"min_confidence" json:"min_confidence"`
	UsageWeight         float64          `yaml:"usage_weight" json:"usage_weight"`
}

// Texts returns base text plus variations; index 0 is always the base.
func (t *Template) Texts() []string {
	return append([]string{t.BaseText}, t.Variations...)
}

// HasEmotionTag reports whether the template is tagged with the emotion.
func (t *Template) HasEmotionTag(e Emotion) bool {
	for _, tag := range t.EmotionTags {
		if tag == e {
			return true
		}
	}
	return false
}

// CatalogValidationError reports the templates rejected during load.
type CatalogValidationError struct {
	Issues []string // "template_id: problem"
}

func (e *CatalogValidationError) Error() string {
	return fmt.Sprintf("catalog validation failed: %s", strings.Join(e.Issues, "; "))
}

// placeholderPattern matches {placeholder} syntax inside template text.
var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Catalog is the process-wide template collection, read-only after load
// and safe for unsynchronized concurrent reads.
type Catalog struct {
	templates []*Template
	byID      map[string]*Template
	byEmotion map[Emotion][]*Template
	byType    map[ConversationType][]*Template
}

// NewCatalog validates the given templates and indexes the valid ones.
// The returned error (a *CatalogValidationError) lists rejected ids; a
// catalog with at least one valid template is still returned alongside it.
// If no template survives, the built-in fallback catalog is returned:
// the system never starts with zero templates.
func NewCatalog(templates []Template) (*Catalog, error) {
	cat := &Catalog{
		byID:      make(map[string]*Template),
		byEmotion: make(map[Emotion][]*Template),
		byType:    make(map[ConversationType][]*Template),
	}
	var issues []string
	for i := range templates {
		t := templates[i]
		if problem := validateTemplate(&t); problem != "" {
			issues = append(issues, fmt.Sprintf("%s: %s", templateID(&t, i), problem))
			continue
		}
		cat.add(&t)
	}

	var err error
	if len(issues) > 0 {
		err = &CatalogValidationError{Issues: issues}
	}
	if len(cat.templates) == 0 {
		return BuiltinCatalog(), err
	}
	return cat, err
}

// LoadCatalog reads a YAML template list from r and builds a catalog.
// On a read/parse failure the built-in fallback catalog is returned with
// the error.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return BuiltinCatalog(), fmt.Errorf("read catalog: %w", err)
	}
	var file struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return BuiltinCatalog(), fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(file.Templates)
}

// LoadCatalogFile loads a YAML catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return BuiltinCatalog(), fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

func validateTemplate(t *Template) string {
	if t.ID == "" {
		return "missing id"
	}
	if strings.TrimSpace(t.BaseText) == "" {
		return "empty base_text"
	}
	if !validConversationTypes[t.ConversationType] {
		return fmt.Sprintf("unknown conversation_type %q", t.ConversationType)
	}
	if !validTones[t.PersonalityTone] {
		return fmt.Sprintf("unknown personality_tone %q", t.PersonalityTone)
	}
	required := make(map[string]bool, len(t.ContextRequirements))
	for _, r := range t.ContextRequirements {
		required[r] = true
	}
	for _, text := range t.Texts() {
		for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			if !required[m[1]] {
				return fmt.Sprintf("placeholder {%s} not declared in context_requirements", m[1])
			}
		}
	}
	if t.MinConfidence < 0 || t.MinConfidence > 1 {
		return "min_confidence out of range"
	}
	return ""
}

func templateID(t *Template, idx int) string {
	if t.ID != "" {
		return t.ID
	}
	return fmt.Sprintf("template[%d]", idx)
}

func (c *Catalog) add(t *Template) {
	if t.UsageWeight <= 0 {
		t.UsageWeight = 1.0
	}
	c.templates = append(c.templates, t)
	c.byID[t.ID] = t
	c.byType[t.ConversationType] = append(c.byType[t.ConversationType], t)
	for _, e := range t.EmotionTags {
		c.byEmotion[e] = append(c.byEmotion[e], t)
	}
}

// Len returns the number of templates in the catalog.
func (c *Catalog) Len() int { return len(c.templates) }

// ByID looks up a template by id.
func (c *Catalog) ByID(id string) *Template { return c.byID[id] }

// ByEmotion returns templates tagged with the emotion.
func (c *Catalog) ByEmotion(e Emotion) []*Template { return c.byEmotion[e] }

// ByType returns templates for the conversation type.
func (c *Catalog) ByType(t ConversationType) []*Template { return c.byType[t] }

// All returns every template.
func (c *Catalog) All() []*Template { return c.templates }

// BuiltinCatalog returns the small hand-written fallback catalog used when
// an external catalog cannot be loaded.
func BuiltinCatalog() *Catalog {
	cat := &Catalog{
		byID:      make(map[string]*Template),
		byEmotion: make(map[Emotion][]*Template),
		byType:    make(map[ConversationType][]*Template),
	}
	for _, t := range builtinTemplates() {
		tt := t
		cat.add(&tt)
	}
	return cat
}

func builtinTemplates() []Template {
	return []Template{
		{
			ID:               "builtin_greeting",
			EmotionTags:      []Emotion{EmotionNeutral, EmotionHappy},
			ConversationType: ConversationGreeting,
			BaseText:         "Hey {name}, it's good to hear from you. How has your day been?",
			Variations: []string{
				"Hi {name}! I was hoping you'd stop by. What's on your mind?",
				"Hello {name}, welcome back. How are you doing today?",
			},
			ContextRequirements: []string{"name"},
			PersonalityTone:     ToneWarm,
			UsageWeight:         1.0,
		},
		{
			ID:               "builtin_emotional_support",
			EmotionTags:      []Emotion{EmotionSad, EmotionDown, EmotionAnxious, EmotionWorried, EmotionLonely},
			ConversationType: ConversationEmotional,
			BaseText:         "That sounds really hard, {name}. I'm here with you, and you don't have to carry this alone.",
			Variations: []string{
				"I hear you, {name}. What you're feeling makes sense, and I'm here to listen.",
				"Thank you for telling me, {name}. Take your time, I'm not going anywhere.",
			},
			FollowUps:           []string{"Would it help to talk through what happened?"},
			ContextRequirements: []string{"name"},
			PersonalityTone:     ToneSupportive,
			UsageWeight:         1.0,
		},
		{
			ID:               "builtin_casual",
			EmotionTags:      []Emotion{EmotionNeutral, EmotionHappy, EmotionExcited},
			ConversationType: ConversationCasual,
			BaseText:         "I'm glad you brought that up, {name}. Tell me more about it.",
			Variations: []string{
				"That's interesting, {name}. How did that go?",
			},
			ContextRequirements: []string{"name"},
			PersonalityTone:     ToneWarm,
			UsageWeight:         1.0,
		},
	}
}
