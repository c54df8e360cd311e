package respondersdk

import (
	"math/rand"
	"testing"
)

func selectorCatalog(t *testing.T) *Catalog {
	t.Helper()
	templates := []Template{
		{
			ID:                  "support_anxious",
			EmotionTags:         []Emotion{EmotionAnxious, EmotionWorried},
			ConversationType:    ConversationEmotional,
			BaseText:            "That sounds stressful, {name}. I'm right here.",
			Variations:          []string{"One step at a time, {name}.", "I'm with you, {name}."},
			ContextRequirements: []string{"name"},
			PersonalityTone:     ToneSupportive,
		},
		{
			ID:                  "support_sad",
			EmotionTags:         []Emotion{EmotionSad, EmotionDown},
			ConversationType:    ConversationEmotional,
			BaseText:            "I'm sorry things are heavy, {name}.",
			ContextRequirements: []string{"name"},
			PersonalityTone:     ToneGentle,
		},
		{
			ID:               "picky",
			EmotionTags:      []Emotion{EmotionAnxious},
			ConversationType: ConversationEmotional,
			BaseText:         "Deep, confident reassurance.",
			PersonalityTone:  ToneCalm,
			MinConfidence:    0.95,
		},
		{
			ID:                  "casual",
			EmotionTags:         []Emotion{EmotionNeutral},
			ConversationType:    ConversationCasual,
			BaseText:            "Tell me more, {name}.",
			ContextRequirements: []string{"name"},
			PersonalityTone:     ToneWarm,
		},
	}
	cat, err := NewCatalog(templates)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return cat
}

func newTestSelector(t *testing.T) *TemplateSelector {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	return NewTemplateSelector(selectorCatalog(t), NewRotationEngine(rng), rng)
}

func TestSelectTemplate_EmotionMatchWins(t *testing.T) {
	s := newTestSelector(t)
	sel := s.SelectTemplate(SelectionCriteria{
		UserID:           "u1",
		Emotion:          EmotionAnxious,
		Confidence:       0.8,
		ConversationType: ConversationEmotional,
		AvailableContext: map[string]bool{"name": true},
	})
	if sel == nil {
		t.Fatal("expected a selection")
	}
	if sel.Template.ID != "support_anxious" {
		t.Fatalf("expected the anxious-tagged template, got %s", sel.Template.ID)
	}
}

func TestSelectTemplate_MinConfidenceFilter(t *testing.T) {
	s := newTestSelector(t)
	for i := 0; i < 10; i++ {
		sel := s.SelectTemplate(SelectionCriteria{
			UserID:           "u1",
			Emotion:          EmotionAnxious,
			Confidence:       0.5,
			ConversationType: ConversationEmotional,
			AvailableContext: map[string]bool{"name": true},
		})
		if sel == nil {
			t.Fatal("expected a selection")
		}
		if sel.Template.ID == "picky" {
			t.Fatal("template demanding 0.95 confidence must not fire at 0.5")
		}
	}
}

func TestSelectTemplate_AffinityFallback(t *testing.T) {
	s := newTestSelector(t)
	// depressed has no direct tag in the catalog; sad is its closest affinity.
	sel := s.SelectTemplate(SelectionCriteria{
		UserID:           "u1",
		Emotion:          EmotionDepressed,
		Confidence:       0.7,
		ConversationType: ConversationEmotional,
		AvailableContext: map[string]bool{"name": true},
	})
	if sel == nil {
		t.Fatal("expected an affinity-based selection")
	}
	if sel.Template.ConversationType != ConversationEmotional {
		t.Fatalf("expected an emotional template, got %s", sel.Template.ID)
	}
}

func TestSelectTemplate_NoCandidates(t *testing.T) {
	s := newTestSelector(t)
	sel := s.SelectTemplate(SelectionCriteria{
		UserID:           "u1",
		Emotion:          EmotionGrateful,
		Confidence:       0.9,
		ConversationType: ConversationFarewell,
	})
	if sel != nil {
		t.Fatalf("expected nil with no matching templates, got %s", sel.Template.ID)
	}
}

func TestSelectTemplate_RotatesVariations(t *testing.T) {
	s := newTestSelector(t)
	criteria := SelectionCriteria{
		UserID:           "u1",
		Emotion:          EmotionAnxious,
		Confidence:       0.9,
		ConversationType: ConversationEmotional,
		AvailableContext: map[string]bool{"name": true},
	}

	indices := make(map[int]bool)
	for i := 0; i < 12; i++ {
		sel := s.SelectTemplate(criteria)
		if sel == nil {
			t.Fatal("expected a selection")
		}
		if sel.Template.ID == "support_anxious" {
			indices[sel.VariationIndex] = true
		}
	}
	if len(indices) < 2 {
		t.Fatalf("repeated selections should rotate variations, saw %v", indices)
	}
}

func TestSelectTemplate_AntiRepetitionLowersScore(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	rotation := NewRotationEngine(rng)
	s := NewTemplateSelector(selectorCatalog(t), rotation, rng)

	tmpl := selectorCatalog(t).ByID("support_anxious")
	fresh := s.antiRepetitionScore("u1", tmpl.ID)
	rotation.NextVariation("u1", tmpl)
	used := s.antiRepetitionScore("u1", tmpl.ID)
	if used >= fresh {
		t.Fatalf("score should decay with use: fresh=%.2f used=%.2f", fresh, used)
	}
}
