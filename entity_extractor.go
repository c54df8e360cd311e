package respondersdk

import (
	"regexp"
	"strings"
)

// ──────────────────────────────────────────────
// Entity Extractor — pattern templates for names, relationships, preferences
// ──────────────────────────────────────────────

// EntityType labels an extracted span.
type EntityType string

const (
	EntityName         EntityType = "name"
	EntityRelationship EntityType = "relationship"
	EntityPreference   EntityType = "preference"
	EntityActivity     EntityType = "activity"
	EntityLocation     EntityType = "location"
	EntityTimeRef      EntityType = "time_reference"
)

// Entity is a typed span recovered from the message.
type Entity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Detail     string     `json:"detail,omitempty"` // e.g. relationship holder's name
	Confidence float64    `json:"confidence"`       // 0.0-1.0
}

type entityPattern struct {
	entityType EntityType
	re         *regexp.Regexp
	confidence float64
	// valueGroup / detailGroup index into the regexp submatches
	valueGroup  int
	detailGroup int
}

// EntityExtractor applies regex pattern templates to recover entities.
// Tables are compiled once at construction; extraction is pure.
type EntityExtractor struct {
	patterns []entityPattern
}

// NewEntityExtractor compiles the built-in pattern tables.
func NewEntityExtractor() *EntityExtractor {
	relWords := `mom|mother|dad|father|sister|brother|wife|husband|boyfriend|girlfriend|partner|friend|best friend|boss|son|daughter|grandma|grandpa|coworker|colleague|roommate|dog|cat`
	return &EntityExtractor{
		patterns: []entityPattern{
			{EntityName, regexp.MustCompile(`(?i)\bmy name is ([A-Za-z]+)`), 0.95, 1, 0},
			{EntityName, regexp.MustCompile(`(?i)\bcall me ([A-Za-z]+)`), 0.9, 1, 0},
			{EntityRelationship, regexp.MustCompile(`(?i)\bmy (` + relWords + `)\b(?: ([A-Z][a-z]+))?`), 0.85, 1, 2},
			{EntityPreference, regexp.MustCompile(`(?i)\bi (?:really )?(love|like|enjoy|hate|dislike|prefer) ([a-z][a-z' ]{1,30}?)(?:[.,!?]|$)`), 0.75, 2, 1},
			{EntityActivity, regexp.MustCompile(`(?i)\bi (?:was|am|have been|been) ([a-z]+ing)\b`), 0.6, 1, 0},
			{EntityActivity, regexp.MustCompile(`(?i)\bwent to (?:the |a )?([a-z][a-z ]{1,25}?)(?:[.,!?]|$| with| and)`), 0.6, 1, 0},
			{EntityLocation, regexp.MustCompile(`\b(?:in|at|from) ([A-Z][a-z]{2,20})\b`), 0.55, 1, 0},
			{EntityTimeRef, regexp.MustCompile(`(?i)\b(today|tomorrow|yesterday|tonight|this (?:morning|afternoon|evening|weekend|week)|last (?:night|week|month|year)|next (?:week|month|year))\b`), 0.8, 1, 0},
		},
	}
}

// Extract applies every pattern and returns deduplicated entities,
// keeping the highest-confidence instance per (type, value) pair.
func (e *EntityExtractor) Extract(message string) []Entity {
	if message == "" {
		return nil
	}

	var found []Entity
	for _, p := range e.patterns {
		matches := p.re.FindAllStringSubmatch(message, -1)
		for _, m := range matches {
			if p.valueGroup >= len(m) {
				continue
			}
			value := strings.TrimSpace(m[p.valueGroup])
			if value == "" {
				continue
			}
			detail := ""
			if p.detailGroup > 0 && p.detailGroup < len(m) {
				detail = strings.TrimSpace(m[p.detailGroup])
			}
			found = append(found, Entity{
				Type:       p.entityType,
				Value:      normalizeEntityValue(p.entityType, value),
				Detail:     detail,
				Confidence: p.confidence,
			})
		}
	}

	return dedupeEntities(found)
}

// normalizeEntityValue keeps names capitalized and lowers everything else.
func normalizeEntityValue(t EntityType, value string) string {
	if t == EntityName || t == EntityLocation {
		return titleCase(value)
	}
	return strings.ToLower(value)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func dedupeEntities(entities []Entity) []Entity {
	if len(entities) == 0 {
		return nil
	}
	best := make(map[string]Entity, len(entities))
	order := make([]string, 0, len(entities))
	for _, ent := range entities {
		key := string(ent.Type) + "|" + strings.ToLower(ent.Value)
		prev, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = ent
			continue
		}
		if ent.Confidence > prev.Confidence {
			best[key] = ent
		}
	}
	out := make([]Entity, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}
