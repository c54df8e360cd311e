package respondersdk

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// ──────────────────────────────────────────────
// Strategy Selector — scores response strategies under live system metrics
// ──────────────────────────────────────────────

// Strategy is one of the four response-generation approaches, richest first.
type Strategy string

const (
	StrategyRichTemplate       Strategy = "rich_template"
	StrategyBasicTemplate      Strategy = "basic_template"
	StrategyGenerativeAssisted Strategy = "generative_assisted"
	StrategyEmergencyFallback  Strategy = "emergency_fallback"
)

// StrategyCriteria is the input to strategy selection.
type StrategyCriteria struct {
	Message             string
	Analysis            *AnalysisResult
	Context             *UserContext
	GenerativeAvailable bool
}

// StrategyDecision is the selection outcome, created fresh per request.
type StrategyDecision struct {
	SelectedStrategy Strategy             `json:"selected_strategy"`
	Confidence       float64              `json:"confidence"`
	Reasoning        []string             `json:"reasoning"`
	FallbackChain    []Strategy           `json:"fallback_chain"`
	EstimatedCost    float64              `json:"estimated_cost"`
	EstimatedQuality float64              `json:"estimated_quality"`
	LoadLevel        LoadLevel            `json:"load_level"`
	Scores           map[Strategy]float64 `json:"scores"`
}

// Per-strategy fixed cost/quality estimates used in decision metadata.
var (
	strategyCost    = map[Strategy]float64{StrategyRichTemplate: 0.4, StrategyBasicTemplate: 0.2, StrategyGenerativeAssisted: 0.9, StrategyEmergencyFallback: 0.0}
	strategyQuality = map[Strategy]float64{StrategyRichTemplate: 0.85, StrategyBasicTemplate: 0.6, StrategyGenerativeAssisted: 0.9, StrategyEmergencyFallback: 0.4}
)

// StrategySelector chooses among response strategies, consulting the
// per-strategy circuit breakers on every call.
type StrategySelector struct {
	generativeBreaker *CircuitBreaker
	contextBreaker    *CircuitBreaker
	now               func() time.Time
}

// NewStrategySelector creates a selector wired to the given breakers.
func NewStrategySelector(generative, contextFetch *CircuitBreaker) *StrategySelector {
	if generative == nil {
		generative = NewGenerativeAssistBreaker()
	}
	if contextFetch == nil {
		contextFetch = NewContextFetchBreaker()
	}
	return &StrategySelector{
		generativeBreaker: generative,
		contextBreaker:    contextFetch,
		now:               time.Now,
	}
}

// GenerativeBreaker returns the breaker guarding generative assist.
func (s *StrategySelector) GenerativeBreaker() *CircuitBreaker { return s.generativeBreaker }

// ContextBreaker returns the breaker guarding context-dependent templating.
func (s *StrategySelector) ContextBreaker() *CircuitBreaker { return s.contextBreaker }

// SelectStrategy scores every strategy as a weighted sum of message
// complexity, emotion intensity, context availability and inverse system
// load, applies situational bonuses, then runs the constraint pass.
func (s *StrategySelector) SelectStrategy(criteria StrategyCriteria, metrics SystemMetrics) *StrategyDecision {
	now := s.now()
	load := ClassifyLoad(metrics)

	complexity := messageComplexity(criteria.Message, criteria.Analysis)
	intensity := intensityFactor(criteria.Analysis)
	contextAvail := contextAvailability(criteria.Context)
	invLoad := loadScore(load)

	var reasoning []string
	reasoning = append(reasoning, fmt.Sprintf("load=%s complexity=%.2f intensity=%.2f context=%.2f", load, complexity, intensity, contextAvail))

	scores := map[Strategy]float64{
		StrategyRichTemplate:       0.25*complexity + 0.25*intensity + 0.25*contextAvail + 0.25*invLoad,
		StrategyBasicTemplate:      0.25*(1-complexity*0.5) + 0.25*(1-intensity*0.5) + 0.25*0.5 + 0.25*invLoad,
		StrategyGenerativeAssisted: 0.25*complexity + 0.25*intensity*0.8 + 0.25*contextAvail*0.6 + 0.25*invLoad,
		StrategyEmergencyFallback:  0.1 + 0.25*(1-invLoad),
	}

	isCrisis := criteria.Analysis != nil && criteria.Analysis.IsCrisis
	if isCrisis {
		scores[StrategyRichTemplate] += 0.3
		reasoning = append(reasoning, "crisis: boosting rich template")
	}
	if empathyRequired(criteria.Analysis) {
		scores[StrategyRichTemplate] += 0.2
		scores[StrategyGenerativeAssisted] += 0.15
		reasoning = append(reasoning, "empathy required")
	}
	if memoryRequired(criteria.Context) {
		scores[StrategyRichTemplate] += 0.15
		reasoning = append(reasoning, "relevant memories available")
	}

	// Constraint pass. Breaker state is derived lazily on every call.
	if !criteria.GenerativeAvailable {
		scores[StrategyGenerativeAssisted] = 0
		reasoning = append(reasoning, "generative assist unavailable")
	} else if !s.generativeBreaker.Allow(now) {
		scores[StrategyGenerativeAssisted] = 0
		reasoning = append(reasoning, "generative assist circuit open")
	}
	if !s.contextBreaker.Allow(now) {
		scores[StrategyRichTemplate] = 0
		reasoning = append(reasoning, "context fetch circuit open")
	}
	if load == LoadCritical && !isCrisis {
		// The forced decision must win outright even against boosted scores.
		scores[StrategyEmergencyFallback] = 1.0
		scores[StrategyGenerativeAssisted] = 0
		for _, st := range []Strategy{StrategyRichTemplate, StrategyBasicTemplate} {
			if scores[st] > 0.9 {
				scores[st] = 0.9
			}
		}
		reasoning = append(reasoning, "critical load: forcing emergency fallback")
	}

	selected, chain := rankStrategies(scores)
	decision := &StrategyDecision{
		SelectedStrategy: selected,
		Confidence:       clamp01(scores[selected]),
		Reasoning:        reasoning,
		FallbackChain:    chain,
		EstimatedCost:    strategyCost[selected],
		EstimatedQuality: strategyQuality[selected],
		LoadLevel:        load,
		Scores:           scores,
	}
	return decision
}

// rankStrategies orders strategies by score descending and returns the
// winner plus the remaining chain, always ending in emergency fallback.
func rankStrategies(scores map[Strategy]float64) (Strategy, []Strategy) {
	order := []Strategy{StrategyRichTemplate, StrategyBasicTemplate, StrategyGenerativeAssisted, StrategyEmergencyFallback}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	selected := order[0]
	var chain []Strategy
	for _, st := range order[1:] {
		if st == StrategyEmergencyFallback {
			continue
		}
		if scores[st] > 0 {
			chain = append(chain, st)
		}
	}
	chain = append(chain, StrategyEmergencyFallback)
	return selected, chain
}

// messageComplexity grows with length, entity count and question structure.
func messageComplexity(message string, analysis *AnalysisResult) float64 {
	length := utf8.RuneCountInString(message)
	score := clamp01(float64(length) / 200.0 * 0.6)
	if analysis != nil {
		score += clamp01(float64(len(analysis.Entities)) * 0.1)
		if analysis.ConversationType == ConversationQuestion {
			score += 0.2
		}
	}
	if strings.Contains(message, "?") {
		score += 0.1
	}
	return clamp01(score)
}

func intensityFactor(analysis *AnalysisResult) float64 {
	if analysis == nil {
		return 0.2
	}
	switch analysis.Intensity {
	case IntensityVeryHigh:
		return 1.0
	case IntensityHigh:
		return 0.75
	case IntensityMedium:
		return 0.5
	default:
		return 0.2
	}
}

func contextAvailability(uctx *UserContext) float64 {
	if uctx == nil {
		return 0
	}
	score := 0.0
	if uctx.PreferredName != "" && uctx.PreferredName != "friend" {
		score += 0.2
	}
	if len(uctx.KeyRelationships) > 0 {
		score += 0.25
	}
	if len(uctx.RecentMemories) > 0 {
		score += 0.25
	}
	if len(uctx.ConversationHistory) > 0 {
		score += 0.15
	}
	if len(uctx.RecentEmotions) > 0 {
		score += 0.15
	}
	return clamp01(score)
}

func empathyRequired(analysis *AnalysisResult) bool {
	return analysis != nil && negativeEmotions[analysis.PrimaryEmotion] && analysis.Confidence > 0.6
}

func memoryRequired(uctx *UserContext) bool {
	return uctx != nil && len(uctx.RecentMemories) > 0 && uctx.RecentMemories[0].Relevance >= 0.6
}
