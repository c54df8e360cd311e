package respondersdk

// ──────────────────────────────────────────────
// System Load — threshold tables over host metrics, worst indicator wins
// ──────────────────────────────────────────────

// SystemMetrics is a read-only snapshot supplied by the host process.
type SystemMetrics struct {
	MemoryUsage    float64 `json:"memory_usage"` // 0.0-1.0
	CPUUsage       float64 `json:"cpu_usage"`    // 0.0-1.0
	ResponseTimeMs float64 `json:"response_time_ms"`
	ErrorRate      float64 `json:"error_rate"` // 0.0-1.0
	CacheHitRate   float64 `json:"cache_hit_rate"`
}

// MetricsProvider supplies a metrics snapshot per decision.
type MetricsProvider interface {
	Snapshot() SystemMetrics
}

// LoadLevel classifies overall system pressure.
type LoadLevel string

const (
	LoadLow      LoadLevel = "low"
	LoadMedium   LoadLevel = "medium"
	LoadHigh     LoadLevel = "high"
	LoadCritical LoadLevel = "critical"
)

type loadThresholds struct {
	medium, high, critical float64
}

var (
	memoryThresholds       = loadThresholds{medium: 0.6, high: 0.75, critical: 0.9}
	cpuThresholds          = loadThresholds{medium: 0.6, high: 0.8, critical: 0.95}
	responseTimeThresholds = loadThresholds{medium: 200, high: 500, critical: 1000}
	errorRateThresholds    = loadThresholds{medium: 0.01, high: 0.05, critical: 0.15}
)

func (t loadThresholds) classify(v float64) LoadLevel {
	switch {
	case v >= t.critical:
		return LoadCritical
	case v >= t.high:
		return LoadHigh
	case v >= t.medium:
		return LoadMedium
	default:
		return LoadLow
	}
}

var loadRank = map[LoadLevel]int{LoadLow: 0, LoadMedium: 1, LoadHigh: 2, LoadCritical: 3}

// ClassifyLoad derives the overall load level: the worst of memory, CPU,
// response time and error rate wins.
func ClassifyLoad(m SystemMetrics) LoadLevel {
	worst := LoadLow
	for _, level := range []LoadLevel{
		memoryThresholds.classify(m.MemoryUsage),
		cpuThresholds.classify(m.CPUUsage),
		responseTimeThresholds.classify(m.ResponseTimeMs),
		errorRateThresholds.classify(m.ErrorRate),
	} {
		if loadRank[level] > loadRank[worst] {
			worst = level
		}
	}
	return worst
}

// loadScore maps the level to an inverse-load factor for strategy scoring.
func loadScore(level LoadLevel) float64 {
	switch level {
	case LoadLow:
		return 1.0
	case LoadMedium:
		return 0.7
	case LoadHigh:
		return 0.35
	default:
		return 0.0
	}
}
