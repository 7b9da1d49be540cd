package domain

// Recommendation is the advisory action attached to a scored opportunity.
type Recommendation string

const (
	RecommendationSkip               Recommendation = "SKIP"
	RecommendationMonitor            Recommendation = "MONITOR"
	RecommendationExecute            Recommendation = "EXECUTE"
	RecommendationExecuteImmediately Recommendation = "EXECUTE_IMMEDIATELY"
)

// String returns a human-readable description of the recommendation.
func (r Recommendation) String() string {
	switch r {
	case RecommendationExecuteImmediately:
		return "Execute immediately"
	case RecommendationExecute:
		return "Execute"
	case RecommendationMonitor:
		return "Monitor"
	case RecommendationSkip:
		return "Skip"
	default:
		return "Unknown"
	}
}

// ShortString returns a compact label for tables.
func (r Recommendation) ShortString() string {
	switch r {
	case RecommendationExecuteImmediately:
		return "NOW"
	case RecommendationExecute:
		return "EXEC"
	case RecommendationMonitor:
		return "WATCH"
	default:
		return "SKIP"
	}
}

// Rank orders recommendations from SKIP (0) to EXECUTE_IMMEDIATELY (3).
func (r Recommendation) Rank() int {
	switch r {
	case RecommendationMonitor:
		return 1
	case RecommendationExecute:
		return 2
	case RecommendationExecuteImmediately:
		return 3
	default:
		return 0
	}
}
