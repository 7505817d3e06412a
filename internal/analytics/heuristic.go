package analytics

// RiskSummary is the scoring output shared by the ML path and the
// heuristic fallback. ServedBy distinguishes the two.
type RiskSummary struct {
	RiskScore    float64 `json:"risk_score"` // 0-1
	RiskBucket   string  `json:"risk_bucket"`
	Confidence   float64 `json:"confidence"` // 0-1
	ModelVersion string  `json:"model_version"`
	ServedBy     string  `json:"served_by"` // "model" or "heuristic"
}

const (
	ServedByModel     = "model"
	ServedByHeuristic = "heuristic"

	HeuristicModelVersion = "heuristic-v1"

	bucketHighMin   = 0.66
	bucketMediumMin = 0.33
)

// HeuristicScore is the degraded-mode risk model used when the ML service
// is unreachable. It blends self-reported severity with recent average
// urge intensity, discounted by how long the user has already stayed
// stopped (full credit at 60 days). Confidence starts at 0.5 and rises
// with journal sample size, saturating at 10 samples.
func HeuristicScore(severity, daysStopped float64, urges []float64) RiskSummary {
	severityNorm := clamp(severity/10, 0, 1)

	avgUrgeNorm := 0.0
	if len(urges) > 0 {
		sum := 0.0
		for _, u := range urges {
			sum += u
		}
		avgUrgeNorm = clamp(sum/float64(len(urges))/10, 0, 1)
	}

	stoppedBuffer := clamp(daysStopped/60, 0, 1)
	stoppedPenalty := stoppedBuffer * 0.3

	score := clamp(severityNorm*0.5+avgUrgeNorm*0.5-stoppedPenalty, 0, 1)
	confidence := clamp(0.5+0.5*min(float64(len(urges))/10, 1), 0, 1)

	return RiskSummary{
		RiskScore:    score,
		RiskBucket:   BucketFromScore(score),
		Confidence:   confidence,
		ModelVersion: HeuristicModelVersion,
		ServedBy:     ServedByHeuristic,
	}
}

// BucketFromScore maps a continuous score onto the coarse low/medium/high
// classification used by the heuristic path.
func BucketFromScore(score float64) string {
	switch {
	case score >= bucketHighMin:
		return "high"
	case score >= bucketMediumMin:
		return "medium"
	default:
		return "low"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
