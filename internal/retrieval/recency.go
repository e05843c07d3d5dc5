package retrieval

const millisPerDay = 86_400_000

// CalculateRecencyPenalty returns the score penalty to subtract for a chunk
// last updated at updatedAtMillis, as of nowMillis. Returns 0 when
// updatedAtMillis is nil or in the future; otherwise scales linearly from 0
// at age 0 to lambda at age >= windowDays, and clamps at lambda beyond that.
func CalculateRecencyPenalty(updatedAtMillis *int64, nowMillis int64, lambda float64, windowDays int) float64 {
	if updatedAtMillis == nil || *updatedAtMillis > nowMillis {
		return 0
	}
	if windowDays <= 0 {
		windowDays = 1
	}
	age := nowMillis - *updatedAtMillis
	window := int64(windowDays) * millisPerDay
	ratio := float64(age) / float64(window)
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	return lambda * ratio
}

// ApplyRecencyPenaltyVector subtracts the recency penalty from every
// result's score (clamping at 0) and re-sorts descending by score,
// matching C8's "apply penalty then re-sort" contract. Stable with
// respect to the original order for ties. A no-op when cfg is disabled.
func ApplyRecencyPenaltyVector(results []VectorResult, cfg RecencyConfig, nowMillis int64) []VectorResult {
	if !cfg.Enabled {
		return results
	}
	for i := range results {
		penalty := CalculateRecencyPenalty(results[i].UpdatedAtMillis, nowMillis, cfg.Lambda, cfg.WindowDays)
		score := results[i].Score - penalty
		if score < 0 {
			score = 0
		}
		results[i].Score = score
	}
	stableSortVectorByScoreDesc(results)
	return results
}

func stableSortVectorByScoreDesc(results []VectorResult) {
	// Simple stable insertion sort: result sets from a single query are
	// small (bounded by `limit`), and stability matters more than
	// asymptotic complexity here since ties must preserve insertion order.
	for i := 1; i < len(results); i++ {
		j := i
		for j > 0 && results[j].Score > results[j-1].Score {
			results[j], results[j-1] = results[j-1], results[j]
			j--
		}
	}
}
