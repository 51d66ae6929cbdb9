package intake

// JoinThreshold is the minimum join success rate a run must hold at every stage
const JoinThreshold = 0.95

// The gate is evaluated in integers so 0.95 never suffers float rounding.
const (
	thresholdNumerator   = 95
	thresholdDenominator = 100
)

// MeetsJoinThreshold reports whether matched/total >= 0.95. An empty incident file never
// meets it.
func MeetsJoinThreshold(matched, total int) bool {
	if total <= 0 {
		return false
	}
	return int64(matched)*thresholdDenominator >= int64(total)*thresholdNumerator
}

// JoinRate is matched/total, or 0 when there are no incidents
func JoinRate(matched, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(matched) / float64(total)
}
