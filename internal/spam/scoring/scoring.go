// Package scoring derives the spam likelihood and risk level shown next to a
// phone number. Pure functions over the unresolved report count; every surface
// that displays a number (search, contacts, spam stats) uses these tables so
// the same count always renders the same score.
package scoring

// RiskLevel is the qualitative label derived from a likelihood.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

// SpamThreshold is the likelihood at or above which a number is flagged as spam.
const SpamThreshold = 75

// Likelihood maps a count of unresolved reports to a spam likelihood
// percentage. The steps are deliberately coarse; stored client expectations
// depend on these exact thresholds, so do not smooth them.
func Likelihood(unresolvedReports int) int {
	switch {
	case unresolvedReports == 0:
		return 0
	case unresolvedReports <= 2:
		return 25
	case unresolvedReports <= 5:
		return 50
	case unresolvedReports <= 10:
		return 75
	default:
		return 100
	}
}

// Risk maps a likelihood percentage to its risk level.
func Risk(likelihood int) RiskLevel {
	switch {
	case likelihood == 0:
		return RiskSafe
	case likelihood <= 25:
		return RiskLow
	case likelihood <= 50:
		return RiskMedium
	case likelihood <= 75:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// IsSpam reports whether a likelihood crosses the spam threshold.
func IsSpam(likelihood int) bool {
	return likelihood >= SpamThreshold
}
