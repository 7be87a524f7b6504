package models

// Severity classifies how strongly a drift score deviates from the baseline.
// Severities are ordered: none < low < moderate < high.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

var severityRanks = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityModerate: 2,
	SeverityHigh:     3,
}

// Rank returns the ordinal position of the severity. Unknown severities rank
// below none so they never satisfy an alert threshold.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// AtLeast reports whether s is at least as severe as threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Rank() >= threshold.Rank()
}

// MaxSeverity returns the most severe value of the two.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ParseSeverity maps a string onto a known severity, defaulting to none.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityModerate, SeverityHigh:
		return Severity(s)
	default:
		return SeverityNone
	}
}
