package domain

import "strings"

type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityOnline  Severity = "online"
	SeverityWarning Severity = "warning"
	SeverityOffline Severity = "offline"
	SeverityAlarm   Severity = "alarm"
	SeverityError   Severity = "error"
)

const criticalRank = 2

var severityRank = map[Severity]int{
	SeverityOK:      0,
	SeverityOnline:  0,
	SeverityWarning: 1,
	SeverityOffline: 1,
	SeverityAlarm:   2,
	SeverityError:   2,
}

// NormalizeSeverity lowercases and trims a raw status value from the feed.
// An empty value means the field was omitted and counts as ok.
func NormalizeSeverity(raw string) Severity {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return SeverityOK
	}
	return Severity(s)
}

// Rank is 0 for the clean tier, 1 for degraded, 2 for critical.
// Values outside the known scale rank 0 but are still not clean.
func (s Severity) Rank() int {
	return severityRank[s]
}

// IsClean reports whether the value is the clean severity itself. Rank-0
// values that are not literally ok (online, unrecognized vendor strings)
// still show up as problem entries.
func (s Severity) IsClean() bool {
	return s == SeverityOK
}

func (s Severity) IsCritical() bool {
	return s.Rank() >= criticalRank
}

// Worse returns the higher-ranked of the two; b wins an equal rank.
func Worse(a, b Severity) Severity {
	if a.Rank() > b.Rank() {
		return a
	}
	return b
}
