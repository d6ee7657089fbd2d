package monitor

import (
	"fmt"
	"strings"

	"github.com/washops/fleetbot/internal/domain"
)

// Formatting is plain text on purpose: module names and texts come from the
// remote feed and must not be interpreted as markup by the messenger.

func statusEmoji(s domain.Severity) string {
	switch s {
	case domain.SeverityError, domain.SeverityAlarm:
		return "🚨"
	case domain.SeverityWarning, domain.SeverityOffline:
		return "⚠️"
	default:
		return "✅"
	}
}

// FormatSummary renders the fleet summary. With onlyBad, clean units are
// dropped and an all-clean fleet collapses to a single line.
func FormatSummary(verdicts []domain.Verdict, onlyBad bool) string {
	var lines []string
	for _, v := range verdicts {
		if onlyBad && !v.IsBad {
			continue
		}
		lines = append(lines, unitLines(v)...)
	}

	if onlyBad {
		if len(lines) == 0 {
			return "✅ No units in alarm."
		}
		return "🚨 Status summary (problems only)\n\n" + strings.Join(lines, "\n")
	}
	return "🧼 Status summary\n\n" + strings.Join(lines, "\n")
}

// FormatProblems renders the periodic problems message covering bad units.
func FormatProblems(bad []domain.Verdict) string {
	var lines []string
	for _, v := range bad {
		lines = append(lines, unitLines(v)...)
	}
	return "🚨 Problem units\n\n" + strings.Join(lines, "\n")
}

func unitLines(v domain.Verdict) []string {
	lines := []string{fmt.Sprintf("%s %s — %s (id %d)", statusEmoji(v.Worst), v.DisplayName, v.Worst, v.UnitID)}
	for _, p := range v.Problems {
		line := fmt.Sprintf("• %s: %s", p.Name, p.Severity)
		if p.Text != "" {
			line += " — " + p.Text
		}
		if p.Suppressed {
			line += " (muted)"
		}
		lines = append(lines, line)
	}
	return lines
}

func FormatRecovered(names []string) string {
	lines := make([]string, 0, len(names))
	for _, n := range names {
		lines = append(lines, "• "+n)
	}
	return "✅ Recovered units:\n" + strings.Join(lines, "\n")
}

func FormatChanged(units []domain.Verdict) string {
	lines := make([]string, 0, len(units))
	for _, v := range units {
		lines = append(lines, fmt.Sprintf("• %s — %s", v.DisplayName, v.Worst))
	}
	return "🔁 State changed:\n" + strings.Join(lines, "\n")
}
