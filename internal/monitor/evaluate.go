package monitor

import (
	"strings"

	"github.com/washops/fleetbot/internal/domain"
)

// SuppressionRule mutes one known-benign (severity, text) pair. Matching is
// exact: severity after normalization, text after whitespace trim.
type SuppressionRule struct {
	Severity string
	Text     string
}

type suppression struct {
	severity domain.Severity
	text     string
}

// Evaluator turns unit snapshots into verdicts.
type Evaluator struct {
	rules []suppression
}

func NewEvaluator(rules []SuppressionRule) *Evaluator {
	e := &Evaluator{}
	for _, r := range rules {
		e.rules = append(e.rules, suppression{
			severity: domain.NormalizeSeverity(r.Severity),
			text:     strings.TrimSpace(r.Text),
		})
	}
	return e
}

func (e *Evaluator) suppressed(p domain.ProblemEntry) bool {
	for _, r := range e.rules {
		if p.Severity == r.severity && strings.TrimSpace(p.Text) == r.text {
			return true
		}
	}
	return false
}

type problemKey struct {
	name     string
	severity domain.Severity
	text     string
}

// Evaluate computes the verdict for one snapshot. Both the unit-level module
// list and the list nested under status are walked; real feeds populate
// either. Suppressed entries stay in the displayed detail but never count
// toward is_bad, the worst severity, or the fingerprint.
func (e *Evaluator) Evaluate(u domain.UnitSnapshot) domain.Verdict {
	topSev := domain.Worse(
		domain.NormalizeSeverity(u.Status.Type),
		domain.NormalizeSeverity(u.Status.OnlineType),
	)

	raw := CollectProblems(u.Modules)
	raw = append(raw, CollectProblems(u.Status.Modules)...)

	worst := topSev
	surviving := 0
	seen := make(map[problemKey]bool, len(raw))
	problems := make([]domain.ProblemEntry, 0, len(raw))
	for _, p := range raw {
		p.Suppressed = e.suppressed(p)
		if !p.Suppressed {
			surviving++
			worst = domain.Worse(worst, p.Severity)
		}
		key := problemKey{p.Name, p.Severity, p.Text}
		if !seen[key] {
			seen[key] = true
			problems = append(problems, p)
		}
	}

	isBad := surviving > 0 || topSev.IsCritical()

	return domain.Verdict{
		UnitID:      u.ID,
		DisplayName: u.DisplayName(),
		Worst:       worst,
		IsBad:       isBad,
		Fingerprint: fingerprint(worst, problems),
		Problems:    problems,
	}
}

// fingerprint is the equality key for change detection: worst severity plus
// the surviving deduplicated entries in walker order. Upstream reordering
// changes the fingerprint; that is an accepted property of the feed.
func fingerprint(worst domain.Severity, problems []domain.ProblemEntry) string {
	var b strings.Builder
	b.WriteString("worst=")
	b.WriteString(string(worst))
	for _, p := range problems {
		if p.Suppressed {
			continue
		}
		b.WriteByte('|')
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(string(p.Severity))
		if p.Text != "" {
			b.WriteByte(':')
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
