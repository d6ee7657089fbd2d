package revenue

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// FormatReport renders the per-channel report. partner is the display label
// for the partner channel.
func FormatReport(rep Report, partner string, from, to time.Time) string {
	fd, td := from.Format(dateLayout), to.Format(dateLayout)
	header := "📊 Revenue for " + fd
	if fd != td {
		header = fmt.Sprintf("📊 Revenue for %s — %s", fd, td)
	}

	lines := []string{
		header,
		fmt.Sprintf("— Cash:    %s RUB", FormatAmount(rep.Cash)),
		fmt.Sprintf("— Card:    %s RUB", FormatAmount(rep.Card)),
		fmt.Sprintf("— %s: %s RUB", partner, FormatAmount(rep.Partner)),
		fmt.Sprintf("— Total:   %s RUB", FormatAmount(rep.Total())),
	}
	if rep.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("(%d records skipped: unreadable amounts)", rep.Skipped))
	}
	return strings.Join(lines, "\n")
}

// FormatAmount renders two decimal places with spaces grouping thousands.
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(intPart[i])
	}

	out := b.String() + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}
