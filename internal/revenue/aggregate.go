package revenue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/washops/fleetbot/internal/domain"
)

// DefaultPartnerIssuer is the card issuer whose cashless payments count as
// the partner channel instead of plain card.
const DefaultPartnerIssuer = "Yandex.Wash"

// ErrMalformedAmount flags a record whose amount string cannot be parsed.
var ErrMalformedAmount = errors.New("revenue: malformed amount")

// Report holds exact per-channel sums for one period.
type Report struct {
	Cash    decimal.Decimal `json:"cash"`
	Card    decimal.Decimal `json:"card"`
	Partner decimal.Decimal `json:"partner"`
	Skipped int             `json:"skipped,omitempty"`
}

func (r Report) Total() decimal.Decimal {
	return r.Cash.Add(r.Card).Add(r.Partner)
}

// Aggregator folds transaction records into per-channel sums.
type Aggregator struct {
	partner string
	logger  *zap.Logger
}

func NewAggregator(partnerIssuer string, logger *zap.Logger) *Aggregator {
	if partnerIssuer == "" {
		partnerIssuer = DefaultPartnerIssuer
	}
	return &Aggregator{partner: partnerIssuer, logger: logger}
}

// Aggregate sums the records. A malformed amount drops that record alone,
// logged and counted in Skipped; the rest of the batch still aggregates.
func (a *Aggregator) Aggregate(items []domain.TransactionRecord) Report {
	var rep Report
	for _, t := range items {
		amount, channel, err := a.classify(t)
		if err != nil {
			rep.Skipped++
			a.logger.Warn("transaction skipped", zap.Int64("id", t.ID), zap.Error(err))
			continue
		}
		if channel == "" || amount.Sign() <= 0 {
			continue
		}
		switch channel {
		case domain.ChannelCash:
			rep.Cash = rep.Cash.Add(amount)
		case domain.ChannelCard:
			rep.Card = rep.Card.Add(amount)
		case domain.ChannelPartner:
			rep.Partner = rep.Partner.Add(amount)
		}
	}
	return rep
}

// classify applies the channel rules: cancelled and unapproved records count
// nothing; a cash body wins over a cashless one; the partner issuer match is
// case-insensitive.
func (a *Aggregator) classify(t domain.TransactionRecord) (decimal.Decimal, domain.RevenueChannel, error) {
	if t.Cancelled || !t.Payment.Approved {
		return decimal.Zero, "", nil
	}

	switch {
	case t.Payment.CashBody != nil:
		amt, err := ParseAmount(t.Payment.CashAmount)
		if err != nil {
			return decimal.Zero, "", err
		}
		return amt, domain.ChannelCash, nil

	case t.Payment.CashlessBody != nil:
		amt, err := ParseAmount(t.Payment.CashlessAmount)
		if err != nil {
			return decimal.Zero, "", err
		}
		issuer := strings.TrimSpace(t.Payment.CashlessBody.Issuer)
		if strings.EqualFold(issuer, a.partner) {
			return amt, domain.ChannelPartner, nil
		}
		return amt, domain.ChannelCard, nil

	default:
		return decimal.Zero, "", nil
	}
}

// ParseAmount parses the feed's decimal strings. Empty means zero; a decimal
// comma is tolerated.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	return d, nil
}
