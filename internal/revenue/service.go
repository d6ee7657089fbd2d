package revenue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/washops/fleetbot/internal/domain"
)

// ErrNoOrg means the TMS org id is not configured; reports cannot run.
var ErrNoOrg = errors.New("revenue: org id not configured")

// TransactionsFetcher is the slice of the TMS client the reporter needs.
type TransactionsFetcher interface {
	FetchTransactions(ctx context.Context, orgID string, from, to time.Time, pageSize int) ([]domain.TransactionRecord, error)
}

// Service builds revenue reports for date ranges.
type Service struct {
	fetcher  TransactionsFetcher
	agg      *Aggregator
	orgID    string
	pageSize int
	logger   *zap.Logger
}

func NewService(fetcher TransactionsFetcher, agg *Aggregator, orgID string, pageSize int, logger *zap.Logger) *Service {
	return &Service{fetcher: fetcher, agg: agg, orgID: orgID, pageSize: pageSize, logger: logger}
}

// Report fetches the period's transactions and folds them into a report.
// The fetch paginates without a ceiling, so callers should bound ctx.
func (s *Service) Report(ctx context.Context, from, to time.Time) (Report, error) {
	if s.orgID == "" {
		return Report{}, ErrNoOrg
	}
	items, err := s.fetcher.FetchTransactions(ctx, s.orgID, from, to, s.pageSize)
	if err != nil {
		return Report{}, fmt.Errorf("fetch transactions: %w", err)
	}

	rep := s.agg.Aggregate(items)
	s.logger.Info("revenue aggregated",
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("transactions", len(items)),
		zap.Int("skipped", rep.Skipped))
	return rep, nil
}

// ReportText renders the period report for humans.
func (s *Service) ReportText(ctx context.Context, from, to time.Time) (string, error) {
	rep, err := s.Report(ctx, from, to)
	if err != nil {
		return "", err
	}
	return FormatReport(rep, s.agg.partner, from, to), nil
}
