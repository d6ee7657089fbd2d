package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/washops/fleetbot/internal/domain"
	"github.com/washops/fleetbot/internal/notify"
	"github.com/washops/fleetbot/internal/tms"
)

// ErrNotConfigured means unit ids or TMS credentials are missing; cycles
// cannot run until the configuration changes.
var ErrNotConfigured = errors.New("monitor: unit ids or credentials not configured")

// BadStateTable maps unit id to the fingerprint it had while bad. It lives
// in process memory only; a restart forgets it, so every still-bad unit is
// reported as newly bad once.
type BadStateTable map[int64]string

// UnitsFetcher is the slice of the TMS client the monitor needs.
type UnitsFetcher interface {
	FetchUnits(ctx context.Context, projectID int64, ids []int64) (*tms.UnitsPayload, error)
}

type Config struct {
	ProjectID      int64
	UnitIDs        []int64
	OnlyBad        bool
	HasCredentials bool
}

// Service runs poll cycles and diffs them against the previous bad state.
type Service struct {
	fetcher UnitsFetcher
	eval    *Evaluator
	cfg     Config
	logger  *zap.Logger
}

func NewService(fetcher UnitsFetcher, eval *Evaluator, cfg Config, logger *zap.Logger) *Service {
	return &Service{fetcher: fetcher, eval: eval, cfg: cfg, logger: logger}
}

// CycleResult is everything one poll cycle produced. Raw is nil when the
// fetch never succeeded.
type CycleResult struct {
	Table    BadStateTable
	Messages []notify.Message
	Verdicts []domain.Verdict
	Raw      *tms.UnitsPayload
}

// Run executes one poll cycle against prev and returns the next table plus
// the notifications the diff produced. prev is never mutated; on a failed
// cycle it is handed back unchanged so no recovery is invented.
func (s *Service) Run(ctx context.Context, prev BadStateTable) CycleResult {
	if err := s.configured(); err != nil {
		s.logger.Warn("cycle skipped", zap.Error(err))
		return CycleResult{
			Table: prev,
			Messages: []notify.Message{{
				Kind: notify.KindConfigError,
				Text: "⚠️ Monitoring is not configured: set TMS credentials and unit ids.",
			}},
		}
	}

	payload, err := s.fetcher.FetchUnits(ctx, s.cfg.ProjectID, s.cfg.UnitIDs)
	if err != nil {
		s.logger.Error("unit fetch failed", zap.Error(err))
		return CycleResult{
			Table: prev,
			Messages: []notify.Message{{
				Kind: notify.KindError,
				Text: fmt.Sprintf("⚠️ Status poll failed: %v", err),
			}},
		}
	}

	verdicts := make([]domain.Verdict, 0, len(payload.Units))
	byID := make(map[int64]domain.Verdict, len(payload.Units))
	current := make(BadStateTable)
	for _, u := range payload.Units {
		v := s.eval.Evaluate(u)
		verdicts = append(verdicts, v)
		byID[v.UnitID] = v
		if v.IsBad {
			current[v.UnitID] = v.Fingerprint
		}
	}

	var msgs []notify.Message
	if len(current) > 0 {
		bad := make([]domain.Verdict, 0, len(current))
		for _, v := range verdicts {
			if v.IsBad {
				bad = append(bad, v)
			}
		}
		msgs = append(msgs, notify.Message{Kind: notify.KindProblems, Text: FormatProblems(bad)})
	}

	if recovered := diffRecovered(prev, current, byID); len(recovered) > 0 {
		msgs = append(msgs, notify.Message{Kind: notify.KindRecovered, Text: FormatRecovered(recovered)})
	}
	if changed := diffChanged(prev, current, byID); len(changed) > 0 {
		msgs = append(msgs, notify.Message{Kind: notify.KindChanged, Text: FormatChanged(changed)})
	}

	s.logger.Info("cycle complete",
		zap.Int("units", len(verdicts)),
		zap.Int("bad", len(current)),
		zap.Int("messages", len(msgs)))

	return CycleResult{Table: current, Messages: msgs, Verdicts: verdicts, Raw: payload}
}

// Verdicts fetches and evaluates the configured units once, without touching
// any diff state.
func (s *Service) Verdicts(ctx context.Context) ([]domain.Verdict, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	payload, err := s.fetcher.FetchUnits(ctx, s.cfg.ProjectID, s.cfg.UnitIDs)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Verdict, 0, len(payload.Units))
	for _, u := range payload.Units {
		out = append(out, s.eval.Evaluate(u))
	}
	return out, nil
}

// Summary renders the on-demand status text, honoring the only-bad setting.
func (s *Service) Summary(ctx context.Context) (string, error) {
	verdicts, err := s.Verdicts(ctx)
	if err != nil {
		return "", err
	}
	return FormatSummary(verdicts, s.cfg.OnlyBad), nil
}

func (s *Service) configured() error {
	if len(s.cfg.UnitIDs) == 0 || !s.cfg.HasCredentials {
		return ErrNotConfigured
	}
	return nil
}

// diffRecovered lists units that were bad and are now absent from the bad
// table, as display names in ascending unit id order.
func diffRecovered(prev, current BadStateTable, byID map[int64]domain.Verdict) []string {
	var ids []int64
	for id := range prev {
		if _, still := current[id]; !still {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v.DisplayName)
		} else {
			// The unit vanished from the feed entirely.
			out = append(out, fmt.Sprintf("unit %d", id))
		}
	}
	return out
}

// diffChanged lists units bad in both cycles whose fingerprint moved.
func diffChanged(prev, current BadStateTable, byID map[int64]domain.Verdict) []domain.Verdict {
	var ids []int64
	for id, fp := range current {
		if old, was := prev[id]; was && old != fp {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.Verdict, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}
