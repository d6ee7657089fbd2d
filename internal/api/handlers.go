package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/washops/fleetbot/internal/domain"
	"github.com/washops/fleetbot/internal/monitor"
	"github.com/washops/fleetbot/internal/repository"
	"github.com/washops/fleetbot/internal/revenue"
)

const dateLayout = "2006-01-02"

// StatusService evaluates the fleet on demand.
type StatusService interface {
	Verdicts(ctx context.Context) ([]domain.Verdict, error)
}

// RevenueService builds revenue reports for date ranges.
type RevenueService interface {
	Report(ctx context.Context, from, to time.Time) (revenue.Report, error)
}

// AlertStore reads the delivered-notification journal.
type AlertStore interface {
	List(f repository.AlertFilter) ([]domain.Alert, int, error)
}

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	status  StatusService
	revenue RevenueService
	alerts  AlertStore
	loc     *time.Location
	logger  *zap.Logger
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response failed", zap.Error(err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(dateLayout, s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func parseInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// upstreamStatus maps fetch failures onto gateway-style codes: the remote
// feed being down is not this server's fault.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, monitor.ErrNotConfigured), errors.Is(err, revenue.ErrNoOrg):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- GetStatus ---

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	verdicts, err := h.status.Verdicts(r.Context())
	if err != nil {
		h.writeError(w, upstreamStatus(err), err.Error())
		return
	}

	bad := 0
	for _, v := range verdicts {
		if v.IsBad {
			bad++
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"units": verdicts,
		"total": len(verdicts),
		"bad":   bad,
	})
}

// --- GetRevenue ---

func (h *Handlers) GetRevenue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	now := time.Now().In(h.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	to := from

	if s := q.Get("from"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, h.loc)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "from: want YYYY-MM-DD")
			return
		}
		from, to = t, t
	}
	if s := q.Get("to"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, h.loc)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "to: want YYYY-MM-DD")
			return
		}
		to = t
	}
	if to.Before(from) {
		h.writeError(w, http.StatusBadRequest, "to precedes from")
		return
	}

	rep, err := h.revenue.Report(r.Context(), from, to)
	if err != nil {
		h.writeError(w, upstreamStatus(err), err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"period": map[string]string{
			"from": from.Format(dateLayout),
			"to":   to.Format(dateLayout),
		},
		"cash":    rep.Cash.StringFixed(2),
		"card":    rep.Card.StringFixed(2),
		"partner": rep.Partner.StringFixed(2),
		"total":   rep.Total().StringFixed(2),
		"skipped": rep.Skipped,
	})
}

// --- ListAlerts ---

func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.AlertFilter{
		Kind:   q.Get("kind"),
		ChatID: parseInt64(q.Get("chat")),
		From:   parseTime(q.Get("from")),
		To:     parseTime(q.Get("to")),
		Page:   parseIntDefault(q.Get("page"), 1),
		Limit:  parseIntDefault(q.Get("limit"), 50),
	}

	alerts, total, err := h.alerts.List(filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}
