package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/washops/fleetbot/internal/domain"
)

type AlertRepo struct {
	db *sql.DB
}

func NewAlertRepo(db *sql.DB) *AlertRepo {
	return &AlertRepo{db: db}
}

func (r *AlertRepo) Insert(a *domain.Alert) error {
	_, err := r.db.Exec(
		`INSERT INTO alerts (id, kind, chat_id, text, created_at)
		VALUES (?,?,?,?,?)`,
		a.ID, a.Kind, a.ChatID, a.Text, a.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

type AlertFilter struct {
	Kind   string
	ChatID int64
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// List returns a page of alerts, newest first, plus the total match count.
func (r *AlertRepo) List(f AlertFilter) ([]domain.Alert, int, error) {
	where, args := buildAlertWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM alerts"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := "SELECT id, kind, chat_id, text, created_at FROM alerts" + where +
		" ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	alerts, err := scanAlerts(rows)
	return alerts, total, err
}

// CountByKind groups the whole journal by alert kind.
func (r *AlertRepo) CountByKind() (map[string]int, error) {
	rows, err := r.db.Query("SELECT kind, COUNT(*) FROM alerts GROUP BY kind")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := make(map[string]int)
	for rows.Next() {
		var k string
		var v int
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, rows.Err()
}

// Purge removes alerts recorded before the cutoff and reports how many went.
func (r *AlertRepo) Purge(before time.Time) (int, error) {
	res, err := r.db.Exec(
		"DELETE FROM alerts WHERE created_at < ?", before.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// --- helpers ---

func buildAlertWhere(f AlertFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.ChatID != 0 {
		clauses = append(clauses, "chat_id = ?")
		args = append(args, f.ChatID)
	}
	if f.From != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanAlerts(rows *sql.Rows) ([]domain.Alert, error) {
	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Kind, &a.ChatID, &a.Text, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
