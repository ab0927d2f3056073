package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AppendClick adds one row to the event log. Rows are never updated or
// deleted here; retention is somebody else's job.
func (q *Queries) AppendClick(ctx context.Context, c ClickRow) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO clicks (link_id, tree_id, ts, origin_hash, user_agent, referrer)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.LinkID, c.TreeID, c.Time.UTC(), c.OriginHash, c.UserAgent, c.Referrer)
	return err
}

// CountClicks returns the number of logged events for a link.
func (q *Queries) CountClicks(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clicks WHERE link_id = ?`, id).Scan(&n)
	return n, err
}

// DailyClicks aggregates the event log into per-day counts for a link over
// a rolling window of the last `days` days.
func (q *Queries) DailyClicks(ctx context.Context, id int64, days int) ([]DailyCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := q.db.QueryContext(ctx,
		`SELECT date(ts) AS day, COUNT(*) AS clicks
		 FROM clicks
		 WHERE link_id = ? AND ts >= ?
		 GROUP BY day
		 ORDER BY day`, id, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Day, &d.Clicks); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopLinks returns the n most-clicked links by event count, optionally
// restricted to a set of link ids.
func (q *Queries) TopLinks(ctx context.Context, n int, ids []int64) ([]LinkCount, error) {
	query := `SELECT c.link_id, COALESCE(l.url, ''), COUNT(*) AS clicks
		FROM clicks c LEFT JOIN links l ON l.id = c.link_id`
	args := make([]any, 0, len(ids)+1)
	if len(ids) > 0 {
		ph := make([]string, len(ids))
		for i, id := range ids {
			ph[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" WHERE c.link_id IN (%s)", strings.Join(ph, ","))
	}
	query += ` GROUP BY c.link_id ORDER BY clicks DESC LIMIT ?`
	args = append(args, n)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LinkCount
	for rows.Next() {
		var lc LinkCount
		if err := rows.Scan(&lc.LinkID, &lc.URL, &lc.Clicks); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}
