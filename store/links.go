package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetLink fetches one link row by id. Returns ErrNotFound when no row
// exists; callers decide what an empty URL or a non-link kind means.
func (q *Queries) GetLink(ctx context.Context, id int64) (Link, error) {
	var l Link
	err := q.db.QueryRowContext(ctx,
		`SELECT id, kind, url, tree_id, clicks, last_clicked FROM links WHERE id = ?`, id,
	).Scan(&l.ID, &l.Kind, &l.URL, &l.TreeID, &l.Clicks, &l.LastClicked)
	if errors.Is(err, sql.ErrNoRows) {
		return Link{}, ErrNotFound
	}
	if err != nil {
		return Link{}, err
	}
	return l, nil
}

// GetURL returns just the destination URL for a link id, empty when the row
// exists but carries no URL.
func (q *Queries) GetURL(ctx context.Context, id int64) (string, error) {
	var url string
	err := q.db.QueryRowContext(ctx, `SELECT url FROM links WHERE id = ?`, id).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return url, err
}

// SetClickStats writes an absolute click count and last-clicked timestamp.
// The recorder owns the count; this is a plain write, not an increment.
func (q *Queries) SetClickStats(ctx context.Context, id, count int64, ts time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE links SET clicks = ?, last_clicked = ? WHERE id = ?`, count, ts.UTC(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) CreateLink(ctx context.Context, kind, url string, treeID int64) (Link, error) {
	if kind == "" {
		kind = KindLink
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO links (kind, url, tree_id) VALUES (?, ?, ?)`, kind, url, treeID)
	if err != nil {
		return Link{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Link{}, err
	}
	return Link{ID: id, Kind: kind, URL: url, TreeID: treeID}, nil
}

func (q *Queries) UpdateLinkURL(ctx context.Context, id int64, url string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE links SET url = ? WHERE id = ?`, url, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *Queries) DeleteLink(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
