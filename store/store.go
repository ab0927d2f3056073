// Package store is the durable side of the service: the link table read by
// the resolver and mutated by editors, and the append-only click event log
// queried for aggregates.
package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a link id has no row.
var ErrNotFound = errors.New("link not found")

// KindLink is the only record kind the resolver will redirect for. Other
// kinds (headers, dividers imported from tree layouts) share the table but
// never resolve.
const KindLink = "link"

// Link is one row of the links table.
type Link struct {
	ID          int64
	Kind        string
	URL         string
	TreeID      int64
	Clicks      int64
	LastClicked sql.NullTime
}

// ClickRow is one appended click event. Rows are immutable once written.
type ClickRow struct {
	LinkID     int64
	TreeID     int64
	Time       time.Time
	OriginHash string
	UserAgent  string
	Referrer   string
}

// DailyCount is one day of clicks for a link.
type DailyCount struct {
	Day    string // YYYY-MM-DD
	Clicks int64
}

// LinkCount pairs a link with its event-log click total.
type LinkCount struct {
	LinkID int64
	URL    string
	Clicks int64
}

// Queries wraps a *sql.DB with the statements the service needs.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}
