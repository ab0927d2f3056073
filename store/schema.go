package store

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS links (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	kind         TEXT NOT NULL DEFAULT 'link',
	url          TEXT NOT NULL,
	tree_id      INTEGER NOT NULL DEFAULT 0,
	clicks       INTEGER NOT NULL DEFAULT 0,
	last_clicked TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clicks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	link_id     INTEGER NOT NULL,
	tree_id     INTEGER NOT NULL DEFAULT 0,
	ts          TIMESTAMP NOT NULL,
	origin_hash TEXT NOT NULL,
	user_agent  TEXT NOT NULL DEFAULT '',
	referrer    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_clicks_link_id ON clicks(link_id);
CREATE INDEX IF NOT EXISTS idx_clicks_tree_id ON clicks(tree_id);
CREATE INDEX IF NOT EXISTS idx_clicks_ts ON clicks(ts);
`

// Init creates the tables and indexes if they don't exist. Idempotent.
func (q *Queries) Init(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, schema)
	return err
}
