package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lerndmina/ContributionsLeaderboard/internal/leaderboard"
	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

const (
	DefaultUserTable    = "mwuser"
	DefaultQueryTimeout = 10 * time.Second
	// DefaultMaxRevisions caps the rows one scoring query may return.
	DefaultMaxRevisions = 10000

	botGroup = "bot"
)

// Options configures how the wiki schema is addressed.
type Options struct {
	// TablePrefix is prepended to every table name.
	TablePrefix string
	// UserTable is the unprefixed user table name ("mwuser" on Postgres wikis).
	UserTable    string
	QueryTimeout time.Duration
	MaxRevisions int
}

func (o Options) withDefaults() Options {
	if o.UserTable == "" {
		o.UserTable = DefaultUserTable
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = DefaultQueryTimeout
	}
	if o.MaxRevisions <= 0 {
		o.MaxRevisions = DefaultMaxRevisions
	}
	return o
}

// DB is a read-only view over a wiki database.
type DB struct {
	conn *sql.DB
	opts Options

	probeMu sync.Mutex
	probed  bool
	caps    capabilities
}

var _ leaderboard.Store = (*DB)(nil)

// ── Constructor ────────────────────────────────────────────────────────────────

func New(databaseURL string, opts Options) (*DB, error) {
	conn, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return NewWithConn(conn, opts), nil
}

// NewWithConn wraps an existing connection pool.
func NewWithConn(conn *sql.DB, opts Options) *DB {
	return &DB{conn: conn, opts: opts.withDefaults()}
}

func (d *DB) Close() error { return d.conn.Close() }

// Ping checks the connection within the query timeout.
func (d *DB) Ping() error {
	ctx, cancel := d.queryCtx()
	defer cancel()
	return d.conn.PingContext(ctx)
}

func (d *DB) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d.opts.QueryTimeout)
}

// ── Schema ─────────────────────────────────────────────────────────────────────

// tableName returns the prefixed, unquoted name of a wiki table.
func (d *DB) tableName(name string) string {
	if name == "user" {
		name = d.opts.UserTable
	}
	return d.opts.TablePrefix + name
}

// table returns the prefixed, quoted name of a wiki table.
func (d *DB) table(name string) string {
	return pgx.Identifier{d.tableName(name)}.Sanitize()
}

// botFilter is an anti-join against the bot group for a users alias.
func (d *DB) botFilter(alias string) string {
	return fmt.Sprintf(`NOT EXISTS (
			SELECT 1 FROM %s ug
			WHERE ug.ug_user = %s.user_id AND ug.ug_group = '%s'
		)`, d.table("user_groups"), alias, botGroup)
}

// ── Count queries ──────────────────────────────────────────────────────────────

// TopEditCounts ranks users by the lifetime edit count column.
func (d *DB) TopEditCounts(q leaderboard.CountQuery) ([]leaderboard.UserCount, error) {
	where := ""
	if q.ExcludeBots {
		where = "WHERE " + d.botFilter("u")
	}
	query := fmt.Sprintf(`
		SELECT u.user_id, COALESCE(u.user_editcount, 0) AS cnt
		FROM %s u
		%s
		ORDER BY cnt DESC, u.user_id ASC
		LIMIT $1 OFFSET $2`, d.table("user"), where)

	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, query, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("TopEditCounts: %w", err)
	}
	defer rows.Close()
	return scanUserCounts(rows)
}

// TopRevisionCounts ranks users by revisions made since the bound. Users with
// no revisions in the window are listed with a zero count.
func (d *DB) TopRevisionCounts(since time.Time, q leaderboard.CountQuery) ([]leaderboard.UserCount, error) {
	where := ""
	if q.ExcludeBots {
		where = "WHERE " + d.botFilter("u")
	}
	query := fmt.Sprintf(`
		SELECT u.user_id, COALESCE(rc.cnt, 0) AS cnt
		FROM %s u
		LEFT JOIN (
			SELECT a.actor_user, COUNT(*) AS cnt
			FROM %s r
			JOIN %s a ON a.actor_id = r.rev_actor
			WHERE a.actor_user IS NOT NULL AND r.rev_timestamp >= $1
			GROUP BY a.actor_user
		) rc ON rc.actor_user = u.user_id
		%s
		ORDER BY cnt DESC, u.user_id ASC
		LIMIT $2 OFFSET $3`, d.table("user"), d.table("revision"), d.table("actor"), where)

	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, query, since, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("TopRevisionCounts: %w", err)
	}
	defer rows.Close()
	return scanUserCounts(rows)
}

func scanUserCounts(rows *sql.Rows) ([]leaderboard.UserCount, error) {
	var out []leaderboard.UserCount
	for rows.Next() {
		var c leaderboard.UserCount
		if err := rows.Scan(&c.UserID, &c.Count); err != nil {
			logger.Warn("db: scanUserCounts scan error: %v", err)
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ── Per-user lookups ───────────────────────────────────────────────────────────

// BaseEditCounts returns the lifetime edit count of each known user in ids.
func (d *DB) BaseEditCounts(ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`
		SELECT user_id, COALESCE(user_editcount, 0)
		FROM %s
		WHERE user_id = ANY($1)`, d.table("user"))

	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("BaseEditCounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			logger.Warn("db: BaseEditCounts scan error: %v", err)
			continue
		}
		out[id] = n
	}
	return out, rows.Err()
}

// BotGroupMembers returns the ids of every user in the bot group.
func (d *DB) BotGroupMembers() (map[int64]bool, error) {
	query := fmt.Sprintf(`SELECT DISTINCT ug_user FROM %s WHERE ug_group = $1`, d.table("user_groups"))

	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, query, botGroup)
	if err != nil {
		return nil, fmt.Errorf("BotGroupMembers: %w", err)
	}
	defer rows.Close()
	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			logger.Warn("db: BotGroupMembers scan error: %v", err)
			continue
		}
		out[id] = true
	}
	return out, rows.Err()
}

// DisplayNames returns the user name of each known user in ids.
func (d *DB) DisplayNames(ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT user_id, user_name FROM %s WHERE user_id = ANY($1)`, d.table("user"))

	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("DisplayNames: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			logger.Warn("db: DisplayNames scan error: %v", err)
			continue
		}
		out[id] = name
	}
	return out, rows.Err()
}

// ── Scoring detail ─────────────────────────────────────────────────────────────

// RevisionsFor returns the most recent revisions by ids since the bound, at
// most MaxRevisions rows. Content models are empty when the page table does
// not carry them.
func (d *DB) RevisionsFor(ids []int64, since time.Time) ([]leaderboard.RevisionEvent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	caps := d.capabilities()

	modelCol := "''"
	pageJoin := ""
	if caps.contentModel {
		modelCol = "COALESCE(p.page_content_model, '')"
		pageJoin = fmt.Sprintf("LEFT JOIN %s p ON p.page_id = r.rev_page", d.table("page"))
	}
	query := fmt.Sprintf(`
		SELECT a.actor_user,
		       COALESCE(r.rev_parent_id, 0) = 0,
		       COALESCE(r.rev_len, 0),
		       %s,
		       r.rev_timestamp
		FROM %s r
		JOIN %s a ON a.actor_id = r.rev_actor
		%s
		WHERE a.actor_user = ANY($1) AND r.rev_timestamp >= $2
		ORDER BY r.rev_timestamp DESC
		LIMIT $3`, modelCol, d.table("revision"), d.table("actor"), pageJoin)

	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, query, ids, since, d.opts.MaxRevisions)
	if err != nil {
		return nil, fmt.Errorf("RevisionsFor: %w", err)
	}
	defer rows.Close()

	var out []leaderboard.RevisionEvent
	for rows.Next() {
		var ev leaderboard.RevisionEvent
		if err := rows.Scan(&ev.UserID, &ev.IsNewPage, &ev.ByteLength, &ev.ContentModel, &ev.Timestamp); err != nil {
			logger.Warn("db: RevisionsFor scan error: %v", err)
			continue
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// UploadsFor counts file uploads by ids since the bound. Wikis whose image
// table carries neither actor nor user attribution report no uploads.
func (d *DB) UploadsFor(ids []int64, since time.Time) (map[int64]int, error) {
	out := make(map[int64]int)
	if len(ids) == 0 {
		return out, nil
	}
	caps := d.capabilities()

	var query string
	switch {
	case caps.uploadActor:
		query = fmt.Sprintf(`
			SELECT a.actor_user, COUNT(*)
			FROM %s i
			JOIN %s a ON a.actor_id = i.img_actor
			WHERE a.actor_user = ANY($1) AND i.img_timestamp >= $2
			GROUP BY a.actor_user`, d.table("image"), d.table("actor"))
	case caps.uploadUser:
		query = fmt.Sprintf(`
			SELECT i.img_user, COUNT(*)
			FROM %s i
			WHERE i.img_user = ANY($1) AND i.img_timestamp >= $2
			GROUP BY i.img_user`, d.table("image"))
	default:
		return out, nil
	}
	ctx, cancel := d.queryCtx()
	defer cancel()
	rows, err := d.conn.QueryContext(ctx, query, ids, since)
	if err != nil {
		return nil, fmt.Errorf("UploadsFor: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			cnt int
		)
		if err := rows.Scan(&id, &cnt); err != nil {
			logger.Warn("db: UploadsFor scan error: %v", err)
			continue
		}
		out[id] = cnt
	}
	return out, rows.Err()
}
