// seed creates a small wiki schema and fills it with demo contributors so the
// leaderboard has something to rank. Point DATABASE_URL at a scratch database:
//
//	go run ./cmd/seed -users 200 -reset
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"github.com/lerndmina/ContributionsLeaderboard/internal/config"
	"github.com/lerndmina/ContributionsLeaderboard/internal/logger"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	users := flag.Int("users", 120, "number of human contributors")
	bots := flag.Int("bots", 3, "number of bot accounts")
	pages := flag.Int("pages", 400, "number of pages")
	days := flag.Int("days", 730, "history span in days")
	seed := flag.Int64("seed", 1, "random seed")
	reset := flag.Bool("reset", false, "drop existing tables first")
	flag.Parse()

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect: %v", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	s := seeder{conn: conn, prefix: cfg.TablePrefix, userTable: cfg.UserTable}
	if *reset {
		if err := s.drop(ctx); err != nil {
			logger.Error("drop: %v", err)
			os.Exit(1)
		}
	}
	if err := s.createSchema(ctx); err != nil {
		logger.Error("schema: %v", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))
	ds := generate(rng, *users, *bots, *pages, time.Duration(*days)*24*time.Hour, time.Now().UTC())
	if err := s.load(ctx, ds); err != nil {
		logger.Error("load: %v", err)
		os.Exit(1)
	}
	logger.Success("seeded %d users, %d pages, %d revisions, %d uploads",
		len(ds.Users), len(ds.Pages), len(ds.Revisions), len(ds.Uploads))
}

type seeder struct {
	conn      *pgx.Conn
	prefix    string
	userTable string
}

var tables = []string{"user", "user_groups", "actor", "page", "revision", "image"}

func (s seeder) name(table string) string {
	if table == "user" {
		table = s.userTable
	}
	return s.prefix + table
}

func (s seeder) ident(table string) string {
	return pgx.Identifier{s.name(table)}.Sanitize()
}

func (s seeder) drop(ctx context.Context) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := s.conn.Exec(ctx, "DROP TABLE IF EXISTS "+s.ident(tables[i])); err != nil {
			return fmt.Errorf("drop %s: %w", tables[i], err)
		}
	}
	return nil
}

func (s seeder) createSchema(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id        INTEGER PRIMARY KEY,
			user_name      TEXT NOT NULL UNIQUE,
			user_editcount INTEGER
		)`, s.ident("user")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ug_user  INTEGER NOT NULL,
			ug_group TEXT NOT NULL,
			PRIMARY KEY (ug_user, ug_group)
		)`, s.ident("user_groups")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			actor_id   INTEGER PRIMARY KEY,
			actor_user INTEGER,
			actor_name TEXT NOT NULL
		)`, s.ident("actor")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			page_id            INTEGER PRIMARY KEY,
			page_title         TEXT NOT NULL,
			page_content_model TEXT
		)`, s.ident("page")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			rev_id        INTEGER PRIMARY KEY,
			rev_page      INTEGER NOT NULL,
			rev_actor     INTEGER NOT NULL,
			rev_parent_id INTEGER,
			rev_len       INTEGER,
			rev_timestamp TIMESTAMPTZ NOT NULL
		)`, s.ident("revision")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			img_name      TEXT PRIMARY KEY,
			img_actor     INTEGER NOT NULL,
			img_timestamp TIMESTAMPTZ NOT NULL
		)`, s.ident("image")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (rev_actor, rev_timestamp)`,
			pgx.Identifier{s.name("revision") + "_actor_ts"}.Sanitize(), s.ident("revision")),
	}
	for _, stmt := range ddl {
		if _, err := s.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// load bulk-copies the dataset in one transaction.
func (s seeder) load(ctx context.Context, ds dataset) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userRows, actorRows, groupRows [][]interface{}
	for _, u := range ds.Users {
		userRows = append(userRows, []interface{}{u.ID, u.Name, u.EditCount})
		actorRows = append(actorRows, []interface{}{u.ID, u.ID, u.Name})
		if u.Bot {
			groupRows = append(groupRows, []interface{}{u.ID, "bot"})
		}
	}
	var pageRows, revRows, imgRows [][]interface{}
	for _, p := range ds.Pages {
		pageRows = append(pageRows, []interface{}{p.ID, p.Title, p.ContentModel})
	}
	for _, r := range ds.Revisions {
		var parent interface{}
		if r.ParentID != 0 {
			parent = r.ParentID
		}
		revRows = append(revRows, []interface{}{r.ID, r.PageID, r.ActorID, parent, r.Length, r.Timestamp})
	}
	for _, i := range ds.Uploads {
		imgRows = append(imgRows, []interface{}{i.Name, i.ActorID, i.Timestamp})
	}

	copies := []struct {
		table string
		cols  []string
		rows  [][]interface{}
	}{
		{"user", []string{"user_id", "user_name", "user_editcount"}, userRows},
		{"actor", []string{"actor_id", "actor_user", "actor_name"}, actorRows},
		{"user_groups", []string{"ug_user", "ug_group"}, groupRows},
		{"page", []string{"page_id", "page_title", "page_content_model"}, pageRows},
		{"revision", []string{"rev_id", "rev_page", "rev_actor", "rev_parent_id", "rev_len", "rev_timestamp"}, revRows},
		{"image", []string{"img_name", "img_actor", "img_timestamp"}, imgRows},
	}
	for _, c := range copies {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{s.name(c.table)}, c.cols, pgx.CopyFromRows(c.rows))
		if err != nil {
			return fmt.Errorf("copy %s: %w", c.table, err)
		}
		logger.Info("copied %d rows into %s", n, s.name(c.table))
	}
	return tx.Commit(ctx)
}
