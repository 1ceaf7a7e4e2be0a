package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
)

// Supported database drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed schema.sql
var schema string

// SQLStore implements Store on database/sql. Queries are written with "?"
// placeholders and rebound for PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger logger.Logger
}

// Open returns the Store for driver. The memory driver ignores dsn.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (Store, error) {
	if driver == DriverMemory {
		return NewMemStore(opts...), nil
	}
	return OpenSQL(ctx, driver, dsn, opts...)
}

// OpenSQL connects to a SQLite or PostgreSQL database and applies the schema.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	o := newStoreOptions(opts)

	var name string
	switch driver {
	case DriverSQLite:
		name = "sqlite"
	case DriverPostgres:
		name = "pgx"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, unavailable("open", err)
	}
	if driver == DriverSQLite {
		// A single connection serializes writers and keeps ":memory:"
		// databases alive across calls.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(o.maxOpenConns)
	}

	s := &SQLStore{db: db, driver: driver, logger: o.logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info(ctx, "sql store ready", logger.String("driver", driver))
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		stmt = stripComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("migrate", err)
		}
	}
	return nil
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *SQLStore) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inTx runs fn in a transaction and commits it when fn succeeds.
func (s *SQLStore) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// SaveCategory implements Store.SaveCategory.
func (s *SQLStore) SaveCategory(ctx context.Context, c model.Category) error {
	defer observe("save_category", time.Now())
	if err := c.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, "save category", func(tx *sql.Tx) error {
		var pos int
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT position FROM categories WHERE id = ?`), c.ID).Scan(&pos)
		if errors.Is(err, sql.ErrNoRows) {
			err = tx.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM categories WHERE event_id = ?`), c.EventID).Scan(&pos)
		}
		if err != nil {
			return unavailable("save category", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO categories (id, event_id, name, base_points, position) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET event_id = excluded.event_id, name = excluded.name, base_points = excluded.base_points`),
			c.ID, c.EventID, c.Name, c.BasePoints, pos); err != nil {
			return unavailable("save category", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM nominees WHERE category_id = ?`), c.ID); err != nil {
			return unavailable("save category", err)
		}
		for i, n := range c.Nominees {
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO nominees (category_id, id, name, position) VALUES (?, ?, ?, ?)`),
				c.ID, n.ID, n.Name, i); err != nil {
				return unavailable("save category", err)
			}
		}
		return nil
	})
}

// SaveBallot implements Store.SaveBallot.
func (s *SQLStore) SaveBallot(ctx context.Context, b model.Ballot) error {
	defer observe("save_ballot", time.Now())
	if err := b.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, "save ballot", func(tx *sql.Tx) error {
		// A user holds one ballot per league of an event; a new id for the
		// same key replaces the old ballot.
		if _, err := tx.ExecContext(ctx, s.rebind(`
			DELETE FROM picks WHERE ballot_id IN (
				SELECT id FROM ballots WHERE user_id = ? AND event_id = ? AND league_id = ? AND id <> ?)`),
			b.UserID, b.EventID, b.LeagueID, b.ID); err != nil {
			return unavailable("save ballot", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			DELETE FROM ballots WHERE user_id = ? AND event_id = ? AND league_id = ? AND id <> ?`),
			b.UserID, b.EventID, b.LeagueID, b.ID); err != nil {
			return unavailable("save ballot", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO ballots (id, user_id, event_id, league_id) VALUES (?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET user_id = excluded.user_id, event_id = excluded.event_id, league_id = excluded.league_id`),
			b.ID, b.UserID, b.EventID, b.LeagueID); err != nil {
			return unavailable("save ballot", err)
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM picks WHERE ballot_id = ?`), b.ID); err != nil {
			return unavailable("save ballot", err)
		}
		for _, p := range b.Picks {
			if _, err := tx.ExecContext(ctx, s.rebind(`
				INSERT INTO picks (ballot_id, category_id, nominee_id, is_power_pick, created_at) VALUES (?, ?, ?, ?, ?)`),
				b.ID, p.CategoryID, p.NomineeID, p.IsPowerPick, toNanos(p.CreatedAt)); err != nil {
				return unavailable("save ballot", err)
			}
		}
		return nil
	})
}

// Events implements Store.Events.
func (s *SQLStore) Events(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT event_id FROM categories ORDER BY event_id`)
	if err != nil {
		return nil, unavailable("events", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("events", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("events", err)
	}
	return out, nil
}

// Categories implements Store.Categories.
func (s *SQLStore) Categories(ctx context.Context, eventID string) ([]model.Category, error) {
	defer observe("categories", time.Now())
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, event_id, name, base_points FROM categories WHERE event_id = ? ORDER BY position, id`), eventID)
	if err != nil {
		return nil, unavailable("categories", err)
	}
	var out []model.Category
	index := make(map[string]int)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name, &c.BasePoints); err != nil {
			rows.Close()
			return nil, unavailable("categories", err)
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, unavailable("categories", err)
	}

	nrows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT n.category_id, n.id, n.name FROM nominees n
		JOIN categories c ON c.id = n.category_id
		WHERE c.event_id = ? ORDER BY n.category_id, n.position`), eventID)
	if err != nil {
		return nil, unavailable("categories", err)
	}
	defer nrows.Close()
	for nrows.Next() {
		var n model.Nominee
		if err := nrows.Scan(&n.CategoryID, &n.ID, &n.Name); err != nil {
			return nil, unavailable("categories", err)
		}
		if i, ok := index[n.CategoryID]; ok {
			out[i].Nominees = append(out[i].Nominees, n)
		}
	}
	if err := nrows.Err(); err != nil {
		return nil, unavailable("categories", err)
	}
	return out, nil
}

// Category implements Store.Category.
func (s *SQLStore) Category(ctx context.Context, categoryID string) (model.Category, error) {
	var c model.Category
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id, event_id, name, base_points FROM categories WHERE id = ?`), categoryID).
		Scan(&c.ID, &c.EventID, &c.Name, &c.BasePoints)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrNotFound
	}
	if err != nil {
		return model.Category{}, unavailable("category", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT id, name FROM nominees WHERE category_id = ? ORDER BY position`), categoryID)
	if err != nil {
		return model.Category{}, unavailable("category", err)
	}
	defer rows.Close()
	for rows.Next() {
		n := model.Nominee{CategoryID: categoryID}
		if err := rows.Scan(&n.ID, &n.Name); err != nil {
			return model.Category{}, unavailable("category", err)
		}
		c.Nominees = append(c.Nominees, n)
	}
	if err := rows.Err(); err != nil {
		return model.Category{}, unavailable("category", err)
	}
	return c, nil
}

// Picks implements Store.Picks.
func (s *SQLStore) Picks(ctx context.Context, eventID string) ([]model.BallotPick, error) {
	defer observe("picks", time.Now())
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT b.id, b.user_id, b.league_id, b.event_id, p.category_id, p.nominee_id, p.is_power_pick, p.created_at
		FROM picks p JOIN ballots b ON b.id = p.ballot_id
		WHERE b.event_id = ? ORDER BY b.id, p.category_id`), eventID)
	if err != nil {
		return nil, unavailable("picks", err)
	}
	defer rows.Close()
	var out []model.BallotPick
	for rows.Next() {
		var (
			bp      model.BallotPick
			created int64
		)
		if err := rows.Scan(&bp.BallotID, &bp.UserID, &bp.LeagueID, &bp.EventID,
			&bp.CategoryID, &bp.NomineeID, &bp.IsPowerPick, &created); err != nil {
			return nil, unavailable("picks", err)
		}
		bp.CreatedAt = fromNanos(created)
		out = append(out, bp)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("picks", err)
	}
	return out, nil
}

// BallotCount implements Store.BallotCount.
func (s *SQLStore) BallotCount(ctx context.Context, eventID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM ballots WHERE event_id = ?`), eventID).Scan(&n); err != nil {
		return 0, unavailable("ballot count", err)
	}
	return n, nil
}

// Results implements Store.Results.
func (s *SQLStore) Results(ctx context.Context, eventID string) ([]model.Result, error) {
	defer observe("results", time.Now())
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT r.category_id, r.winner_nominee_id, r.announced_at
		FROM results r JOIN categories c ON c.id = r.category_id
		WHERE c.event_id = ? ORDER BY c.position, c.id`), eventID)
	if err != nil {
		return nil, unavailable("results", err)
	}
	defer rows.Close()
	var out []model.Result
	for rows.Next() {
		var (
			r         model.Result
			announced int64
		)
		if err := rows.Scan(&r.CategoryID, &r.WinnerNomineeID, &announced); err != nil {
			return nil, unavailable("results", err)
		}
		r.AnnouncedAt = fromNanos(announced)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("results", err)
	}
	return out, nil
}

// CompareAndSetResult implements Store.CompareAndSetResult. On PostgreSQL the
// current row is locked with FOR UPDATE; SQLite has a single writer.
func (s *SQLStore) CompareAndSetResult(ctx context.Context, categoryID string, fn func(model.Result, bool) (model.Result, bool)) (model.Result, bool, error) {
	defer observe("compare_and_set_result", time.Now())
	var (
		stored  model.Result
		written bool
	)
	err := s.inTx(ctx, "compare and set result", func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM categories WHERE id = ?`), categoryID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return unavailable("compare and set result", err)
		}

		q := `SELECT winner_nominee_id, announced_at FROM results WHERE category_id = ?`
		if s.driver == DriverPostgres {
			q += ` FOR UPDATE`
		}
		cur := model.Result{CategoryID: categoryID}
		var announced int64
		found := true
		err = tx.QueryRowContext(ctx, s.rebind(q), categoryID).Scan(&cur.WinnerNomineeID, &announced)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			found = false
			cur = model.Result{}
		case err != nil:
			return unavailable("compare and set result", err)
		default:
			cur.AnnouncedAt = fromNanos(announced)
		}

		next, write := fn(cur, found)
		if !write {
			stored = cur
			return nil
		}
		next.CategoryID = categoryID
		if _, err := tx.ExecContext(ctx, s.rebind(`
			INSERT INTO results (category_id, winner_nominee_id, announced_at) VALUES (?, ?, ?)
			ON CONFLICT (category_id) DO UPDATE SET winner_nominee_id = excluded.winner_nominee_id, announced_at = excluded.announced_at`),
			categoryID, next.WinnerNomineeID, toNanos(next.AnnouncedAt)); err != nil {
			return unavailable("compare and set result", err)
		}
		stored, written = next, true
		return nil
	})
	if err != nil {
		return model.Result{}, false, err
	}
	return stored, written, nil
}

// Scores implements Store.Scores.
func (s *SQLStore) Scores(ctx context.Context, eventID string) ([]model.Score, error) {
	defer observe("scores", time.Now())
	return s.queryScores(ctx, "scores", `
		SELECT user_id, league_id, event_id, total_points, correct_picks, power_picks_hit, updated_at
		FROM scores WHERE event_id = ? ORDER BY league_id, user_id`, eventID)
}

func (s *SQLStore) queryScores(ctx context.Context, op, q string, args ...any) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()
	var out []model.Score
	for rows.Next() {
		var (
			sc      model.Score
			updated int64
		)
		if err := rows.Scan(&sc.UserID, &sc.LeagueID, &sc.EventID, &sc.TotalPoints, &sc.CorrectPicks, &sc.PowerPicksHit, &updated); err != nil {
			return nil, unavailable(op, err)
		}
		sc.UpdatedAt = fromNanos(updated)
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return out, nil
}

// WriteScores implements Store.WriteScores.
func (s *SQLStore) WriteScores(ctx context.Context, rows []model.Score) error {
	defer observe("write_scores", time.Now())
	return s.inTx(ctx, "write scores", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, s.rebind(`
			INSERT INTO scores (user_id, league_id, event_id, total_points, correct_picks, power_picks_hit, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (user_id, league_id, event_id) DO UPDATE SET
				total_points = excluded.total_points,
				correct_picks = excluded.correct_picks,
				power_picks_hit = excluded.power_picks_hit,
				updated_at = excluded.updated_at`))
		if err != nil {
			return unavailable("write scores", err)
		}
		defer stmt.Close()
		for _, r := range rows {
			if _, err := stmt.ExecContext(ctx, r.UserID, r.LeagueID, r.EventID,
				r.TotalPoints, r.CorrectPicks, r.PowerPicksHit, toNanos(r.UpdatedAt)); err != nil {
				return unavailable("write scores", err)
			}
		}
		return nil
	})
}

// Standings implements Store.Standings.
func (s *SQLStore) Standings(ctx context.Context, eventID, leagueID string, limit int) ([]types.Entry, error) {
	defer observe("standings", time.Now())
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.queryScores(ctx, "standings", `
		SELECT user_id, league_id, event_id, total_points, correct_picks, power_picks_hit, updated_at
		FROM scores WHERE event_id = ? AND league_id = ?`, eventID, leagueID)
	if err != nil {
		return nil, err
	}
	return rankStandings(rows, limit)
}

// Close implements Store.Close.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
