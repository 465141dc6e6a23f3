package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perceptra/braingym/internal/game"
)

// Postgres persists rounds in three tables: game_sessions (one row per
// round), game_differences (revealed items), user_answers (accepted
// guesses). Child rows cascade on session delete.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			game_mode VARCHAR(10) NOT NULL,
			subject TEXT,
			score INTEGER NOT NULL DEFAULT 0,
			total_possible INTEGER,
			found_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMP NOT NULL,
			time_remaining INTEGER NOT NULL,
			completion_status VARCHAR(20) NOT NULL,
			logic_question TEXT,
			logic_solution TEXT,
			logic_title TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS user_id_idx ON game_sessions (user_id)`,
		`CREATE INDEX IF NOT EXISTS created_at_idx ON game_sessions (created_at)`,
		`CREATE TABLE IF NOT EXISTS game_differences (
			id SERIAL PRIMARY KEY,
			session_id INTEGER NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			difference_id INTEGER NOT NULL,
			description TEXT NOT NULL,
			box_2d JSON NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_answers (
			id SERIAL PRIMARY KEY,
			session_id INTEGER NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			answer_text TEXT NOT NULL,
			points_awarded INTEGER NOT NULL,
			found_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate history schema: %w", err)
		}
	}
	return nil
}

func (p *Postgres) SaveRound(ctx context.Context, rec *game.Record) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var sessionID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO game_sessions
			(user_id, game_mode, subject, score, total_possible, found_count,
			 ended_at, time_remaining, completion_status,
			 logic_question, logic_solution, logic_title)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		rec.UserID, rec.Mode, rec.Subject, rec.Score, rec.TotalPossible, len(rec.FoundAnswers),
		rec.EndedAt, rec.TimeRemaining, rec.Status,
		nullable(rec.LogicQuestion), nullable(rec.LogicSolution), nullable(rec.LogicTitle),
	).Scan(&sessionID)
	if err != nil {
		return fmt.Errorf("insert game session: %w", err)
	}

	for _, item := range rec.Items {
		box, _ := json.Marshal(item.Box)
		if _, err := tx.Exec(ctx,
			`INSERT INTO game_differences (session_id, difference_id, description, box_2d)
			 VALUES ($1, $2, $3, $4)`,
			sessionID, item.ID, item.Description, box,
		); err != nil {
			return fmt.Errorf("insert difference: %w", err)
		}
	}

	for _, answer := range rec.FoundAnswers {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_answers (session_id, answer_text, points_awarded)
			 VALUES ($1, $2, $3)`,
			sessionID, answer, rec.PointsPerItem,
		); err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (p *Postgres) ListRounds(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := p.db.Query(ctx,
		`SELECT id, game_mode, COALESCE(subject, ''), score,
				COALESCE(total_possible, 0), found_count,
				created_at, ended_at, time_remaining, completion_status,
				COALESCE(logic_title, ''), COALESCE(logic_question, ''), COALESCE(logic_solution, '')
		 FROM game_sessions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	index := map[int64]int{}
	ids := []int64{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Mode, &e.Subject, &e.Score,
			&e.TotalPossible, &e.FoundCount,
			&e.CreatedAt, &e.EndedAt, &e.TimeRemaining, &e.Status,
			&e.LogicTitle, &e.LogicQuestion, &e.LogicSolution,
		); err != nil {
			return nil, err
		}
		e.Items = []game.RevealedItem{}
		e.Answers = []Answer{}
		index[e.ID] = len(entries)
		ids = append(ids, e.ID)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	if err := p.attachItems(ctx, ids, index, entries); err != nil {
		return nil, err
	}
	if err := p.attachAnswers(ctx, ids, index, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *Postgres) attachItems(ctx context.Context, ids []int64, index map[int64]int, entries []Entry) error {
	rows, err := p.db.Query(ctx,
		`SELECT session_id, difference_id, description, box_2d
		 FROM game_differences
		 WHERE session_id = ANY($1)
		 ORDER BY difference_id`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID int64
			item      game.RevealedItem
			box       []byte
		)
		if err := rows.Scan(&sessionID, &item.ID, &item.Description, &box); err != nil {
			return err
		}
		if err := json.Unmarshal(box, &item.Box); err != nil {
			return fmt.Errorf("decode box_2d: %w", err)
		}
		if i, ok := index[sessionID]; ok {
			entries[i].Items = append(entries[i].Items, item)
		}
	}
	return rows.Err()
}

func (p *Postgres) attachAnswers(ctx context.Context, ids []int64, index map[int64]int, entries []Entry) error {
	rows, err := p.db.Query(ctx,
		`SELECT session_id, answer_text, points_awarded, found_at
		 FROM user_answers
		 WHERE session_id = ANY($1)
		 ORDER BY found_at, id`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID int64
			a         Answer
		)
		if err := rows.Scan(&sessionID, &a.Text, &a.PointsAwarded, &a.FoundAt); err != nil {
			return err
		}
		if i, ok := index[sessionID]; ok {
			entries[i].Answers = append(entries[i].Answers, a)
		}
	}
	return rows.Err()
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
