package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/idlecombat/internal/gameserver"
)

// ErrBoutNotFound is returned when a bout lookup yields no results.
var ErrBoutNotFound = errors.New("bout not found")

// ErrBoutExists is returned when a bout with the same encounter ID was already recorded.
var ErrBoutExists = errors.New("bout already recorded")

// BoutRepository persists bout summaries. It implements gameserver.BoutRecorder.
type BoutRepository struct {
	db *pgxpool.Pool
}

// NewBoutRepository creates a BoutRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewBoutRepository(db *pgxpool.Pool) *BoutRepository {
	return &BoutRepository{db: db}
}

const boutColumns = `encounter_id, result, hostile_id, hostile_template, hostile_name,
	party, survivors, adds, rounds, started_at, ended_at`

// RecordBout inserts one bout summary.
//
// Precondition: s.EncounterID must be a UUID.
// Postcondition: The bout is stored, or ErrBoutExists is returned for a duplicate encounter.
func (r *BoutRepository) RecordBout(ctx context.Context, s gameserver.BoutSummary) error {
	id, err := uuid.Parse(s.EncounterID)
	if err != nil {
		return fmt.Errorf("parsing encounter id %q: %w", s.EncounterID, err)
	}
	party := s.Party
	if party == nil {
		party = []string{}
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO bouts (`+boutColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, string(s.Result), s.HostileID, s.HostileTemplate, s.HostileName,
		party, s.Survivors, s.Adds, s.Rounds, s.StartedAt, s.EndedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrBoutExists
		}
		return fmt.Errorf("inserting bout: %w", err)
	}
	return nil
}

// Get returns the bout recorded for encounterID.
//
// Postcondition: Returns the summary or ErrBoutNotFound.
func (r *BoutRepository) Get(ctx context.Context, encounterID string) (gameserver.BoutSummary, error) {
	id, err := uuid.Parse(encounterID)
	if err != nil {
		return gameserver.BoutSummary{}, fmt.Errorf("parsing encounter id %q: %w", encounterID, err)
	}
	row := r.db.QueryRow(ctx,
		`SELECT `+boutColumns+` FROM bouts WHERE encounter_id = $1`, id)
	s, err := scanBout(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return gameserver.BoutSummary{}, ErrBoutNotFound
		}
		return gameserver.BoutSummary{}, fmt.Errorf("querying bout: %w", err)
	}
	return s, nil
}

// ListRecent returns up to limit bouts, most recently ended first.
//
// Precondition: limit must be > 0.
func (r *BoutRepository) ListRecent(ctx context.Context, limit int) ([]gameserver.BoutSummary, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be > 0, got %d", limit)
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+boutColumns+` FROM bouts ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing bouts: %w", err)
	}
	defer rows.Close()

	var out []gameserver.BoutSummary
	for rows.Next() {
		s, err := scanBout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning bout: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bouts: %w", err)
	}
	return out, nil
}

// CountByResult returns how many bouts ended with each result.
func (r *BoutRepository) CountByResult(ctx context.Context) (map[gameserver.Result]int, error) {
	rows, err := r.db.Query(ctx, `SELECT result, COUNT(*) FROM bouts GROUP BY result`)
	if err != nil {
		return nil, fmt.Errorf("counting bouts: %w", err)
	}
	defer rows.Close()

	out := make(map[gameserver.Result]int)
	for rows.Next() {
		var result string
		var n int
		if err := rows.Scan(&result, &n); err != nil {
			return nil, fmt.Errorf("scanning bout count: %w", err)
		}
		out[gameserver.Result(result)] = n
	}
	return out, rows.Err()
}

func scanBout(row pgx.Row) (gameserver.BoutSummary, error) {
	var (
		s      gameserver.BoutSummary
		id     uuid.UUID
		result string
	)
	err := row.Scan(&id, &result, &s.HostileID, &s.HostileTemplate, &s.HostileName,
		&s.Party, &s.Survivors, &s.Adds, &s.Rounds, &s.StartedAt, &s.EndedAt)
	if err != nil {
		return gameserver.BoutSummary{}, err
	}
	s.EncounterID = id.String()
	s.Result = gameserver.Result(result)
	return s, nil
}
