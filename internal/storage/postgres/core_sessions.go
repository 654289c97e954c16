// Package postgres adapts the core's persistence collaborator
// contract (spec.md §6: begin_session/end_session/record_hand) onto
// PostgreSQL, in the same raw-SQL-over-database/sql style as the
// teacher's SessionPostgresStorage (postgres_sessions.go), generalized
// away from fraud.PlayerSession to the core's own hand/session shape.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// HandStats is one row of the hand_stats_batch the core submits on
// record_hand (spec.md §6).
type HandStats struct {
	HandID     string
	TableID    string
	PlayerID   string
	SeatNumber int
	ChipsBefore int64
	ChipsAfter  int64
	Pot         int64
	Won         bool
	PlayedAt    time.Time
}

// CoreSessionStore implements the core's begin_session/end_session/
// record_hand collaborator contract against PostgreSQL. Failures here
// are non-fatal to the table engine per spec.md §6 — callers should
// log and continue rather than abort a hand.
type CoreSessionStore struct {
	db *sql.DB
}

// NewCoreSessionStore wraps an existing *sql.DB (opened via
// sql.Open("postgres", dsn), the lib/pq driver imported for its side
// effect above).
func NewCoreSessionStore(db *sql.DB) *CoreSessionStore {
	return &CoreSessionStore{db: db}
}

// CreateSchema creates the tables this store needs, if absent.
func (s *CoreSessionStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS core_sessions (
			session_id   UUID PRIMARY KEY,
			player_id    TEXT NOT NULL,
			table_id     TEXT NOT NULL,
			buy_in       BIGINT NOT NULL,
			starting_chips BIGINT NOT NULL,
			cash_out     BIGINT,
			started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			ended_at     TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS core_hand_stats (
			hand_id      TEXT NOT NULL,
			table_id     TEXT NOT NULL,
			player_id    TEXT NOT NULL,
			seat_number  INT NOT NULL,
			chips_before BIGINT NOT NULL,
			chips_after  BIGINT NOT NULL,
			pot          BIGINT NOT NULL,
			won          BOOLEAN NOT NULL,
			played_at    TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (hand_id, player_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("postgres: create schema: %w", err)
	}
	return nil
}

// BeginSession implements spec.md §6's
// begin_session(player_id, table_id, buy_in, starting_chips) -> session_id.
func (s *CoreSessionStore) BeginSession(ctx context.Context, playerID, tableID string, buyIn, startingChips int64) (string, error) {
	sessionID := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO core_sessions (session_id, player_id, table_id, buy_in, starting_chips)
		VALUES ($1, $2, $3, $4, $5)
	`, sessionID, playerID, tableID, buyIn, startingChips)
	if err != nil {
		return "", fmt.Errorf("postgres: begin session: %w", err)
	}
	return sessionID, nil
}

// EndSession implements spec.md §6's end_session(session_id, cash_out).
func (s *CoreSessionStore) EndSession(ctx context.Context, sessionID string, cashOut int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE core_sessions SET cash_out = $1, ended_at = now()
		WHERE session_id = $2 AND ended_at IS NULL
	`, cashOut, sessionID)
	if err != nil {
		return fmt.Errorf("postgres: end session: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("postgres: session %s not found or already ended", sessionID)
	}
	return nil
}

// RecordHand implements spec.md §6's record_hand(hand_stats_batch),
// persisting one row per player in the hand.
func (s *CoreSessionStore) RecordHand(ctx context.Context, batch []HandStats) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: record hand: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO core_hand_stats
			(hand_id, table_id, player_id, seat_number, chips_before, chips_after, pot, won, played_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (hand_id, player_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("postgres: record hand: prepare: %w", err)
	}
	defer stmt.Close()

	for _, h := range batch {
		if _, err := stmt.ExecContext(ctx, h.HandID, h.TableID, h.PlayerID, h.SeatNumber,
			h.ChipsBefore, h.ChipsAfter, h.Pot, h.Won, h.PlayedAt); err != nil {
			return fmt.Errorf("postgres: record hand %s/%s: %w", h.HandID, h.PlayerID, err)
		}
	}

	return tx.Commit()
}
