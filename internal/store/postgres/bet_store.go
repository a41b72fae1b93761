package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/staktlabs/arb-finder-service/internal/models"
)

// BetStore persists each user's bet list as a single JSONB document
// keyed by the auth subject. Last write wins.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a bet store on top of an existing client.
func NewBetStore(client *Client) *BetStore {
	return &BetStore{pool: client.Pool()}
}

// GetBets returns the stored bets for a subject. A subject with no
// stored document gets an empty list, not an error.
func (s *BetStore) GetBets(ctx context.Context, subject string) ([]models.Bet, time.Time, error) {
	var (
		data      []byte
		updatedAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, updated_at FROM user_bets WHERE subject = $1`,
		subject,
	).Scan(&data, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return []models.Bet{}, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load bets: %w", err)
	}

	var bets []models.Bet
	if err := json.Unmarshal(data, &bets); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode stored bets: %w", err)
	}
	return bets, updatedAt, nil
}

// ReplaceBets overwrites the subject's bet list and returns the new
// update timestamp.
func (s *BetStore) ReplaceBets(ctx context.Context, subject string, bets []models.Bet) (time.Time, error) {
	if bets == nil {
		bets = []models.Bet{}
	}
	data, err := json.Marshal(bets)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to encode bets: %w", err)
	}

	var updatedAt time.Time
	err = s.pool.QueryRow(ctx, `
		INSERT INTO user_bets (subject, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (subject)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
		RETURNING updated_at`,
		subject, data,
	).Scan(&updatedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to store bets: %w", err)
	}
	return updatedAt, nil
}
