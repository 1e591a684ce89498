// Package dbstore persists federated round results to PostgreSQL, adapted
// from the teacher's internal/db/postgres.go pool-and-upsert pattern onto
// the federated round/global-HUI schema (§3 Supplemented Features).
package dbstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rawblock/hui-federated/internal/hui"
)

// Store wraps a pgx connection pool for the federated server's persistence
// needs.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and verifies connectivity.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("dbstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("dbstore: ping: %w", err)
	}
	log.Println("[dbstore] connected to PostgreSQL for federated round persistence")
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql.
func (s *Store) InitSchema(ctx context.Context, schemaSQL string) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("dbstore: init schema: %w", err)
	}
	log.Println("[dbstore] federated round schema initialized")
	return nil
}

// SaveRound persists one round's global HUIs inside a single transaction,
// batch-inserting itemsets and upserting on (epoch, item_key) so a retried
// persist after a partial failure doesn't duplicate rows.
func (s *Store) SaveRound(ctx context.Context, epoch int64, participatingCount int, commBytes int64, cumulativeEpsilon float64, global []hui.Itemset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dbstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertRound = `
		INSERT INTO federated_rounds (epoch, participating_count, comm_bytes, cumulative_epsilon)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (epoch) DO UPDATE
		SET participating_count = EXCLUDED.participating_count,
		    comm_bytes = EXCLUDED.comm_bytes,
		    cumulative_epsilon = EXCLUDED.cumulative_epsilon;
	`
	if _, err := tx.Exec(ctx, insertRound, epoch, participatingCount, commBytes, cumulativeEpsilon); err != nil {
		return fmt.Errorf("dbstore: insert round: %w", err)
	}

	const insertHUI = `
		INSERT INTO global_huis (epoch, item_key, items, utility)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (epoch, item_key) DO UPDATE
		SET items = EXCLUDED.items, utility = EXCLUDED.utility;
	`
	for _, set := range global {
		rec := set.ToRecord()
		itemsJSON, err := json.Marshal(rec.Items)
		if err != nil {
			return fmt.Errorf("dbstore: marshal items: %w", err)
		}
		if _, err := tx.Exec(ctx, insertHUI, epoch, set.Key(), itemsJSON, set.Utility); err != nil {
			return fmt.Errorf("dbstore: insert global hui: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// LoadRound fetches one round's global HUIs back out, descending by
// utility.
func (s *Store) LoadRound(ctx context.Context, epoch int64) ([]hui.Record, error) {
	const q = `SELECT items, utility FROM global_huis WHERE epoch = $1 ORDER BY utility DESC`
	rows, err := s.pool.Query(ctx, q, epoch)
	if err != nil {
		return nil, fmt.Errorf("dbstore: load round: %w", err)
	}
	defer rows.Close()

	var out []hui.Record
	for rows.Next() {
		var itemsJSON []byte
		var rec hui.Record
		if err := rows.Scan(&itemsJSON, &rec.Utility); err != nil {
			return nil, fmt.Errorf("dbstore: scan global hui: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
			return nil, fmt.Errorf("dbstore: unmarshal items: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
