package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/swapquoter/internal/domain"
)

// CycleHistoryStore implements domain.CycleHistoryStore using
// PostgreSQL.
type CycleHistoryStore struct {
	pool *pgxpool.Pool
}

var _ domain.CycleHistoryStore = (*CycleHistoryStore)(nil)

func NewCycleHistoryStore(pool *pgxpool.Pool) *CycleHistoryStore {
	return &CycleHistoryStore{pool: pool}
}

// Insert stores one committed cycle. Re-inserting the same cycle id is
// a no-op.
func (s *CycleHistoryStore) Insert(ctx context.Context, rec domain.CycleRecord) error {
	const query = `
		INSERT INTO quote_cycles (
			cycle_id, chain_id, source_token, dest_token, source_amount,
			best_agg_id, quote_count, savings_total, is_polled, committed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (cycle_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		rec.CycleID, int64(rec.ChainID), rec.SourceToken, rec.DestToken,
		rec.SourceAmount, rec.BestAggID, rec.QuoteCount, rec.SavingsTotal,
		rec.IsPolled, rec.CommittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert cycle %s: %w", rec.CycleID, err)
	}
	return nil
}

// ListRecent returns up to limit cycles, newest first.
func (s *CycleHistoryStore) ListRecent(ctx context.Context, limit int) ([]domain.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT cycle_id, chain_id, source_token, dest_token, source_amount,
			best_agg_id, quote_count, savings_total, is_polled, committed_at
		FROM quote_cycles
		ORDER BY committed_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cycles: %w", err)
	}
	defer rows.Close()

	var recs []domain.CycleRecord
	for rows.Next() {
		var rec domain.CycleRecord
		var chainID int64
		if err := rows.Scan(
			&rec.CycleID, &chainID, &rec.SourceToken, &rec.DestToken,
			&rec.SourceAmount, &rec.BestAggID, &rec.QuoteCount,
			&rec.SavingsTotal, &rec.IsPolled, &rec.CommittedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan cycle: %w", err)
		}
		rec.ChainID = uint64(chainID)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
