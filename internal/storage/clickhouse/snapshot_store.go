package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"coinswiper/internal/domain"
	"coinswiper/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// Rows are append-only; MergeTree does not enforce uniqueness and the
// pipeline never rewrites history.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBatch appends one sync run's snapshot rows.
func (s *SnapshotStore) InsertBatch(ctx context.Context, snaps []*domain.PairSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pair_snapshots (
			pair_address, base_token_symbol, dex_id,
			price_usd, liquidity, volume_24h, txn_count_24h,
			score, rank, synced_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		err = batch.Append(
			snap.PairAddress, snap.BaseTokenSymbol, snap.DexID,
			snap.PriceUSD, snap.Liquidity, snap.Volume24h, int32(snap.TxnCount24h),
			snap.Score, int32(snap.Rank), snap.SyncedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPair retrieves all snapshots for a pair, oldest first.
func (s *SnapshotStore) GetByPair(ctx context.Context, pairAddress string) ([]*domain.PairSnapshot, error) {
	query := `
		SELECT pair_address, base_token_symbol, dex_id,
			price_usd, liquidity, volume_24h, txn_count_24h,
			score, rank, synced_at
		FROM pair_snapshots
		WHERE pair_address = ?
		ORDER BY synced_at ASC
	`

	rows, err := s.conn.Query(ctx, query, pairAddress)
	if err != nil {
		return nil, fmt.Errorf("query snapshots by pair: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// LatestSync returns the rows of the most recent sync run, rank ascending.
func (s *SnapshotStore) LatestSync(ctx context.Context) ([]*domain.PairSnapshot, error) {
	var latest time.Time
	err := s.conn.QueryRow(ctx, `SELECT max(synced_at) FROM pair_snapshots`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("query latest sync time: %w", err)
	}
	if latest.IsZero() {
		return nil, nil
	}

	query := `
		SELECT pair_address, base_token_symbol, dex_id,
			price_usd, liquidity, volume_24h, txn_count_24h,
			score, rank, synced_at
		FROM pair_snapshots
		WHERE synced_at = ?
		ORDER BY rank ASC
	`

	rows, err := s.conn.Query(ctx, query, latest)
	if err != nil {
		return nil, fmt.Errorf("query latest sync rows: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows driver.Rows) ([]*domain.PairSnapshot, error) {
	var snaps []*domain.PairSnapshot

	for rows.Next() {
		var snap domain.PairSnapshot
		var txnCount, rank int32

		err := rows.Scan(
			&snap.PairAddress, &snap.BaseTokenSymbol, &snap.DexID,
			&snap.PriceUSD, &snap.Liquidity, &snap.Volume24h, &txnCount,
			&snap.Score, &rank, &snap.SyncedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.TxnCount24h = int(txnCount)
		snap.Rank = int(rank)
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}
