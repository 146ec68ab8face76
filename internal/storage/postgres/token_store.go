package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"coinswiper/internal/domain"
	"coinswiper/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

// tokenColumns is the canonical select list shared by every query.
const tokenColumns = `
	id, pair_address,
	base_token_address, base_token_name, base_token_symbol,
	quote_token_address, quote_token_name, quote_token_symbol,
	dex_id,
	price_usd::TEXT, price_sol::TEXT,
	liquidity, volume_24h, market_cap, fdv, price_change_24h, txn_count_24h,
	trading_view_url, dex_screener_url, COALESCE(image_url, ''),
	bullish_votes, bearish_votes, bullish_percentage,
	created_at, updated_at
`

// sortColumns maps API sort keys to table columns. Anything not listed is
// rejected before it can reach the query string.
var sortColumns = map[string]string{
	storage.SortByLiquidity:         "liquidity",
	storage.SortByVolume24h:         "volume_24h",
	storage.SortByPriceChange24h:    "price_change_24h",
	storage.SortByMarketCap:         "market_cap",
	storage.SortByFDV:               "fdv",
	storage.SortByTxnCount24h:       "txn_count_24h",
	storage.SortByBullishPercentage: "bullish_percentage",
	storage.SortByPriceUSD:          "price_usd",
}

// Upsert creates or replaces the record keyed by pair address. The update
// branch deliberately leaves the vote columns untouched so a resync never
// resets sentiment.
func (s *TokenStore) Upsert(ctx context.Context, rec *domain.TokenRecord) (*domain.TokenRecord, error) {
	if rec == nil || rec.PairAddress == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			pair_address,
			base_token_address, base_token_name, base_token_symbol,
			quote_token_address, quote_token_name, quote_token_symbol,
			dex_id, price_usd, price_sol,
			liquidity, volume_24h, market_cap, fdv, price_change_24h, txn_count_24h,
			trading_view_url, dex_screener_url, image_url
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, NULLIF($19, '')
		)
		ON CONFLICT (pair_address) DO UPDATE SET
			base_token_address = EXCLUDED.base_token_address,
			base_token_name = EXCLUDED.base_token_name,
			base_token_symbol = EXCLUDED.base_token_symbol,
			quote_token_address = EXCLUDED.quote_token_address,
			quote_token_name = EXCLUDED.quote_token_name,
			quote_token_symbol = EXCLUDED.quote_token_symbol,
			dex_id = EXCLUDED.dex_id,
			price_usd = EXCLUDED.price_usd,
			price_sol = EXCLUDED.price_sol,
			liquidity = EXCLUDED.liquidity,
			volume_24h = EXCLUDED.volume_24h,
			market_cap = EXCLUDED.market_cap,
			fdv = EXCLUDED.fdv,
			price_change_24h = EXCLUDED.price_change_24h,
			txn_count_24h = EXCLUDED.txn_count_24h,
			trading_view_url = EXCLUDED.trading_view_url,
			dex_screener_url = EXCLUDED.dex_screener_url,
			image_url = COALESCE(EXCLUDED.image_url, tokens.image_url),
			updated_at = now()
		RETURNING ` + tokenColumns

	row := s.pool.QueryRow(ctx, query,
		rec.PairAddress,
		rec.BaseTokenAddress, rec.BaseTokenName, rec.BaseTokenSymbol,
		rec.QuoteTokenAddress, rec.QuoteTokenName, rec.QuoteTokenSymbol,
		rec.DexID, rec.PriceUSD.String(), rec.PriceSOL.String(),
		rec.Liquidity, rec.Volume24h, rec.MarketCap, rec.FDV,
		rec.PriceChange24h, rec.TxnCount24h,
		rec.TradingViewURL, rec.DexScreenerURL, rec.ImageURL,
	)

	stored, err := scanToken(row)
	if err != nil {
		return nil, fmt.Errorf("upsert token: %w", err)
	}
	return stored, nil
}

// GetByID retrieves a record by UUID. Returns ErrNotFound if absent.
func (s *TokenStore) GetByID(ctx context.Context, id string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`

	rec, err := scanToken(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by id: %w", err)
	}
	return rec, nil
}

// GetByPairAddress retrieves a record by pair address. Returns ErrNotFound
// if absent.
func (s *TokenStore) GetByPairAddress(ctx context.Context, pairAddress string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE pair_address = $1`

	rec, err := scanToken(s.pool.QueryRow(ctx, query, pairAddress))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by pair address: %w", err)
	}
	return rec, nil
}

// List returns one page of records plus the total count matching the filters.
func (s *TokenStore) List(ctx context.Context, opts storage.ListOptions) ([]*domain.TokenRecord, int, error) {
	col, ok := sortColumns[opts.SortBy]
	if !ok {
		return nil, 0, fmt.Errorf("%w: unknown sort column %q", storage.ErrInvalidInput, opts.SortBy)
	}
	dir := "DESC"
	if strings.EqualFold(opts.SortOrder, "asc") {
		dir = "ASC"
	}

	where, args := buildFilters(opts)

	var total int
	countQuery := `SELECT count(*) FROM tokens` + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tokens: %w", err)
	}

	// Pair address as final sort key keeps pages stable across requests.
	query := fmt.Sprintf(
		`SELECT %s FROM tokens%s ORDER BY %s %s, pair_address ASC LIMIT $%d OFFSET $%d`,
		tokenColumns, where, col, dir, len(args)+1, len(args)+2,
	)
	args = append(args, opts.Limit, opts.Offset())

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	recs, err := scanTokens(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// buildFilters renders the WHERE clause for List and returns its arguments.
func buildFilters(opts storage.ListOptions) (string, []any) {
	var conds []string
	var args []any

	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(base_token_name ILIKE $%d OR base_token_symbol ILIKE $%d)", n, n))
	}
	if opts.MinLiquidity > 0 {
		args = append(args, opts.MinLiquidity)
		conds = append(conds, fmt.Sprintf("liquidity >= $%d", len(args)))
	}
	if opts.MinVolume > 0 {
		args = append(args, opts.MinVolume)
		conds = append(conds, fmt.Sprintf("volume_24h >= $%d", len(args)))
	}
	if opts.Dex != "" {
		args = append(args, opts.Dex)
		conds = append(conds, fmt.Sprintf("dex_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// IncrementVote bumps one counter and recomputes the percentage from the
// post-increment tallies in a single statement, so concurrent votes on the
// same token cannot lose updates.
func (s *TokenStore) IncrementVote(ctx context.Context, id string, voteType domain.VoteType) (*domain.TokenRecord, error) {
	return s.applyVote(ctx, id, voteType, 1)
}

// UndoVote applies a compensating decrement, flooring the counter at zero.
func (s *TokenStore) UndoVote(ctx context.Context, id string, voteType domain.VoteType) (*domain.TokenRecord, error) {
	return s.applyVote(ctx, id, voteType, -1)
}

func (s *TokenStore) applyVote(ctx context.Context, id string, voteType domain.VoteType, delta int) (*domain.TokenRecord, error) {
	if !voteType.Valid() {
		return nil, storage.ErrInvalidInput
	}

	var bullDelta, bearDelta int
	if voteType == domain.VoteBullish {
		bullDelta = delta
	} else {
		bearDelta = delta
	}

	query := `
		UPDATE tokens SET
			bullish_votes = GREATEST(bullish_votes + $2, 0),
			bearish_votes = GREATEST(bearish_votes + $3, 0),
			bullish_percentage = CASE
				WHEN GREATEST(bullish_votes + $2, 0) + GREATEST(bearish_votes + $3, 0) > 0
				THEN ROUND(100.0 * GREATEST(bullish_votes + $2, 0)
					/ (GREATEST(bullish_votes + $2, 0) + GREATEST(bearish_votes + $3, 0)))::INT
				ELSE 50
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + tokenColumns

	rec, err := scanToken(s.pool.QueryRow(ctx, query, id, bullDelta, bearDelta))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("apply vote: %w", err)
	}
	return rec, nil
}

// RecentlyVoted returns up to limit voted-on records, most recently updated
// first.
func (s *TokenStore) RecentlyVoted(ctx context.Context, limit int) ([]*domain.TokenRecord, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE bullish_votes > 0 OR bearish_votes > 0
		ORDER BY updated_at DESC, pair_address ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recently voted: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// Count returns the total number of stored records.
func (s *TokenStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM tokens`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return n, nil
}

// Clear deletes all records and returns how many were removed.
func (s *TokenStore) Clear(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tokens`)
	if err != nil {
		return 0, fmt.Errorf("clear tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// scanToken scans a single row into a TokenRecord.
func scanToken(row pgx.Row) (*domain.TokenRecord, error) {
	var rec domain.TokenRecord
	var priceUSD, priceSOL string

	err := row.Scan(
		&rec.ID, &rec.PairAddress,
		&rec.BaseTokenAddress, &rec.BaseTokenName, &rec.BaseTokenSymbol,
		&rec.QuoteTokenAddress, &rec.QuoteTokenName, &rec.QuoteTokenSymbol,
		&rec.DexID,
		&priceUSD, &priceSOL,
		&rec.Liquidity, &rec.Volume24h, &rec.MarketCap, &rec.FDV,
		&rec.PriceChange24h, &rec.TxnCount24h,
		&rec.TradingViewURL, &rec.DexScreenerURL, &rec.ImageURL,
		&rec.BullishVotes, &rec.BearishVotes, &rec.BullishPercentage,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.PriceUSD, err = decimal.NewFromString(priceUSD); err != nil {
		return nil, fmt.Errorf("parse price_usd %q: %w", priceUSD, err)
	}
	if rec.PriceSOL, err = decimal.NewFromString(priceSOL); err != nil {
		return nil, fmt.Errorf("parse price_sol %q: %w", priceSOL, err)
	}
	return &rec, nil
}

// scanTokens scans multiple rows into a slice of TokenRecord.
func scanTokens(rows pgx.Rows) ([]*domain.TokenRecord, error) {
	var recs []*domain.TokenRecord

	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return recs, nil
}
