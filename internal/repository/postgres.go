package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"TrendPulse/internal/domain/models"
	apphttp "TrendPulse/pkg/http"
)

// Postgres is the system of record: items with their latest trend state,
// raw activity, and flash markets with positions. It backs the ItemStore,
// ActivityStore, and FlashStore interfaces.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// --- ItemStore ---

const itemColumns = `id, title, content, creator, market_address, curve_type, base_price,
	supply, holder_count, price, volume_24h, price_change_24h,
	trend_score, trend_velocity, trend_updated_at, created_at`

func scanItem(row pgx.Row) (*models.Item, error) {
	var it models.Item
	var trendUpdatedAt *time.Time
	err := row.Scan(
		&it.ID, &it.Title, &it.Content, &it.Creator, &it.MarketAddress, &it.CurveType, &it.BasePrice,
		&it.Supply, &it.HolderCount, &it.Price, &it.Volume24h, &it.PriceChange24h,
		&it.TrendScore, &it.TrendVelocity, &trendUpdatedAt, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if trendUpdatedAt != nil {
		it.TrendUpdatedAt = *trendUpdatedAt
	}
	return &it, nil
}

func (s *Postgres) Item(ctx context.Context, id string) (*models.Item, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apphttp.NotFoundErrorf("item %s", id)
	}
	if err != nil {
		return nil, apphttp.PersistenceError("item read").WithError(err)
	}
	return it, nil
}

// TrendCandidates selects items due for a rescore: a trade since
// activeSince, meaningful 24h volume, a stale trend, or no trend at all.
func (s *Postgres) TrendCandidates(ctx context.Context, activeSince, staleBefore time.Time) ([]*models.Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items i
		WHERE EXISTS (SELECT 1 FROM trades t WHERE t.item_id = i.id AND t.ts >= $1)
		   OR i.volume_24h > 1.0
		   OR i.trend_updated_at < $2
		   OR i.trend_updated_at IS NULL`,
		activeSince, staleBefore)
	if err != nil {
		return nil, apphttp.PersistenceError("candidate query").WithError(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// Trending returns items above minScore ordered by trend velocity.
func (s *Postgres) Trending(ctx context.Context, minScore float64, limit int) ([]*models.Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM items
		WHERE trend_score > $1
		ORDER BY abs(trend_velocity) DESC, trend_score DESC
		LIMIT $2`,
		minScore, limit)
	if err != nil {
		return nil, apphttp.PersistenceError("trending query").WithError(err)
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]*models.Item, error) {
	var items []*models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apphttp.PersistenceError("item scan").WithError(err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Postgres) UpdateTrend(ctx context.Context, id string, score, velocity float64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE items SET trend_score = $2, trend_velocity = $3, trend_updated_at = $4
		WHERE id = $1`,
		id, score, velocity, at)
	if err != nil {
		return apphttp.PersistenceError("trend update").WithError(err)
	}
	return nil
}

func (s *Postgres) UpdateStats(ctx context.Context, id string, price int64, volume24h, priceChange24h float64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE items SET price = $2, volume_24h = $3, price_change_24h = $4
		WHERE id = $1`,
		id, price, volume24h, priceChange24h)
	if err != nil {
		return apphttp.PersistenceError("stats update").WithError(err)
	}
	return nil
}

// --- ActivityStore ---

func (s *Postgres) Window(ctx context.Context, itemID string, now time.Time) (*models.ActivityWindow, error) {
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	var w models.ActivityWindow
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM trades WHERE item_id = $1 AND ts >= $2),
			(SELECT coalesce(sum(volume), 0) FROM trades WHERE item_id = $1 AND ts >= $2),
			(SELECT coalesce(sum(volume), 0) FROM trades WHERE item_id = $1 AND ts >= $3),
			(SELECT count(*) FROM comments WHERE item_id = $1 AND created_at >= $2),
			(SELECT count(*) FROM likes WHERE item_id = $1 AND created_at >= $2)`,
		itemID, hourAgo, dayAgo,
	).Scan(&w.TradeCount1h, &w.Volume1h, &w.Volume24h, &w.CommentCount1h, &w.LikeCount1h)
	if err != nil {
		return nil, apphttp.PersistenceError("activity window").WithError(err)
	}
	return &w, nil
}

func (s *Postgres) RecordTrade(ctx context.Context, t *models.Trade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (id, item_id, buyer, side, amount, price, volume, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.ItemID, t.Buyer, t.Side, t.Amount, t.Price, t.Volume, t.Timestamp)
	if err != nil {
		return apphttp.PersistenceError("trade insert").WithError(err)
	}
	return nil
}

func (s *Postgres) Trades24h(ctx context.Context, itemID string, now time.Time) ([]*models.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, item_id, buyer, side, amount, price, volume, ts
		FROM trades
		WHERE item_id = $1 AND ts >= $2
		ORDER BY ts DESC`,
		itemID, now.Add(-24*time.Hour))
	if err != nil {
		return nil, apphttp.PersistenceError("trades query").WithError(err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(&t.ID, &t.ItemID, &t.Buyer, &t.Side, &t.Amount, &t.Price, &t.Volume, &t.Timestamp); err != nil {
			return nil, apphttp.PersistenceError("trade scan").WithError(err)
		}
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}

func (s *Postgres) RecordComment(ctx context.Context, c *models.Comment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO comments (id, item_id, author, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ItemID, c.Author, c.Body, c.CreatedAt)
	if err != nil {
		return apphttp.PersistenceError("comment insert").WithError(err)
	}
	return nil
}

func (s *Postgres) RecordLike(ctx context.Context, l *models.Like) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO likes (item_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (item_id, user_id) DO NOTHING`,
		l.ItemID, l.UserID, l.CreatedAt)
	if err != nil {
		return apphttp.PersistenceError("like insert").WithError(err)
	}
	return nil
}

// --- FlashStore ---

func (s *Postgres) CreateMarket(ctx context.Context, m *models.FlashMarket) error {
	weights, err := encodeWeights(m.SnapshotWeights)
	if err != nil {
		return apphttp.PersistenceError("weights encode").WithError(err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO flash_markets
			(id, parent_item_id, snapshot_weights, start_time, end_time,
			 initial_velocity, is_active, is_resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ParentItemID, weights, m.StartTime, m.EndTime,
		m.InitialVelocity, m.IsActive, m.IsResolved)
	if err != nil {
		return apphttp.PersistenceError("market insert").WithError(err)
	}
	return nil
}

const marketColumns = `id, parent_item_id, snapshot_weights, start_time, end_time,
	initial_velocity, final_velocity, winning_side, is_active, is_resolved`

func scanMarket(row pgx.Row) (*models.FlashMarket, error) {
	var m models.FlashMarket
	var weights []byte
	var winningSide *string
	err := row.Scan(
		&m.ID, &m.ParentItemID, &weights, &m.StartTime, &m.EndTime,
		&m.InitialVelocity, &m.FinalVelocity, &winningSide, &m.IsActive, &m.IsResolved,
	)
	if err != nil {
		return nil, err
	}
	if w, derr := decodeWeights(weights); derr == nil {
		m.SnapshotWeights = w
	}
	if winningSide != nil {
		side := models.Side(*winningSide)
		m.WinningSide = &side
	}
	return &m, nil
}

func (s *Postgres) Market(ctx context.Context, id string) (*models.FlashMarket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+marketColumns+` FROM flash_markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apphttp.NotFoundErrorf("flash market %s", id)
	}
	if err != nil {
		return nil, apphttp.PersistenceError("market read").WithError(err)
	}
	return m, nil
}

func (s *Postgres) OpenMarkets(ctx context.Context) ([]*models.FlashMarket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+marketColumns+` FROM flash_markets
		WHERE is_active AND NOT is_resolved
		ORDER BY end_time`)
	if err != nil {
		return nil, apphttp.PersistenceError("open markets query").WithError(err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

func (s *Postgres) ExpiredUnresolved(ctx context.Context, now time.Time) ([]*models.FlashMarket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+marketColumns+` FROM flash_markets
		WHERE NOT is_resolved AND end_time <= $1
		ORDER BY end_time`,
		now)
	if err != nil {
		return nil, apphttp.PersistenceError("expired markets query").WithError(err)
	}
	defer rows.Close()
	return collectMarkets(rows)
}

func collectMarkets(rows pgx.Rows) ([]*models.FlashMarket, error) {
	var markets []*models.FlashMarket
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, apphttp.PersistenceError("market scan").WithError(err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func (s *Postgres) ResolveMarket(ctx context.Context, m *models.FlashMarket) error {
	var winningSide *string
	if m.WinningSide != nil {
		side := string(*m.WinningSide)
		winningSide = &side
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE flash_markets
		SET final_velocity = $2, winning_side = $3, is_active = $4, is_resolved = $5
		WHERE id = $1`,
		m.ID, m.FinalVelocity, winningSide, m.IsActive, m.IsResolved)
	if err != nil {
		return apphttp.PersistenceError("market resolve").WithError(err)
	}
	return nil
}

func (s *Postgres) UnresolvedPositions(ctx context.Context, marketID string) ([]*models.FlashPosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, market_id, user_id, direction, stake_amount, payout, profit_loss, is_resolved
		FROM flash_positions
		WHERE market_id = $1 AND NOT is_resolved`,
		marketID)
	if err != nil {
		return nil, apphttp.PersistenceError("positions query").WithError(err)
	}
	defer rows.Close()

	var positions []*models.FlashPosition
	for rows.Next() {
		var p models.FlashPosition
		var direction string
		if err := rows.Scan(&p.ID, &p.MarketID, &p.UserID, &direction, &p.StakeAmount, &p.Payout, &p.ProfitLoss, &p.IsResolved); err != nil {
			return nil, apphttp.PersistenceError("position scan").WithError(err)
		}
		p.Direction = models.Side(direction)
		positions = append(positions, &p)
	}
	return positions, rows.Err()
}

// SettlePositions writes payouts in one transaction so a market's positions
// settle exactly once.
func (s *Postgres) SettlePositions(ctx context.Context, positions []*models.FlashPosition) error {
	if len(positions) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apphttp.PersistenceError("settle begin").WithError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range positions {
		if _, err := tx.Exec(ctx, `
			UPDATE flash_positions
			SET payout = $2, profit_loss = $3, is_resolved = true
			WHERE id = $1 AND NOT is_resolved`,
			p.ID, p.Payout, p.ProfitLoss); err != nil {
			return apphttp.PersistenceError("position settle").WithError(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apphttp.PersistenceError("settle commit").WithError(err)
	}
	return nil
}
