package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/clickhouse"
	apphttp "TrendPulse/pkg/http"
)

var trendSchema = []string{
	`CREATE TABLE IF NOT EXISTS trend_history (
		ts           DateTime64(3),
		item_id      String,
		score        Float64,
		confidence   Float64,
		factors      String,
		weights      String,
		reasoning    String,
		factors_hash String
	) ENGINE = MergeTree()
	ORDER BY (item_id, ts)
	TTL toDateTime(ts) + INTERVAL 90 DAY`,

	`CREATE TABLE IF NOT EXISTS volume_buckets (
		bucket  DateTime,
		item_id String,
		volume  Float64
	) ENGINE = SummingMergeTree(volume)
	ORDER BY (item_id, bucket)
	TTL bucket + INTERVAL 30 DAY`,
}

// ClickHouseTrendStore is the append-only trend history and per-minute
// volume log. Velocity and spike detection read from here, never from
// the system of record.
type ClickHouseTrendStore struct {
	client *clickhouse.Client
}

func NewClickHouseTrendStore(client *clickhouse.Client) drepo.TrendStore {
	return &ClickHouseTrendStore{client: client}
}

func (s *ClickHouseTrendStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, trendSchema)
}

func (s *ClickHouseTrendStore) AppendResult(ctx context.Context, r *models.TrendResult) error {
	factors, err := json.Marshal(r.Factors)
	if err != nil {
		return apphttp.PersistenceError("factors encode").WithError(err)
	}
	weights, err := encodeWeights(r.Weights)
	if err != nil {
		return apphttp.PersistenceError("weights encode").WithError(err)
	}
	_, err = s.client.DB().ExecContext(ctx, `
		INSERT INTO trend_history
			(ts, item_id, score, confidence, factors, weights, reasoning, factors_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp, r.ItemID, r.Score, r.Confidence,
		string(factors), string(weights), r.Reasoning, r.FactorsHash())
	if err != nil {
		return apphttp.PersistenceError("trend append").WithError(err)
	}
	return nil
}

// RecentPoints returns up to limit (score, ts) pairs, newest first.
func (s *ClickHouseTrendStore) RecentPoints(ctx context.Context, itemID string, limit int) ([]models.TrendPoint, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT score, ts
		FROM trend_history
		WHERE item_id = ?
		ORDER BY ts DESC
		LIMIT ?`,
		itemID, limit)
	if err != nil {
		return nil, apphttp.PersistenceError("recent points query").WithError(err)
	}
	defer rows.Close()

	var points []models.TrendPoint
	for rows.Next() {
		var p models.TrendPoint
		if err := rows.Scan(&p.Score, &p.Timestamp); err != nil {
			return nil, apphttp.PersistenceError("point scan").WithError(err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *ClickHouseTrendStore) VolumeSeries(ctx context.Context, itemID string, from, to time.Time) ([]models.VolumeBucket, error) {
	rows, err := s.client.DB().QueryContext(ctx, `
		SELECT item_id, bucket, sum(volume)
		FROM volume_buckets
		WHERE item_id = ? AND bucket >= ? AND bucket < ?
		GROUP BY item_id, bucket
		ORDER BY bucket`,
		itemID, from, to)
	if err != nil {
		return nil, apphttp.PersistenceError("volume series query").WithError(err)
	}
	defer rows.Close()
	return scanBuckets(rows)
}

// TopVolumeSeries returns the volume series of the highest-volume items in
// the window, keyed by item, excluding the item being scored. Feeds the
// cross-market correlation factor.
func (s *ClickHouseTrendStore) TopVolumeSeries(ctx context.Context, excludeItemID string, from, to time.Time, limit int) (map[string][]models.VolumeBucket, error) {
	topRows, err := s.client.DB().QueryContext(ctx, `
		SELECT item_id
		FROM volume_buckets
		WHERE item_id != ? AND bucket >= ? AND bucket < ?
		GROUP BY item_id
		ORDER BY sum(volume) DESC
		LIMIT ?`,
		excludeItemID, from, to, limit)
	if err != nil {
		return nil, apphttp.PersistenceError("top items query").WithError(err)
	}
	var ids []string
	for topRows.Next() {
		var id string
		if err := topRows.Scan(&id); err != nil {
			topRows.Close()
			return nil, apphttp.PersistenceError("top item scan").WithError(err)
		}
		ids = append(ids, id)
	}
	topRows.Close()
	if err := topRows.Err(); err != nil {
		return nil, apphttp.PersistenceError("top items query").WithError(err)
	}
	if len(ids) == 0 {
		return map[string][]models.VolumeBucket{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+2)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, from, to)

	rows, err := s.client.DB().QueryContext(ctx, fmt.Sprintf(`
		SELECT item_id, bucket, sum(volume)
		FROM volume_buckets
		WHERE item_id IN (%s) AND bucket >= ? AND bucket < ?
		GROUP BY item_id, bucket
		ORDER BY item_id, bucket`, placeholders),
		args...)
	if err != nil {
		return nil, apphttp.PersistenceError("top series query").WithError(err)
	}
	defer rows.Close()

	buckets, err := scanBuckets(rows)
	if err != nil {
		return nil, err
	}
	series := make(map[string][]models.VolumeBucket, len(ids))
	for _, b := range buckets {
		series[b.ItemID] = append(series[b.ItemID], b)
	}
	return series, nil
}

func scanBuckets(rows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
}) ([]models.VolumeBucket, error) {
	var buckets []models.VolumeBucket
	for rows.Next() {
		var b models.VolumeBucket
		if err := rows.Scan(&b.ItemID, &b.Bucket, &b.Volume); err != nil {
			return nil, apphttp.PersistenceError("bucket scan").WithError(err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

func (s *ClickHouseTrendStore) AddVolume(ctx context.Context, itemID string, bucket time.Time, volume float64) error {
	_, err := s.client.DB().ExecContext(ctx, `
		INSERT INTO volume_buckets (bucket, item_id, volume) VALUES (?, ?, ?)`,
		bucket, itemID, volume)
	if err != nil {
		return apphttp.PersistenceError("volume insert").WithError(err)
	}
	return nil
}

func (s *ClickHouseTrendStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseTrendStore) Close() error {
	return s.client.Close()
}
