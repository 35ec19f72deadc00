package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	pkgch "SolPulse/pkg/clickhouse"
	applogger "SolPulse/pkg/logger"

	"github.com/shopspring/decimal"
)

const chInsertChunk = 2000

// ClickHouseSchema is applied by Client.InitSchema on startup.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS token_hourly_stats (
		token_address String,
		hour DateTime('UTC'),
		tx_count Int64,
		tx_volume_usd Float64,
		unique_buyers Int64,
		holders Int64,
		liquidity_usd Float64,
		inserted_at DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(inserted_at)
	ORDER BY (token_address, hour)
	PARTITION BY toYYYYMM(hour)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		token_address String,
		symbol String,
		name String,
		logo_url String,
		updated_at DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY token_address`,
	`CREATE TABLE IF NOT EXISTS token_rankings (
		ranking_time DateTime('UTC'),
		rank Int32,
		token_address String,
		score Float64,
		reason String
	) ENGINE = ReplacingMergeTree
	ORDER BY (ranking_time, rank)`,
	`CREATE TABLE IF NOT EXISTS network_hourly_stats (
		hour DateTime('UTC'),
		total_transactions Int64,
		total_blocks Int64,
		unique_wallets Int64,
		avg_cu_per_block Float64,
		inserted_at DateTime64(3, 'UTC') DEFAULT now64(3)
	) ENGINE = ReplacingMergeTree(inserted_at)
	ORDER BY hour
	PARTITION BY toYYYYMM(hour)`,
}

// ClickHouseStore implements domrepo.Store on ClickHouse. Upserts rely on
// ReplacingMergeTree; reads use FINAL.
type ClickHouseStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *applogger.Logger
}

func NewClickHouseStore(ch *pkgch.Client, l *applogger.Logger) *ClickHouseStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseStore{client: ch, db: ch.DB(), l: l}
}

var _ domrepo.Store = (*ClickHouseStore)(nil)

func (s *ClickHouseStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ClickHouseSchema)
}

func (s *ClickHouseStore) SaveSamples(ctx context.Context, samples []models.TokenMetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	clean, err := normalizeSamples(samples)
	if err != nil {
		return err
	}
	start := time.Now()
	for from := 0; from < len(clean); from += chInsertChunk {
		to := from + chInsertChunk
		if to > len(clean) {
			to = len(clean)
		}
		values := make([]string, 0, to-from)
		args := make([]interface{}, 0, (to-from)*7)
		for _, sm := range clean[from:to] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, sm.TokenAddress, sm.Hour, sm.TxCount, sm.TxVolumeUSD, sm.UniqueBuyers, sm.Holders, sm.LiquidityUSD)
		}
		q := "INSERT INTO token_hourly_stats (token_address, hour, tx_count, tx_volume_usd, unique_buyers, holders, liquidity_usd) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse save_samples error",
				applogger.String("table", "token_hourly_stats"),
				applogger.Int("rows", to-from),
				applogger.Error(err),
			)
			return fmt.Errorf("insert samples: %w", err)
		}
	}
	s.l.Debug("clickhouse save_samples ok",
		applogger.Int("rows", len(clean)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *ClickHouseStore) GetSamples(ctx context.Context, from, to time.Time) ([]models.TokenMetricSample, error) {
	const q = `
		SELECT token_address, hour, tx_count, tx_volume_usd, unique_buyers, holders, liquidity_usd
		FROM token_hourly_stats FINAL
		WHERE hour >= ? AND hour < ?
		ORDER BY hour ASC, token_address ASC
	`
	return s.querySamples(ctx, "get_samples", q, from.UTC(), to.UTC())
}

func (s *ClickHouseStore) GetTokenSamples(ctx context.Context, address string, from, to time.Time) ([]models.TokenMetricSample, error) {
	const q = `
		SELECT token_address, hour, tx_count, tx_volume_usd, unique_buyers, holders, liquidity_usd
		FROM token_hourly_stats FINAL
		WHERE token_address = ? AND hour >= ? AND hour < ?
		ORDER BY hour ASC
	`
	return s.querySamples(ctx, "get_token_samples", q, address, from.UTC(), to.UTC())
}

func (s *ClickHouseStore) querySamples(ctx context.Context, op, q string, args ...interface{}) ([]models.TokenMetricSample, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse query error",
			applogger.String("op", op),
			applogger.String("table", "token_hourly_stats"),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.TokenMetricSample, 0, 1024)
	for rows.Next() {
		var sm models.TokenMetricSample
		if err := rows.Scan(&sm.TokenAddress, &sm.Hour, &sm.TxCount, &sm.TxVolumeUSD, &sm.UniqueBuyers, &sm.Holders, &sm.LiquidityUSD); err != nil {
			s.l.Error("clickhouse scan error", applogger.String("op", op), applogger.Error(err))
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sm.Hour = sm.Hour.UTC()
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse rows error", applogger.String("op", op), applogger.Error(err))
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse query ok",
		applogger.String("op", op),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *ClickHouseStore) SaveMetadata(ctx context.Context, m models.TokenMetadata) error {
	if err := validateMetadata(m); err != nil {
		return err
	}
	const q = `INSERT INTO tokens (token_address, symbol, name, logo_url) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, m.TokenAddress, m.Symbol, m.Name, m.LogoURL); err != nil {
		s.l.Error("clickhouse save_metadata error", applogger.String("token", m.TokenAddress), applogger.Error(err))
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) GetMetadata(ctx context.Context, addresses []string) (map[string]models.TokenMetadata, error) {
	out := make(map[string]models.TokenMetadata, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}
	const q = `
		SELECT token_address, symbol, name, logo_url
		FROM tokens FINAL
		WHERE has(?, token_address)
	`
	rows, err := s.db.QueryContext(ctx, q, addresses)
	if err != nil {
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m models.TokenMetadata
		if err := rows.Scan(&m.TokenAddress, &m.Symbol, &m.Name, &m.LogoURL); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		out[m.TokenAddress] = m
	}
	return out, rows.Err()
}

func (s *ClickHouseStore) SaveRanking(ctx context.Context, snap models.RankingSnapshot) error {
	if len(snap.Rankings) == 0 {
		return nil
	}
	values := make([]string, 0, len(snap.Rankings))
	args := make([]interface{}, 0, len(snap.Rankings)*5)
	at := snap.RankingTime.UTC().Truncate(time.Second)
	for _, t := range snap.Rankings {
		reason, err := json.Marshal(t.Reason())
		if err != nil {
			return fmt.Errorf("encode reason: %w", err)
		}
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, at, int32(t.Rank), t.TokenAddress,
			decimal.NewFromFloat(t.Score).Round(2).InexactFloat64(), string(reason))
	}
	q := "INSERT INTO token_rankings (ranking_time, rank, token_address, score, reason) VALUES " + strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse save_ranking error", applogger.Time("ranking_time", at), applogger.Error(err))
		return fmt.Errorf("insert ranking: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) LatestRanking(ctx context.Context) (models.RankingSnapshot, error) {
	const q = `
		SELECT r.ranking_time, r.rank, r.token_address, r.score, r.reason, t.symbol, t.name, t.logo_url
		FROM (
			SELECT * FROM token_rankings FINAL
			WHERE ranking_time = (SELECT max(ranking_time) FROM token_rankings)
		) AS r
		LEFT JOIN (SELECT * FROM tokens FINAL) AS t ON t.token_address = r.token_address
		ORDER BY r.rank ASC
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return models.RankingSnapshot{}, fmt.Errorf("latest ranking: %w", err)
	}
	defer rows.Close()

	var snap models.RankingSnapshot
	for rows.Next() {
		var (
			t      models.ScoredToken
			rank   int32
			reason string
		)
		if err := rows.Scan(&snap.RankingTime, &rank, &t.TokenAddress, &t.Score, &reason, &t.Symbol, &t.Name, &t.LogoURL); err != nil {
			return models.RankingSnapshot{}, fmt.Errorf("scan ranking: %w", err)
		}
		t.Rank = int(rank)
		var rr models.RankingReason
		if err := json.Unmarshal([]byte(reason), &rr); err == nil {
			t.Volume24h, t.Buyers24h, t.HoldersGrowthPct = rr.Volume, rr.Buyers, rr.Growth
		}
		snap.Rankings = append(snap.Rankings, t)
	}
	if err := rows.Err(); err != nil {
		return models.RankingSnapshot{}, fmt.Errorf("rows: %w", err)
	}
	if len(snap.Rankings) == 0 {
		return models.RankingSnapshot{}, domrepo.ErrNotFound
	}
	snap.RankingTime = snap.RankingTime.UTC()
	return snap, nil
}

func (s *ClickHouseStore) SaveNetworkStats(ctx context.Context, stats []models.NetworkHourlyStat) error {
	if len(stats) == 0 {
		return nil
	}
	clean, err := normalizeNetworkStats(stats)
	if err != nil {
		return err
	}
	values := make([]string, 0, len(clean))
	args := make([]interface{}, 0, len(clean)*5)
	for _, st := range clean {
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, st.Hour, st.TotalTransactions, st.TotalBlocks, st.UniqueWallets, st.AvgCUPerBlock)
	}
	q := "INSERT INTO network_hourly_stats (hour, total_transactions, total_blocks, unique_wallets, avg_cu_per_block) VALUES " +
		strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse save_network_stats error",
			applogger.String("table", "network_hourly_stats"),
			applogger.Int("rows", len(clean)),
			applogger.Error(err),
		)
		return fmt.Errorf("insert network stats: %w", err)
	}
	return nil
}

func (s *ClickHouseStore) GetNetworkStats(ctx context.Context, from, to time.Time) ([]models.NetworkHourlyStat, error) {
	const q = `
		SELECT hour, total_transactions, total_blocks, unique_wallets, avg_cu_per_block
		FROM network_hourly_stats FINAL
		WHERE hour >= ? AND hour < ?
		ORDER BY hour ASC
	`
	return s.queryNetwork(ctx, "get_network_stats", q, from.UTC(), to.UTC())
}

func (s *ClickHouseStore) LatestNetworkStat(ctx context.Context) (models.NetworkHourlyStat, error) {
	const q = `
		SELECT hour, total_transactions, total_blocks, unique_wallets, avg_cu_per_block
		FROM network_hourly_stats FINAL
		ORDER BY hour DESC
		LIMIT 1
	`
	out, err := s.queryNetwork(ctx, "latest_network_stat", q)
	if err != nil {
		return models.NetworkHourlyStat{}, err
	}
	if len(out) == 0 {
		return models.NetworkHourlyStat{}, domrepo.ErrNotFound
	}
	return out[0], nil
}

func (s *ClickHouseStore) queryNetwork(ctx context.Context, op, q string, args ...interface{}) ([]models.NetworkHourlyStat, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse query error",
			applogger.String("op", op),
			applogger.String("table", "network_hourly_stats"),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.NetworkHourlyStat, 0, 24)
	for rows.Next() {
		var st models.NetworkHourlyStat
		if err := rows.Scan(&st.Hour, &st.TotalTransactions, &st.TotalBlocks, &st.UniqueWallets, &st.AvgCUPerBlock); err != nil {
			return nil, fmt.Errorf("scan network stat: %w", err)
		}
		st.Hour = st.Hour.UTC()
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	if err := s.client.Health(ctx); err != nil {
		return errors.Join(errors.New("clickhouse unhealthy"), err)
	}
	return nil
}

func (s *ClickHouseStore) Close() error {
	return s.client.Close()
}
