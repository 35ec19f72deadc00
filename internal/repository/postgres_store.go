package repository

import (
	"context"
	"fmt"
	"time"

	"SolPulse/internal/domain/models"
	domrepo "SolPulse/internal/domain/repository"
	"SolPulse/internal/repository/migrations"
	applogger "SolPulse/pkg/logger"
	"SolPulse/pkg/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// PostgresStore implements domrepo.Store on PostgreSQL.
type PostgresStore struct {
	pool *postgres.Pool
	l    *applogger.Logger
}

func NewPostgresStore(pool *postgres.Pool, l *applogger.Logger) *PostgresStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &PostgresStore{pool: pool, l: l}
}

var _ domrepo.Store = (*PostgresStore)(nil)

// Init applies the embedded schema.
func (s *PostgresStore) Init(ctx context.Context) error {
	applied, err := s.pool.Migrate(ctx, migrations.PostgresFS, migrations.PostgresDir)
	if err != nil {
		s.l.Error("postgres migrations failed", applogger.Error(err))
		return err
	}
	s.l.Info("postgres schema ready", applogger.Strings("migrations", applied))
	return nil
}

func (s *PostgresStore) SaveSamples(ctx context.Context, samples []models.TokenMetricSample) error {
	if len(samples) == 0 {
		return nil
	}
	clean, err := normalizeSamples(samples)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO token_hourly_stats (
			token_address, hour, tx_count, tx_volume_usd, unique_buyers, holders, liquidity_usd
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (token_address, hour) DO UPDATE SET
			tx_count = EXCLUDED.tx_count,
			tx_volume_usd = EXCLUDED.tx_volume_usd,
			unique_buyers = EXCLUDED.unique_buyers,
			holders = EXCLUDED.holders,
			liquidity_usd = EXCLUDED.liquidity_usd
	`
	start := time.Now()
	batch := &pgx.Batch{}
	for _, sm := range clean {
		batch.Queue(q, sm.TokenAddress, sm.Hour, sm.TxCount, sm.TxVolumeUSD, sm.UniqueBuyers, sm.Holders, sm.LiquidityUSD)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range clean {
		if _, err := br.Exec(); err != nil {
			s.l.Error("postgres save_samples error",
				applogger.String("table", "token_hourly_stats"),
				applogger.Int("rows", len(clean)),
				applogger.Error(err),
			)
			return fmt.Errorf("upsert samples: %w", err)
		}
	}
	s.l.Debug("postgres save_samples ok",
		applogger.Int("rows", len(clean)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *PostgresStore) GetSamples(ctx context.Context, from, to time.Time) ([]models.TokenMetricSample, error) {
	const q = `
		SELECT token_address, hour, tx_count, tx_volume_usd, unique_buyers, holders, liquidity_usd
		FROM token_hourly_stats
		WHERE hour >= $1 AND hour < $2
		ORDER BY hour ASC, token_address ASC
	`
	return s.querySamples(ctx, "get_samples", q, from, to)
}

func (s *PostgresStore) GetTokenSamples(ctx context.Context, address string, from, to time.Time) ([]models.TokenMetricSample, error) {
	const q = `
		SELECT token_address, hour, tx_count, tx_volume_usd, unique_buyers, holders, liquidity_usd
		FROM token_hourly_stats
		WHERE token_address = $3 AND hour >= $1 AND hour < $2
		ORDER BY hour ASC
	`
	return s.querySamples(ctx, "get_token_samples", q, from, to, address)
}

func (s *PostgresStore) querySamples(ctx context.Context, op, q string, args ...interface{}) ([]models.TokenMetricSample, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		s.l.Error("postgres query error",
			applogger.String("op", op),
			applogger.String("table", "token_hourly_stats"),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]models.TokenMetricSample, 0, 256)
	for rows.Next() {
		var sm models.TokenMetricSample
		if err := rows.Scan(&sm.TokenAddress, &sm.Hour, &sm.TxCount, &sm.TxVolumeUSD, &sm.UniqueBuyers, &sm.Holders, &sm.LiquidityUSD); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sm.Hour = sm.Hour.UTC()
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("postgres rows error", applogger.String("op", op), applogger.Error(err))
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("postgres query ok",
		applogger.String("op", op),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *PostgresStore) SaveMetadata(ctx context.Context, m models.TokenMetadata) error {
	if err := validateMetadata(m); err != nil {
		return err
	}
	const q = `
		INSERT INTO tokens (token_address, symbol, name, logo_url, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (token_address) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			name = EXCLUDED.name,
			logo_url = EXCLUDED.logo_url,
			updated_at = NOW()
	`
	if _, err := s.pool.Exec(ctx, q, m.TokenAddress, m.Symbol, m.Name, m.LogoURL); err != nil {
		s.l.Error("postgres save_metadata error", applogger.String("token", m.TokenAddress), applogger.Error(err))
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMetadata(ctx context.Context, addresses []string) (map[string]models.TokenMetadata, error) {
	out := make(map[string]models.TokenMetadata, len(addresses))
	if len(addresses) == 0 {
		return out, nil
	}
	const q = `
		SELECT token_address, symbol, name, logo_url
		FROM tokens
		WHERE token_address = ANY($1)
	`
	rows, err := s.pool.Query(ctx, q, addresses)
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

// SaveRanking writes every row of the snapshot in one transaction.
func (s *PostgresStore) SaveRanking(ctx context.Context, snap models.RankingSnapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const q = `
		INSERT INTO token_rankings (ranking_time, rank, token_address, score, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ranking_time, rank) DO UPDATE SET
			token_address = EXCLUDED.token_address,
			score = EXCLUDED.score,
			reason = EXCLUDED.reason
	`
	at := snap.RankingTime.UTC()
	for _, t := range snap.Rankings {
		score := decimal.NewFromFloat(t.Score).Round(2).InexactFloat64()
		if _, err := tx.Exec(ctx, q, at, t.Rank, t.TokenAddress, score, t.Reason()); err != nil {
			s.l.Error("postgres save_ranking error",
				applogger.Time("ranking_time", at),
				applogger.Int("rank", t.Rank),
				applogger.Error(err),
			)
			return fmt.Errorf("insert ranking row: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ranking: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestRanking(ctx context.Context) (models.RankingSnapshot, error) {
	const q = `
		SELECT r.ranking_time, r.rank, r.token_address, r.score::float8, r.reason,
		       COALESCE(t.symbol, ''), COALESCE(t.name, ''), COALESCE(t.logo_url, '')
		FROM token_rankings r
		LEFT JOIN tokens t ON t.token_address = r.token_address
		WHERE r.ranking_time = (SELECT MAX(ranking_time) FROM token_rankings)
		ORDER BY r.rank ASC
	`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return models.RankingSnapshot{}, fmt.Errorf("latest ranking: %w", err)
	}
	defer rows.Close()

	var snap models.RankingSnapshot
	for rows.Next() {
		var (
			t      models.ScoredToken
			reason models.RankingReason
		)
		if err := rows.Scan(&snap.RankingTime, &t.Rank, &t.TokenAddress, &t.Score, &reason, &t.Symbol, &t.Name, &t.LogoURL); err != nil {
			return models.RankingSnapshot{}, fmt.Errorf("scan ranking: %w", err)
		}
		t.Volume24h = reason.Volume
		t.Buyers24h = reason.Buyers
		t.HoldersGrowthPct = reason.Growth
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

func (s *PostgresStore) SaveNetworkStats(ctx context.Context, stats []models.NetworkHourlyStat) error {
	if len(stats) == 0 {
		return nil
	}
	clean, err := normalizeNetworkStats(stats)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO network_hourly_stats (hour, total_transactions, total_blocks, unique_wallets, avg_cu_per_block)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hour) DO UPDATE SET
			total_transactions = EXCLUDED.total_transactions,
			total_blocks = EXCLUDED.total_blocks,
			unique_wallets = EXCLUDED.unique_wallets,
			avg_cu_per_block = EXCLUDED.avg_cu_per_block
	`
	batch := &pgx.Batch{}
	for _, st := range clean {
		batch.Queue(q, st.Hour, st.TotalTransactions, st.TotalBlocks, st.UniqueWallets, st.AvgCUPerBlock)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range clean {
		if _, err := br.Exec(); err != nil {
			s.l.Error("postgres save_network_stats error",
				applogger.String("table", "network_hourly_stats"),
				applogger.Int("rows", len(clean)),
				applogger.Error(err),
			)
			return fmt.Errorf("upsert network stats: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetNetworkStats(ctx context.Context, from, to time.Time) ([]models.NetworkHourlyStat, error) {
	const q = `
		SELECT hour, total_transactions, total_blocks, unique_wallets, avg_cu_per_block
		FROM network_hourly_stats
		WHERE hour >= $1 AND hour < $2
		ORDER BY hour ASC
	`
	rows, err := s.pool.Query(ctx, q, from, to)
	if err != nil {
		s.l.Error("postgres query error",
			applogger.String("op", "get_network_stats"),
			applogger.String("table", "network_hourly_stats"),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get_network_stats: %w", err)
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

func (s *PostgresStore) LatestNetworkStat(ctx context.Context) (models.NetworkHourlyStat, error) {
	const q = `
		SELECT hour, total_transactions, total_blocks, unique_wallets, avg_cu_per_block
		FROM network_hourly_stats
		ORDER BY hour DESC
		LIMIT 1
	`
	var st models.NetworkHourlyStat
	err := s.pool.QueryRow(ctx, q).Scan(&st.Hour, &st.TotalTransactions, &st.TotalBlocks, &st.UniqueWallets, &st.AvgCUPerBlock)
	if postgres.IsNotFound(err) {
		return models.NetworkHourlyStat{}, domrepo.ErrNotFound
	}
	if err != nil {
		return models.NetworkHourlyStat{}, fmt.Errorf("latest network stat: %w", err)
	}
	st.Hour = st.Hour.UTC()
	return st, nil
}

func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
