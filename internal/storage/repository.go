package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	upsertRefreshSQL = `INSERT INTO refresh_samples (
        bucket_ts,
        regime,
        mean_iv,
        max_ivr,
        fear_count,
        signal_count,
        client_count,
        risk_count,
        status,
        error
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
    )
    ON CONFLICT (bucket_ts) DO UPDATE
    SET
        regime       = EXCLUDED.regime,
        mean_iv      = EXCLUDED.mean_iv,
        max_ivr      = EXCLUDED.max_ivr,
        fear_count   = EXCLUDED.fear_count,
        signal_count = EXCLUDED.signal_count,
        client_count = EXCLUDED.client_count,
        risk_count   = EXCLUDED.risk_count,
        status       = EXCLUDED.status,
        error        = EXCLUDED.error;`

	listRefreshesBetweenSQL = `SELECT
        bucket_ts, regime, mean_iv, max_ivr, fear_count,
        signal_count, client_count, risk_count, status, error, created_at
    FROM refresh_samples
    WHERE bucket_ts >= $1
      AND bucket_ts < $2
    ORDER BY bucket_ts;`

	listRecentRefreshesSQL = `SELECT
        bucket_ts, regime, mean_iv, max_ivr, fear_count,
        signal_count, client_count, risk_count, status, error, created_at
    FROM refresh_samples
    ORDER BY bucket_ts DESC
    LIMIT $1;`

	markRefreshErroredSQL = `INSERT INTO refresh_samples (
        bucket_ts, regime, status, error
    ) VALUES (
        $1, 'UNKNOWN', 'errored', $2
    )
    ON CONFLICT (bucket_ts) DO UPDATE
    SET status = 'errored', error = EXCLUDED.error;`

	upsertClientStatusSQL = `INSERT INTO client_statuses (
        bucket_ts, client_id, name, risk_label, status, vol_ratio, misaligned, drift_summary
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8
    )
    ON CONFLICT (bucket_ts, client_id) DO UPDATE
    SET name          = EXCLUDED.name,
        risk_label    = EXCLUDED.risk_label,
        status        = EXCLUDED.status,
        vol_ratio     = EXCLUDED.vol_ratio,
        misaligned    = EXCLUDED.misaligned,
        drift_summary = EXCLUDED.drift_summary;`

	latestClientStatusesSQL = `SELECT DISTINCT ON (client_id)
        client_id, status
    FROM client_statuses
    ORDER BY client_id, bucket_ts DESC;`

	insertAlertSQL = `INSERT INTO risk_alerts (
        bucket_ts, client_id, client_name, status, prev_status, vol_ratio, channels
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (bucket_ts, client_id) DO UPDATE
    SET status      = EXCLUDED.status,
        prev_status = EXCLUDED.prev_status,
        vol_ratio   = EXCLUDED.vol_ratio,
        channels    = EXCLUDED.channels
    RETURNING id, bucket_ts, client_id, client_name, status, prev_status, vol_ratio, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id, bucket_ts, client_id, client_name, status, prev_status, vol_ratio, channels, created_at
    FROM risk_alerts
    ORDER BY created_at DESC
    LIMIT $1;`
)

// RefreshStore defines operations for refresh history persistence.
type RefreshStore interface {
	UpsertRefresh(ctx context.Context, record RefreshRecord) error
	UpsertClientStatuses(ctx context.Context, statuses []ClientStatusRecord) error
	ListRecentRefreshes(ctx context.Context, limit int) ([]RefreshRecord, error)
	ListRefreshesBetween(ctx context.Context, from, to time.Time) ([]RefreshRecord, error)
	LatestClientStatuses(ctx context.Context) (map[string]string, error)
	MarkRefreshErrored(ctx context.Context, bucket time.Time, errMsg string) error
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// Store aggregates access to refresh history and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertRefresh writes one refresh sample keyed by bucket timestamp.
func (s *Store) UpsertRefresh(ctx context.Context, record RefreshRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, upsertRefreshSQL,
		record.Bucket,
		record.Regime,
		toNullDecimal(record.MeanIV),
		toNullDecimal(record.MaxIVR),
		record.FearCount,
		record.SignalCount,
		record.ClientCount,
		record.RiskCount,
		record.Status,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("upsert refresh sample: %w", err)
	}
	return nil
}

// UpsertClientStatuses writes the per-client derived statuses of a refresh.
func (s *Store) UpsertClientStatuses(ctx context.Context, statuses []ClientStatusRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, st := range statuses {
		batch.Queue(upsertClientStatusSQL,
			st.Bucket,
			st.ClientID,
			st.Name,
			st.RiskLabel,
			st.Status,
			toNullDecimal(st.VolRatio),
			st.Misaligned,
			st.DriftSummary,
		)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert client statuses: %w", err)
	}
	return nil
}

// ListRecentRefreshes returns the newest samples first.
func (s *Store) ListRecentRefreshes(ctx context.Context, limit int) ([]RefreshRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentRefreshesSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent refreshes: %w", err)
	}
	defer rows.Close()

	return scanRefreshRows(rows)
}

// ListRefreshesBetween returns samples in [from, to), oldest first.
func (s *Store) ListRefreshesBetween(ctx context.Context, from, to time.Time) ([]RefreshRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRefreshesBetweenSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("list refreshes between: %w", err)
	}
	defer rows.Close()

	return scanRefreshRows(rows)
}

// LatestClientStatuses returns the most recent persisted status per client.
func (s *Store) LatestClientStatuses(ctx context.Context) (map[string]string, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, latestClientStatusesSQL)
	if err != nil {
		return nil, fmt.Errorf("latest client statuses: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]string)
	for rows.Next() {
		var clientID, status string
		if err := rows.Scan(&clientID, &status); err != nil {
			return nil, fmt.Errorf("scan client status: %w", err)
		}
		statuses[clientID] = status
	}
	return statuses, rows.Err()
}

// MarkRefreshErrored records a bucket whose refresh cycle failed, creating
// the row when the cycle never produced a sample.
func (s *Store) MarkRefreshErrored(ctx context.Context, bucket time.Time, errMsg string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, markRefreshErroredSQL, bucket, errMsg); err != nil {
		return fmt.Errorf("mark refresh errored: %w", err)
	}
	return nil
}

// InsertAlert records an emitted risk alert and returns the stored row.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	var (
		stored AlertRecord
		ratio  decimal.NullDecimal
	)
	err = pool.QueryRow(ctx, insertAlertSQL,
		alert.Bucket,
		alert.ClientID,
		alert.ClientName,
		alert.Status,
		alert.PrevStatus,
		toNullDecimal(alert.VolRatio),
		alert.Channels,
	).Scan(
		&stored.ID,
		&stored.Bucket,
		&stored.ClientID,
		&stored.ClientName,
		&stored.Status,
		&stored.PrevStatus,
		&ratio,
		&stored.Channels,
		&stored.CreatedAt,
	)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", err)
	}
	stored.VolRatio = fromNullDecimal(ratio)
	return stored, nil
}

// ListRecentAlerts returns the newest alerts first.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, listRecentAlertsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []AlertRecord
	for rows.Next() {
		var (
			alert AlertRecord
			ratio decimal.NullDecimal
		)
		if err := rows.Scan(
			&alert.ID,
			&alert.Bucket,
			&alert.ClientID,
			&alert.ClientName,
			&alert.Status,
			&alert.PrevStatus,
			&ratio,
			&alert.Channels,
			&alert.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alert.VolRatio = fromNullDecimal(ratio)
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanRefreshRows(rows pgx.Rows) ([]RefreshRecord, error) {
	var records []RefreshRecord
	for rows.Next() {
		var (
			record RefreshRecord
			meanIV decimal.NullDecimal
			maxIVR decimal.NullDecimal
		)
		if err := rows.Scan(
			&record.Bucket,
			&record.Regime,
			&meanIV,
			&maxIVR,
			&record.FearCount,
			&record.SignalCount,
			&record.ClientCount,
			&record.RiskCount,
			&record.Status,
			&record.Error,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan refresh sample: %w", err)
		}
		record.MeanIV = fromNullDecimal(meanIV)
		record.MaxIVR = fromNullDecimal(maxIVR)
		records = append(records, record)
	}
	return records, rows.Err()
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	value := d.Decimal
	return &value
}

var _ RefreshStore = (*Store)(nil)
var _ AlertStore = (*Store)(nil)
