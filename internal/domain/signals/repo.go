package signals

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Insert(ctx context.Context, s *Signal) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO signals (asset, signal_type, expiry_time, entry_price, target_price, stop_loss, accuracy, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, s.Asset, string(s.Type), s.Expiry, s.EntryPrice, s.TargetPrice, s.StopLoss, s.Accuracy, s.CreatedAt)
	return row.Scan(&s.ID)
}

func (r *Repo) Recent(ctx context.Context, limit int) ([]Signal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, asset, signal_type, expiry_time, entry_price, target_price, stop_loss, accuracy, created_at
		FROM signals
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Signal
	for rows.Next() {
		var s Signal
		if err := rows.Scan(&s.ID, &s.Asset, &s.Type, &s.Expiry, &s.EntryPrice,
			&s.TargetPrice, &s.StopLoss, &s.Accuracy, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteOlderThan чистит сигналы старше окна хранения.
func (r *Repo) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM signals WHERE created_at < now() - make_interval(secs => $1)`,
		retention.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
