package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const userColumns = `id, telegram_id, username, first_name, last_name, platform_id, status, created_at, last_activity`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.PlatformID, &u.Status, &u.CreatedAt, &u.LastActivity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// UpsertFromTelegram создаёт пользователя со статусом new либо обновляет только
// профильные поля. Статус и platform_id повторный /start не трогает.
func (r *Repo) UpsertFromTelegram(ctx context.Context, tg Telegram) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (telegram_id)
		DO UPDATE SET
			username      = EXCLUDED.username,
			first_name    = EXCLUDED.first_name,
			last_name     = EXCLUDED.last_name,
			last_activity = now()
		RETURNING `+userColumns, tg.ID, tg.Username, tg.FirstName, tg.LastName)
	return scanUser(row)
}

func (r *Repo) GetByTelegramID(ctx context.Context, tgID int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, tgID)
	return scanUser(row)
}

func (r *Repo) GetByPlatformID(ctx context.Context, platformID string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE platform_id = $1`, platformID)
	return scanUser(row)
}

func (r *Repo) List(ctx context.Context, f Filter) ([]User, error) {
	q := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	switch f {
	case FilterPending:
		q = `SELECT ` + userColumns + ` FROM users WHERE status = 'pending' ORDER BY created_at DESC`
	case FilterConfirmed:
		q = `SELECT ` + userColumns + ` FROM users WHERE status = 'confirmed' ORDER BY created_at DESC`
	}

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
			&u.PlatformID, &u.Status, &u.CreatedAt, &u.LastActivity); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetPlatformID сохраняет platform_id и переводит пользователя в pending.
// Уникальность обеспечивает частичный индекс users_platform_id_uq:
// нарушение отдаём как ErrPlatformIDTaken, а не как сырую ошибку БД.
func (r *Repo) SetPlatformID(ctx context.Context, tgID int64, platformID string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET platform_id = $2, status = 'pending', last_activity = now()
		WHERE telegram_id = $1
		RETURNING `+userColumns, tgID, platformID)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrPlatformIDTaken
		}
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *Repo) SetStatus(ctx context.Context, tgID int64, st Status) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET status = $2, last_activity = now()
		WHERE telegram_id = $1
		RETURNING `+userColumns, tgID, string(st))

	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (r *Repo) TouchActivity(ctx context.Context, tgID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_activity = now() WHERE telegram_id = $1`, tgID)
	return err
}
