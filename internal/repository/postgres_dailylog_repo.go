package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/coachlink/internal/model"
)

// PostgresDailyLogRepo はPostgreSQLを使用した日次ログリポジトリ。
type PostgresDailyLogRepo struct {
	db *sql.DB
}

// NewPostgresDailyLogRepo はPostgresDailyLogRepoを生成する。
func NewPostgresDailyLogRepo(db *sql.DB) *PostgresDailyLogRepo {
	return &PostgresDailyLogRepo{db: db}
}

const dailyLogColumns = `id, user_id, log_date, weight_kg, sleep_hours, energy, appetite, notes, created_at, updated_at`

// Upsert は(user_id, log_date)単位でログを作成または上書きする。
// 既存レコードがある場合はIDとcreated_atを維持する。
func (r *PostgresDailyLogRepo) Upsert(ctx context.Context, l *model.DailyLog) (*model.DailyLog, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO daily_logs (`+dailyLogColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 ON CONFLICT (user_id, log_date) DO UPDATE SET
		     weight_kg = EXCLUDED.weight_kg,
		     sleep_hours = EXCLUDED.sleep_hours,
		     energy = EXCLUDED.energy,
		     appetite = EXCLUDED.appetite,
		     notes = EXCLUDED.notes,
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+dailyLogColumns,
		l.ID, l.UserID, l.LogDate, l.WeightKG, l.SleepHours, l.Energy, l.Appetite, l.Notes, l.UpdatedAt,
	)

	saved, err := scanDailyLog(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert daily log: %w", err)
	}
	return saved, nil
}

// ListByUser は指定ユーザーのfrom以上to以下の日付のログを日付の新しい順に返す。
func (r *PostgresDailyLogRepo) ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*model.DailyLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+dailyLogColumns+`
		 FROM daily_logs
		 WHERE user_id = $1 AND log_date BETWEEN $2 AND $3
		 ORDER BY log_date DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily logs: %w", err)
	}
	defer rows.Close()

	logs := []*model.DailyLog{}
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily logs: %w", err)
	}

	return logs, nil
}

// DeleteByUserID はユーザーの全ログを削除する。
func (r *PostgresDailyLogRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM daily_logs WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete daily logs: %w", err)
	}
	return nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDailyLog(s rowScanner) (*model.DailyLog, error) {
	l := &model.DailyLog{}
	var (
		weight   sql.NullFloat64
		sleep    sql.NullFloat64
		energy   sql.NullInt64
		appetite sql.NullInt64
		notes    sql.NullString
	)
	if err := s.Scan(&l.ID, &l.UserID, &l.LogDate, &weight, &sleep, &energy, &appetite, &notes, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}

	if weight.Valid {
		l.WeightKG = &weight.Float64
	}
	if sleep.Valid {
		l.SleepHours = &sleep.Float64
	}
	if energy.Valid {
		v := int(energy.Int64)
		l.Energy = &v
	}
	if appetite.Valid {
		v := int(appetite.Int64)
		l.Appetite = &v
	}
	l.Notes = notes.String

	return l, nil
}

// compile-time interface check
var _ DailyLogRepository = (*PostgresDailyLogRepo)(nil)
