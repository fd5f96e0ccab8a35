package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/coachlink/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	p := &model.Profile{}
	var (
		height      sql.NullFloat64
		weight      sql.NullFloat64
		birthYear   sql.NullInt64
		completedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, onboarding_completed, COALESCE(display_name, ''), COALESCE(goal, ''),
		        height_cm, weight_kg, birth_year, completed_at, created_at, updated_at
		 FROM profiles
		 WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.OnboardingCompleted, &p.DisplayName, &p.Goal,
		&height, &weight, &birthYear, &completedAt, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	if height.Valid {
		p.HeightCM = &height.Float64
	}
	if weight.Valid {
		p.WeightKG = &weight.Float64
	}
	if birthYear.Valid {
		y := int(birthYear.Int64)
		p.BirthYear = &y
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}

	return p, nil
}

// CompleteOnboarding はオンボーディングの回答を保存し、完了フラグを立てる。
// 初回ログイン時のプロフィール作成が欠けていた場合にも備えてUPSERTする。
func (r *PostgresProfileRepo) CompleteOnboarding(ctx context.Context, p *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, onboarding_completed, display_name, goal,
		                       height_cm, weight_kg, birth_year, completed_at, created_at, updated_at)
		 VALUES ($1, true, $2, $3, $4, $5, $6, $7, $8, $8)
		 ON CONFLICT (user_id) DO UPDATE SET
		     onboarding_completed = true,
		     display_name = EXCLUDED.display_name,
		     goal = EXCLUDED.goal,
		     height_cm = EXCLUDED.height_cm,
		     weight_kg = EXCLUDED.weight_kg,
		     birth_year = EXCLUDED.birth_year,
		     completed_at = EXCLUDED.completed_at,
		     updated_at = EXCLUDED.updated_at`,
		p.UserID, p.DisplayName, p.Goal, p.HeightCM, p.WeightKG, p.BirthYear, p.CompletedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to complete onboarding: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
