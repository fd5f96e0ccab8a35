package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/coachlink/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	var userRole string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, name, role, created_at, updated_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.Name, &userRole, &user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	user.Role = model.Role(userRole)

	return user, nil
}

// CreateWithIdentity はユーザー、identity、初期プロフィールを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Email, user.Name, string(user.Role), user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, last_login_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.LastLoginAt, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	// 初回ログイン時点ではオンボーディング未完了
	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, onboarding_completed, created_at, updated_at)
		 VALUES ($1, false, $2, $2)
		 ON CONFLICT (user_id) DO NOTHING`,
		user.ID, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// DeleteByID は指定IDのユーザーを削除する。
// 関連するidentities、profilesはCASCADE削除される。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// ListClients はクライアント役割のユーザーをオンボーディング状態付きで返す。
// プロフィールが欠けているユーザーはオンボーディング未完了として扱う。
func (r *PostgresUserRepo) ListClients(ctx context.Context) ([]model.ClientSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name,
		        COALESCE(p.display_name, ''),
		        COALESCE(p.onboarding_completed, false),
		        u.created_at
		 FROM users u
		 LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE u.role = $1
		 ORDER BY u.created_at DESC`,
		string(model.RoleClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := []model.ClientSummary{}
	for rows.Next() {
		var c model.ClientSummary
		if err := rows.Scan(&c.UserID, &c.Email, &c.Name, &c.DisplayName, &c.OnboardingCompleted, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}

	return clients, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
