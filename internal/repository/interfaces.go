// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/coachlink/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザー、identity、初期プロフィールを同一トランザクションで作成する。
	// プロフィールはオンボーディング未完了の状態で作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、profilesはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error

	// ListClients はクライアント役割のユーザーをオンボーディング状態付きで返す。
	// 作成日時の新しい順に並べる。
	ListClients(ctx context.Context) ([]model.ClientSummary, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)

	// TouchLastLogin はidentityの最終ログイン日時を更新する。
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションをユーザーのメールアドレスと役割付きで取得する。
	// 期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// ProfileRepository はプロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// CompleteOnboarding はオンボーディングの回答を保存し、完了フラグを立てる。
	// プロフィールが存在しない場合は作成する。
	CompleteOnboarding(ctx context.Context, profile *model.Profile) error
}

// DailyLogRepository は日次ログの永続化インターフェース。
type DailyLogRepository interface {
	// Upsert は(user_id, log_date)単位でログを作成または上書きする。
	// 保存後のレコード（IDと作成日時を含む）を返す。
	Upsert(ctx context.Context, log *model.DailyLog) (*model.DailyLog, error)

	// ListByUser は指定ユーザーのfrom以上to以下の日付のログを日付の新しい順に返す。
	ListByUser(ctx context.Context, userID string, from, to time.Time) ([]*model.DailyLog, error)

	// DeleteByUserID はユーザーの全ログを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
