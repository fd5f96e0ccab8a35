// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/coachlink/internal/model"
	"github.com/hitoshi/coachlink/internal/repository"
)

// DailyLogDeleter は日次ログの一括削除インターフェース。
type DailyLogDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// SessionInvalidator はプロセス内にキャッシュされたセッションを破棄する。
type SessionInvalidator interface {
	InvalidateUser(userID string)
}

// Service はユーザー管理のサービス層。
// 退会処理とコーチ向けのクライアント一覧を提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	logDeleter  DailyLogDeleter
	invalidator SessionInvalidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	logDeleter DailyLogDeleter,
	invalidator SessionInvalidator,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		logDeleter:  logDeleter,
		invalidator: invalidator,
	}
}

// ListClients はコーチ向けにクライアントの一覧を返す。
func (s *Service) ListClients(ctx context.Context, viewer *model.Session) ([]model.ClientSummary, error) {
	if viewer == nil {
		return nil, model.NewUnauthorizedError()
	}
	if viewer.Role != model.RoleCoach {
		return nil, model.NewForbiddenRoleError(viewer.Role)
	}

	clients, err := s.userRepo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("クライアント一覧の取得に失敗しました: %w", err)
	}
	return clients, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: daily_logs → sessions → user（+ CASCADE: identities, profiles）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
		slog.String("role", string(user.Role)),
	)

	// 1. 日次ログを削除
	if s.logDeleter != nil {
		if err := s.logDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("日次ログの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateUser(userID)
	}

	// 3. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
