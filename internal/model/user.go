// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。coach と client の2種類のみ。
type Role string

const (
	// RoleCoach はクライアントを指導するコーチ。
	RoleCoach Role = "coach"
	// RoleClient は日々の記録を報告するクライアント。
	RoleClient Role = "client"
)

// Valid はRoleが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleCoach || r == RoleClient
}

// User はサービス利用ユーザーを表す。
// Roleはユーザー作成時に1回だけ決定し、以降は変更しない。
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	LastLoginAt    *time.Time
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// EmailとRoleはusersテーブルから結合して読み出す読み取り専用の値。
type Session struct {
	ID        string
	UserID    string
	Email     string
	Role      Role
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
