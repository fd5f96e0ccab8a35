package model

import "time"

// Profile はユーザーごとのオンボーディング情報を表す。
// 初回ログイン時にOnboardingCompleted=falseで作成され、
// オンボーディング完了時に更新される。
type Profile struct {
	UserID              string
	OnboardingCompleted bool
	DisplayName         string
	Goal                string
	HeightCM            *float64
	WeightKG            *float64
	BirthYear           *int
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ClientSummary はコーチ向けクライアント一覧の1行を表す。
type ClientSummary struct {
	UserID              string
	Email               string
	Name                string
	DisplayName         string
	OnboardingCompleted bool
	CreatedAt           time.Time
}
