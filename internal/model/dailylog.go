package model

import "time"

// DailyLog はクライアントが1日1件記録する体調ログを表す。
// 数値項目は未入力を許容するためポインタで保持する。
type DailyLog struct {
	ID         string
	UserID     string
	LogDate    time.Time // 日付のみ意味を持つ（UTC 00:00）
	WeightKG   *float64
	SleepHours *float64
	Energy     *int // 1〜5
	Appetite   *int // 1〜5
	Notes      string // サニタイズ済みHTML
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
