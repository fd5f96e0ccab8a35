// Package routing は認証結果から遷移先画面を決定するセッションルーターを提供する。
//
// 判定は (セッションの有無, 役割, オンボーディング完了フラグ) の3値だけで決まり、
// 同じ入力に対して常に同じ遷移先を返す。
package routing

import (
	"net/url"
	"strings"

	"github.com/hitoshi/coachlink/internal/model"
)

// Destination はリダイレクト先となる画面のパス。
type Destination string

const (
	// DestinationLogin はログイン画面。
	DestinationLogin Destination = "/login"
	// DestinationOnboarding はオンボーディング画面。
	DestinationOnboarding Destination = "/onboarding"
	// DestinationCoachDashboard はコーチ用ダッシュボード。
	DestinationCoachDashboard Destination = "/coach/dashboard"
	// DestinationClientDashboard はクライアント用ダッシュボード。
	DestinationClientDashboard Destination = "/client/dashboard"
)

// DefaultFallback はコード交換失敗時に呼び出し側の指定がない場合の遷移先。
const DefaultFallback = DestinationOnboarding

// String はパス文字列を返す。
func (d Destination) String() string {
	return string(d)
}

// Input は判定テーブルへの入力。
type Input struct {
	SessionPresent     bool
	Role               model.Role
	OnboardingComplete bool
}

// Decide は判定テーブルを評価して遷移先を返す。上から順に最初に一致した規則を採用する。
//
//	セッションなし                      → ログイン画面
//	コーチ（オンボーディングは無視）    → コーチ用ダッシュボード
//	クライアント・オンボーディング未完了 → オンボーディング画面
//	クライアント・オンボーディング完了   → クライアント用ダッシュボード
//
// coach以外の役割はすべてclientとして扱う。
func Decide(in Input) Destination {
	switch {
	case !in.SessionPresent:
		return DestinationLogin
	case in.Role == model.RoleCoach:
		return DestinationCoachDashboard
	case !in.OnboardingComplete:
		return DestinationOnboarding
	default:
		return DestinationClientDashboard
	}
}

// IsLocalPath はrawが同一オリジン内の絶対パスかどうかを判定する。
// スキームやホストを含むURL、"//"で始まるプロトコル相対URL、
// バックスラッシュや制御文字を含む値は拒否する。
func IsLocalPath(raw string) bool {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return false
	}
	if strings.ContainsAny(raw, "\\\r\n\t") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}

// normalizeFallback は呼び出し側指定のフォールバック先を検証する。
// 未指定または同一オリジン外の値の場合はdefを返す。
func normalizeFallback(raw string, def Destination) Destination {
	if raw == "" || !IsLocalPath(raw) {
		return def
	}
	return Destination(raw)
}
