// Package role はメールアドレスからユーザーの役割を決定する。
package role

import (
	"strings"

	"github.com/hitoshi/coachlink/internal/model"
)

// Resolver は設定されたコーチのメールアドレス一覧をもとに役割を決定する。
// 状態を持たず、同じ入力に対して常に同じ結果を返す。
type Resolver struct {
	coaches map[string]struct{}
}

// NewResolver はResolverを生成する。
// メールアドレスは前後の空白を除去し、小文字に正規化して保持する。空要素は無視する。
func NewResolver(coachEmails []string) *Resolver {
	coaches := make(map[string]struct{}, len(coachEmails))
	for _, e := range coachEmails {
		if n := normalize(e); n != "" {
			coaches[n] = struct{}{}
		}
	}
	return &Resolver{coaches: coaches}
}

// Resolve はメールアドレスに対応する役割を返す。
// コーチ一覧に完全一致する場合のみRoleCoach、それ以外はすべてRoleClient。
func (r *Resolver) Resolve(email string) model.Role {
	n := normalize(email)
	if n == "" {
		return model.RoleClient
	}
	if _, ok := r.coaches[n]; ok {
		return model.RoleCoach
	}
	return model.RoleClient
}

// IsCoach はメールアドレスがコーチのものかどうかを返す。
func (r *Resolver) IsCoach(email string) bool {
	return r.Resolve(email) == model.RoleCoach
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
