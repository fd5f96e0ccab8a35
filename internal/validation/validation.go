// Package validation はリクエスト入力の検証を提供する。
// go-playground/validatorのstructタグで検証し、失敗はAPIErrorに変換する。
package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/coachlink/internal/model"
)

// Validator はstructタグによる入力検証器。並行利用できる。
type Validator struct {
	v *validator.Validate
}

// New はValidatorを生成する。エラー中のフィールド名にはjsonタグの名前を使う。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Struct はpayloadを検証する。検証失敗の場合はVALIDATION_FAILEDのAPIErrorを返す。
func (v *Validator) Struct(ctx context.Context, payload any) error {
	err := v.v.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validation failed: %w", err)
	}
	return model.NewValidationError(Detail(verrs))
}

// Detail は検証エラーを "field: rule" のカンマ区切りに整形する。
func Detail(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fe.Field()+": "+rule)
	}
	return strings.Join(parts, ", ")
}
