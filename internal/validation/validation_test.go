package validation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/coachlink/internal/model"
)

type sample struct {
	Name  string   `json:"display_name" validate:"required,max=5"`
	Score *float64 `json:"score" validate:"omitempty,gte=1,lte=3"`
}

func TestStruct_Valid_ReturnsNil(t *testing.T) {
	v := New()
	score := 2.0
	if err := v.Struct(context.Background(), &sample{Name: "abc", Score: &score}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestStruct_NilOptionalFieldIsSkipped(t *testing.T) {
	v := New()
	if err := v.Struct(context.Background(), &sample{Name: "abc"}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestStruct_Invalid_ReturnsAPIErrorWithJSONFieldNames(t *testing.T) {
	v := New()
	score := 9.0

	err := v.Struct(context.Background(), &sample{Name: "", Score: &score})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeValidation {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
	}
	for _, want := range []string{"display_name: required", "score: lte=3"} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message %q should contain %q", apiErr.Message, want)
		}
	}
}
