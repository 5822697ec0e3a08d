package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tc := range cases {
		if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
			t.Fatalf("kind %d: expected status %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestGetKindThroughWrappedChain(t *testing.T) {
	inner := Conflict("move transaction kept losing")
	outer := fmt.Errorf("move lead: %w", inner)

	if got := GetKind(outer); got != KindConflict {
		t.Fatalf("expected KindConflict through wrap, got %d", got)
	}
	if !Is(outer, KindConflict) {
		t.Fatal("Is should match the wrapped kind")
	}
}

func TestGetKindPlainError(t *testing.T) {
	if got := GetKind(errors.New("plain")); got != KindUnknown {
		t.Fatalf("expected KindUnknown for plain error, got %d", got)
	}
}

func TestErrorStringIncludesOp(t *testing.T) {
	err := NotFound("stage not found").WithOp("kanban.move")
	if err.Error() != "kanban.move: stage not found" {
		t.Fatalf("unexpected error string: %q", err.Error())
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindInternal, "storage failure", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the wrapped cause")
	}
}
