package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "forbidden passes through", err: NewForbidden("no"), code: CodeForbidden, status: http.StatusForbidden},
		{name: "wrapped conflict", err: fmt.Errorf("undo: %w", NewConflict("nothing to undo", nil)), code: CodeConflict, status: http.StatusConflict},
		{name: "no rows", err: pgx.ErrNoRows, code: CodeNotFound, status: http.StatusNotFound},
		{name: "inconsistency", err: NewDataInconsistency("gone", nil), code: CodeDataInconsistency, status: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), code: CodeInternal, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.code {
				t.Fatalf("Code = %q, want %q", got.Code, tt.code)
			}
			if got.HTTPStatus != tt.status {
				t.Fatalf("HTTPStatus = %d, want %d", got.HTTPStatus, tt.status)
			}
		})
	}
	if ToDomainError(nil) != nil {
		t.Fatal("ToDomainError(nil) expected nil")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("transition: %w", NewForbidden("denied"))
	if !HasCode(err, CodeForbidden) {
		t.Fatal("HasCode() expected FORBIDDEN")
	}
	if HasCode(err, CodeConflict) {
		t.Fatal("HasCode() unexpected CONFLICT")
	}
	if HasCode(errors.New("plain"), CodeForbidden) {
		t.Fatal("HasCode() unexpected match on plain error")
	}
}
