package aggregates

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domain "github.com/HamezGuy/libreclinicaapi-sub001/internal/domain/randomization"
)

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domain.IsCode(err, domain.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domain.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	err := MapError("op", gorm.ErrRecordNotFound)
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("expected not_found code, got %q (%v)", domain.CodeOf(err), err)
	}
}

func TestMapError_PassthroughCodedError(t *testing.T) {
	in := domain.NewError(domain.CodeExhausted, "op", "no slots", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough coded error")
	}
}

func TestMapError_PostgresCodes(t *testing.T) {
	cases := map[string]domain.ErrorCode{
		"23505": domain.CodeConflict,
		"40001": domain.CodeRetryable,
		"40P01": domain.CodeRetryable,
		"55P03": domain.CodeRetryable,
		"22001": domain.CodeInternal,
	}
	for sqlState, want := range cases {
		err := MapError("op", &pgconn.PgError{Code: sqlState, Message: "x"})
		if !domain.IsCode(err, want) {
			t.Fatalf("sqlstate %s: want=%s got=%s", sqlState, want, domain.CodeOf(err))
		}
	}
}

func TestMapError_SQLiteMessages(t *testing.T) {
	if err := MapError("op", errors.New("UNIQUE constraint failed: subject_randomization.study_subject_id")); !domain.IsCode(err, domain.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := MapError("op", errors.New("database is locked")); !domain.IsCode(err, domain.CodeRetryable) {
		t.Fatalf("expected retryable, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(gorm.ErrDuplicatedKey) {
		t.Fatalf("gorm duplicated key must count")
	}
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("pg 23505 must count")
	}
	if IsUniqueViolation(errors.New("connection reset")) || IsUniqueViolation(nil) {
		t.Fatalf("unrelated errors must not count")
	}
}
