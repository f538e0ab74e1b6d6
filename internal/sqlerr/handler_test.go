package sqlerr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/aquaservice/internal/errs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func asHTTP(t *testing.T, err error) *errs.HTTPError {
	t.Helper()
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *errs.HTTPError, got %T (%v)", err, err)
	}
	return httpErr
}

func TestHandleErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Severity:       "ERROR",
		TableName:      "users",
		ConstraintName: "unique_users_email",
	}

	httpErr := asHTTP(t, HandleError(fmt.Errorf("insert user: %w", pgErr)))
	if httpErr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", httpErr.Status)
	}
	if httpErr.Code != "USER_ALREADY_EXISTS" {
		t.Fatalf("code = %q", httpErr.Code)
	}
	if httpErr.Message != "A User with this Email already exists" {
		t.Fatalf("message = %q", httpErr.Message)
	}
}

func TestHandleErrorForeignKeyNamesEntity(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", TableName: "equipment", ColumnName: "client_id"}

	httpErr := asHTTP(t, HandleError(pgErr))
	if httpErr.Message != "The referenced Client does not exist" {
		t.Fatalf("message = %q", httpErr.Message)
	}
}

func TestHandleErrorNotNullHasFieldError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23502", TableName: "clients", ColumnName: "name"}

	httpErr := asHTTP(t, HandleError(pgErr))
	if len(httpErr.Errors) != 1 || httpErr.Errors[0].Field != "name" {
		t.Fatalf("field errors = %+v", httpErr.Errors)
	}
}

func TestHandleErrorExclusionIsConflict(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23P01", TableName: "work_orders"}

	httpErr := asHTTP(t, HandleError(pgErr))
	if httpErr.Status != http.StatusConflict || httpErr.Code != "WORK_ORDER_CONFLICT" {
		t.Fatalf("unexpected %+v", httpErr)
	}
}

func TestHandleErrorNoRowsTagged(t *testing.T) {
	err := NotFoundIn("work_orders", fmt.Errorf("get: %w", pgx.ErrNoRows))

	httpErr := asHTTP(t, HandleError(err))
	if httpErr.Status != http.StatusNotFound {
		t.Fatalf("status = %d", httpErr.Status)
	}
	if httpErr.Message != "Work Order not found" {
		t.Fatalf("message = %q", httpErr.Message)
	}
}

func TestHandleErrorNoRowsUntagged(t *testing.T) {
	httpErr := asHTTP(t, HandleError(pgx.ErrNoRows))
	if httpErr.Message != "Resource not found" {
		t.Fatalf("message = %q", httpErr.Message)
	}
}

func TestHandleErrorPassesHTTPErrorThrough(t *testing.T) {
	in := errs.NewForbiddenError("nope", true)
	if out := HandleError(in); out != in {
		t.Fatalf("HTTPError should be returned unchanged")
	}
}

func TestHandleErrorUnknownIsInternal(t *testing.T) {
	httpErr := asHTTP(t, HandleError(errors.New("connection reset")))
	if httpErr.Status != http.StatusInternalServerError {
		t.Fatalf("status = %d", httpErr.Status)
	}
}

func TestNotFoundInLeavesOtherErrors(t *testing.T) {
	other := errors.New("boom")
	if NotFoundIn("clients", other) != other {
		t.Fatalf("non no-rows error should be returned unchanged")
	}
}

func TestErrCodeAndMapping(t *testing.T) {
	converted := ConvertPgError(&pgconn.PgError{Code: "23514", Severity: "FATAL"})
	if converted.Severity != SeverityFatal {
		t.Fatalf("severity = %q", converted.Severity)
	}
	if ErrCode(fmt.Errorf("wrap: %w", converted)) != CheckViolation {
		t.Fatalf("ErrCode should find the wrapped *Error")
	}
	if MapCode("99999") != Other {
		t.Fatalf("unknown SQLSTATE should map to Other")
	}
}
