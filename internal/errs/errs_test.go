package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMakeUpperCaseWithUnderscores(t *testing.T) {
	if got := MakeUpperCaseWithUnderscores("Bad Request"); got != "BAD_REQUEST" {
		t.Fatalf("got %q", got)
	}
}

func TestHTTPErrorIsMatchesByType(t *testing.T) {
	wrapped := fmt.Errorf("loading client: %w", NewNotFoundError("client not found", true, nil))

	if !errors.Is(wrapped, &HTTPError{}) {
		t.Fatalf("errors.Is should match any *HTTPError in the chain")
	}

	var httpErr *HTTPError
	if !errors.As(wrapped, &httpErr) || httpErr.Status != http.StatusNotFound {
		t.Fatalf("errors.As should extract the 404, got %+v", httpErr)
	}
}

func TestWithMessageDoesNotMutate(t *testing.T) {
	base := NewForbiddenError("nope", false)
	cp := base.WithMessage("still nope")

	if base.Message != "nope" {
		t.Fatalf("base mutated: %q", base.Message)
	}
	if cp.Message != "still nope" || cp.Status != http.StatusForbidden {
		t.Fatalf("unexpected copy %+v", cp)
	}
}

func TestTokenExpiredCarriesRedirect(t *testing.T) {
	err := NewTokenExpiredError()
	if err.Status != http.StatusUnauthorized || err.Code != CodeTokenExpired {
		t.Fatalf("unexpected error %+v", err)
	}
	if err.Action == nil || err.Action.Type != ActionTypeRedirect || err.Action.Value != LoginRoute {
		t.Fatalf("expected redirect action to %s, got %+v", LoginRoute, err.Action)
	}
}

func TestCustomCodes(t *testing.T) {
	if got := NewConflictError("bad state", Ptr(CodeInvalidTransition)).Code; got != CodeInvalidTransition {
		t.Fatalf("conflict code = %q", got)
	}
	if got := NewConflictError("bad state", nil).Code; got != "CONFLICT" {
		t.Fatalf("default conflict code = %q", got)
	}
	if got := NewBadRequestError("x", false, nil, nil, nil).Code; got != "BAD_REQUEST" {
		t.Fatalf("default bad request code = %q", got)
	}
}
