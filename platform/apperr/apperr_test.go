package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatusPerKind(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{NotFound("missing"), http.StatusNotFound},
		{Validation("bad"), http.StatusBadRequest},
		{Conflict("mismatch"), http.StatusConflict},
		{Quota("limit reached"), http.StatusConflict},
		{Unauthorized("auth required"), http.StatusUnauthorized},
		{BadRequest("nope"), http.StatusBadRequest},
		{Internal("boom"), http.StatusInternalServerError},
		{Unavailable("upstream down"), http.StatusBadGateway},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.status {
			t.Fatalf("kind %v: expected status %d, got %d", tc.err.Kind, tc.status, got)
		}
	}
}

func TestGetKindUnwrapsNestedError(t *testing.T) {
	inner := Unauthorized("token expired")
	wrapped := Wrap(KindInternal, "outer", inner)

	if GetKind(wrapped) != KindInternal {
		t.Fatal("expected the outermost kind")
	}
	if !Is(errors.Unwrap(wrapped), KindUnauthorized) {
		t.Fatal("expected inner error to keep its kind")
	}
}

func TestWithDetailsCarriesPayload(t *testing.T) {
	err := Quota("maximum reached").WithDetails(map[string]interface{}{"limit": 100})
	details, ok := err.Details.(map[string]interface{})
	if !ok {
		t.Fatal("expected details map")
	}
	if details["limit"] != 100 {
		t.Fatalf("expected limit 100, got %v", details["limit"])
	}
}

func TestGetKindPlainError(t *testing.T) {
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected unknown kind for untyped error")
	}
}
