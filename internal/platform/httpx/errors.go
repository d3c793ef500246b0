package httpx

import (
	"errors"
	"net/http"

	"github.com/cartage-erp/cartage-erp/internal/shared"
)

// RespondError maps the shared sentinel errors onto the mobile failure
// envelope. Anything unrecognised is masked with a generic message; the
// caller is expected to have logged the cause already.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, "Invalid login credentials")
	case errors.Is(err, shared.ErrPermissionDenied):
		Fail(w, http.StatusForbidden, "Permission denied")
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, "Not found")
	default:
		Fail(w, http.StatusInternalServerError, "Something went wrong")
	}
}
