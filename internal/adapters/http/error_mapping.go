package httpadapter

import (
	"net/http"

	"github.com/strataworks/geoassist/internal/core/domain"
)

// mapErrorToHTTPStatus translates semantic error kinds into status codes.
// Store outages and transient provider failures both map to 503.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrStoreUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
