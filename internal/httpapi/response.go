package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/repertoire/pkg/types"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondStoreError maps the types sentinels to a status and code. Callers
// can tell an empty result (200) from a failed lookup (503).
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, types.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, types.ErrServiceUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "service_unavailable", err)
	case errors.Is(err, types.ErrStoreUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", err)
	case errors.Is(err, types.ErrSnapshotNotLoaded):
		RespondError(c, http.StatusServiceUnavailable, "snapshot_not_loaded", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
