package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-ledger-backend/internal/ledger"
	"parking-ledger-backend/internal/mw"
)

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: errorBody{Message: message, Code: code}})
}

// respondError maps ledger failures to HTTP statuses. Anything outside the ledger
// taxonomy is logged and reported as a generic internal error.
func (h *Handler) respondError(c *gin.Context, err error) {
	var le *ledger.Error
	if errors.As(err, &le) {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			writeError(c, http.StatusNotFound, "not_found", le.Message)
		case errors.Is(err, ledger.ErrConflict):
			writeError(c, http.StatusConflict, "conflict", le.Message)
		case errors.Is(err, ledger.ErrCapacityExceeded):
			writeError(c, http.StatusConflict, "capacity_exceeded", le.Message)
		case errors.Is(err, ledger.ErrInvalidArgument):
			writeError(c, http.StatusBadRequest, "invalid_argument", le.Message)
		default:
			writeError(c, http.StatusInternalServerError, "internal", "internal error")
		}
		return
	}

	_ = c.Error(err)
	h.log.Error("request failed", "path", c.Request.URL.Path, "request_id", mw.GetRequestID(c), "error", err)
	writeError(c, http.StatusInternalServerError, "internal", "internal error")
}

func badRequest(c *gin.Context, message string) {
	writeError(c, http.StatusBadRequest, "invalid_argument", message)
}
