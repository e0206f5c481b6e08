package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avolkov-dev/authguard/internal/errs"
)

// statusFor maps the error taxonomy onto HTTP statuses. Rejected credentials
// of a single kind answer 422 so clients can tell "re-login" apart from the
// 400 of a malformed or mismatched request.
func statusFor(err error) int {
	var tok *errs.TokenInvalidError
	switch {
	case errors.As(err, &tok):
		if tok.Kind == errs.TokenBoth {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errs.IsNotFound(err),
		errs.IsAlreadyExists(err),
		errors.Is(err, errs.ErrInvalidPassword),
		errors.Is(err, errs.ErrSuspiciousEntry),
		errors.Is(err, errs.ErrDefaultRoleMissing):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal error"
	}
	c.JSON(status, gin.H{"detail": detail})
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
