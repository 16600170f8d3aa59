package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qanda/qanda/backend/go-services/pkg/logger"
)

var (
	// ErrValidation marks requests rejected before any downstream call.
	ErrValidation = errors.New("validation failed")
	// ErrRouting marks requests that match no route of the gateway table.
	ErrRouting = errors.New("no matching route")
)

// validationError carries the caller-facing message of an ErrValidation.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }

func invalid(msg string) error { return &validationError{msg: msg} }

// respondError maps err to the gateway's status codes. Only validation
// messages reach the caller; everything else is logged and answered with a
// generic body.
func respondError(c *gin.Context, err error) {
	var ve *validationError
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": ve.msg})
	case errors.Is(err, ErrValidation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Bad Request"})
	case errors.Is(err, ErrRouting):
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{"message": "Method Not Allowed"})
	default:
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal Server Error"})
	}
}
