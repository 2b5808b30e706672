package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hgp-lactario/milkbank/internal/domain/lifecycle"
	"github.com/hgp-lactario/milkbank/internal/repository/mongodb"
	"github.com/hgp-lactario/milkbank/internal/service/intake"
	"github.com/hgp-lactario/milkbank/internal/service/pooling"
)

// respondDomainError maps engine and repository errors onto HTTP
// statuses. Unknown errors surface as 500 without their message, so
// storage details never leak to clients.
func respondDomainError(c *gin.Context, err error) {
	var (
		validation   *lifecycle.ValidationError
		transition   *lifecycle.TransitionError
		peps         *lifecycle.PepsViolation
		mixed        *lifecycle.MixedTypeError
		donorCap     *lifecycle.DonorCapError
		insufficient *lifecycle.InsufficientVolumeError
	)

	switch {
	case errors.Is(err, mongodb.ErrNotFound), errors.Is(err, pooling.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validation),
		errors.Is(err, lifecycle.ErrMissingReason),
		errors.Is(err, lifecycle.ErrEmptySelection),
		errors.Is(err, intake.ErrDonorNotActive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &peps),
		errors.As(err, &mixed),
		errors.As(err, &donorCap),
		errors.As(err, &insufficient),
		errors.Is(err, lifecycle.ErrJarNotInPool):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, mongodb.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent update, retry the operation"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
