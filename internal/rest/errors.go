package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/savingsgroup/internal/models"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrMeetingNotActive),
		errors.Is(err, models.ErrDuplicateReference),
		errors.Is(err, models.ErrAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSavingTypeConstraint),
		errors.Is(err, models.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "Request failed", "route", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// bind decodes the JSON body into v and reports a 400 on malformed input.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
