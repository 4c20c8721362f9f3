package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/engine"
	"github.com/andresuchdata/replenish/internal/ingest"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownSKU):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidLeadTime),
		errors.Is(err, engine.ErrInvalidWindow),
		errors.Is(err, ingest.ErrUnsupportedFormat),
		errors.Is(err, ingest.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNoDemandColumns),
		errors.Is(err, ingest.ErrMissingColumn):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Str("path", c.Request.URL.Path).Int("status", statusCode).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	errorResponse(c, status, err.Error())
}
