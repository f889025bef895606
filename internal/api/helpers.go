package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
)

// respondError sends a JSON error response.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondBadRequest sends a 400 with message.
func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, message)
}

// respondLedgerError maps ledger errors to responses.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrNoData):
		respondError(c, http.StatusNotFound, ledger.ErrNoData.Error())
	case errors.Is(err, ledger.ErrNotFound):
		respondError(c, http.StatusNotFound, ledger.ErrNotFound.Error())
	default:
		respondError(c, http.StatusInternalServerError, "failed to access link store")
	}
}
