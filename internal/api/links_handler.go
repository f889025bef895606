package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

// LinkStore is the ledger view the dashboard reads and annotates.
type LinkStore interface {
	View(f ledger.Filter) ([]ledger.Record, error)
	SetResolved(key ledger.Key, resolved bool) (ledger.Record, error)
}

// LinksHandler serves the broken-link listing and resolution write-back.
type LinksHandler struct {
	store LinkStore
	log   logger.Logger
}

// NewLinksHandler creates a links handler.
func NewLinksHandler(store LinkStore, log logger.Logger) *LinksHandler {
	return &LinksHandler{store: store, log: log}
}

// List handles GET /api/v1/links
func (h *LinksHandler) List(c *gin.Context) {
	filter, err := ledger.ParseFilter(c.Query("filter"))
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	records, err := h.store.View(filter)
	if err != nil {
		if !isNoData(err) {
			h.log.Error("listing links", logger.Error(err))
		}
		respondLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filter": filter,
		"total":  len(records),
		"links":  records,
	})
}

// resolutionRequest is the body of PATCH /api/v1/links/resolution.
type resolutionRequest struct {
	Source   string `binding:"required" json:"source"`
	URL      string `binding:"required" json:"url"`
	Resolved *bool  `binding:"required" json:"resolved"`
}

// SetResolution handles PATCH /api/v1/links/resolution
func (h *LinksHandler) SetResolution(c *gin.Context) {
	var req resolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	rec, err := h.store.SetResolved(ledger.Key{Source: req.Source, URL: req.URL}, *req.Resolved)
	if err != nil {
		respondLedgerError(c, err)
		return
	}

	h.log.Info("link resolution updated",
		logger.String("source", rec.Source),
		logger.String("url", rec.URL),
		logger.Bool("resolved", rec.Resolved))
	c.JSON(http.StatusOK, rec)
}
