package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/yingtu35/deadlink-patrol/internal/app"
	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

// RunFunc executes one crawl run.
type RunFunc func(ctx context.Context) (*app.Report, error)

// RunsHandler triggers crawl runs. Triggers arriving while a run is in progress wait for
// and share that run's report.
type RunsHandler struct {
	run   RunFunc
	group singleflight.Group
	log   logger.Logger
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(run RunFunc, log logger.Logger) *RunsHandler {
	return &RunsHandler{run: run, log: log}
}

// runResponse is the body returned by POST /api/v1/runs.
type runResponse struct {
	RunID        string `json:"run_id"`
	State        string `json:"state"`
	Findings     int    `json:"findings"`
	PagesVisited int    `json:"pages_visited"`
	LinksChecked int    `json:"links_checked"`
	Stored       int    `json:"stored"`
	Unresolved   int    `json:"unresolved"`
	Notified     bool   `json:"notified"`
	Shared       bool   `json:"shared"`
}

// Trigger handles POST /api/v1/runs
func (h *RunsHandler) Trigger(c *gin.Context) {
	// The run outlives a disconnecting client since other callers may share it.
	ctx := context.WithoutCancel(c.Request.Context())

	v, err, shared := h.group.Do("run", func() (any, error) {
		return h.run(ctx)
	})
	if err != nil {
		h.log.Error("triggered run failed", logger.Error(err))
		if errors.Is(err, ledger.ErrNoData) || errors.Is(err, ledger.ErrNotFound) {
			respondLedgerError(c, err)
			return
		}
		respondError(c, http.StatusInternalServerError, "run failed: "+err.Error())
		return
	}

	report := v.(*app.Report)
	c.JSON(http.StatusOK, runResponse{
		RunID:        report.Result.RunID,
		State:        report.Result.State.String(),
		Findings:     len(report.Result.Findings),
		PagesVisited: report.Result.PagesVisited,
		LinksChecked: report.Result.LinksChecked,
		Stored:       len(report.Records),
		Unresolved:   report.Unresolved,
		Notified:     report.Notified,
		Shared:       shared,
	})
}
