// Package api implements the dashboard HTTP API over the link ledger.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yingtu35/deadlink-patrol/internal/ledger"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Params holds the dependencies of the API server.
type Params struct {
	Links   LinkStore
	Run     RunFunc
	Metrics http.Handler
	Logger  logger.Logger
}

// Server is the dashboard API.
type Server struct {
	router *gin.Engine
	log    logger.Logger
}

// NewServer builds the router. Run and Metrics are optional; their routes are omitted
// when nil.
func NewServer(p Params) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(p.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if p.Metrics != nil {
		router.GET("/metrics", gin.WrapH(p.Metrics))
	}

	v1 := router.Group("/api/v1")
	links := NewLinksHandler(p.Links, p.Logger)
	v1.GET("/links", links.List)
	v1.PATCH("/links/resolution", links.SetResolution)
	if p.Run != nil {
		runs := NewRunsHandler(p.Run, p.Logger)
		v1.POST("/runs", runs.Trigger)
	}

	return &Server{router: router, log: p.Logger}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("dashboard API listening", logger.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down dashboard API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)))
	}
}

func isNoData(err error) bool {
	return errors.Is(err, ledger.ErrNoData)
}
