package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rental-insights/models"
	"rental-insights/pipeline"
	"rental-insights/utils"
)

// Trigger starts a pipeline run in the background, reporting false when a
// run is already in progress.
type Trigger interface {
	Go(ctx context.Context, done func(*pipeline.Result, error)) bool
}

// Server serves the latest enriched batch and area statistics as JSON.
type Server struct {
	latest  *pipeline.Latest
	trigger Trigger
	logger  *utils.Logger
	baseCtx context.Context
	engine  *gin.Engine
}

// NewServer builds the router. Runs triggered over HTTP use baseCtx so they
// outlive the request that started them.
func NewServer(baseCtx context.Context, latest *pipeline.Latest, trigger Trigger, logger *utils.Logger) *Server {
	s := &Server{latest: latest, trigger: trigger, logger: logger, baseCtx: baseCtx}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	s.Register(r)
	s.engine = r
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r *gin.Engine) {
	r.GET("/healthz", s.health)
	r.GET("/listings", s.listings)
	r.GET("/area-stats", s.areaStats)
	r.POST("/runs", s.startRun)
}

// Handler returns the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("[api] Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "run_id": s.latest.RunID()})
}

// listings serves the enriched batch. Optional neighborhood and
// property_type query parameters filter it case-insensitively.
func (s *Server) listings(c *gin.Context) {
	all := s.latest.Listings()
	neighborhood := strings.TrimSpace(c.Query("neighborhood"))
	propertyType := strings.TrimSpace(c.Query("property_type"))
	if neighborhood == "" && propertyType == "" {
		c.JSON(http.StatusOK, all)
		return
	}

	out := make([]models.EnrichedListing, 0, len(all))
	for _, l := range all {
		if neighborhood != "" && !strings.EqualFold(l.Neighborhood, neighborhood) {
			continue
		}
		if propertyType != "" && !strings.EqualFold(string(l.PropertyType), propertyType) {
			continue
		}
		out = append(out, l)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) areaStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.latest.Stats())
}

func (s *Server) startRun(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "runs are not enabled"})
		return
	}

	started := s.trigger.Go(s.baseCtx, func(res *pipeline.Result, err error) {
		if err != nil {
			s.logger.Error("[api] Triggered run failed: %v", err)
			return
		}
		s.logger.Info("[api] Triggered run %s produced %d listings", res.RunID, len(res.Batch))
	})
	if !started {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[api] %s %s → %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}
