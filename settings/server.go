package settings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voice-home-assistant/logger"
	"voice-home-assistant/metrics"
)

const cacheControl = "max-age=300"

// ErrorResponse is the body of a rejected request.
type ErrorResponse struct {
	Message string `json:"message"`
	Errors  string `json:"errors"`
}

type Server struct {
	store   *Store
	router  *gin.Engine
	metrics *metrics.Metrics
	log     *logger.Logger
}

type Config struct {
	Store *Store
	// Gatherer, when set, is served on /metrics.
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
}

func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:   cfg.Store,
		router:  gin.New(),
		metrics: cfg.Metrics,
		log:     logger.OrNop(cfg.Logger),
	}

	s.router.Use(gin.Recovery(), s.observe)

	api := s.router.Group("/api")
	api.GET("/settings/", s.getSettings)
	api.PATCH("/settings/", s.patchSettings)

	if cfg.Gatherer != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		s.log.Infow("settings server listening", "addr", addr)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown settings server: %w", err)
	}

	if err := <-errC; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) observe(c *gin.Context) {
	c.Header("Cache-Control", cacheControl)

	c.Next()

	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		s.metrics.RecordSettingsRequest(c.Request.Method, strconv.Itoa(c.Writer.Status()))
	}

	s.log.Debugw("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status())
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Get())
}

func (s *Server) patchSettings(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "GENERIC_ERROR", Errors: err.Error()})
		return
	}

	updated, err := s.store.Patch(patch)
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "GENERIC_ERROR",
				Errors:  strings.TrimPrefix(err.Error(), ErrUnknownKey.Error()+": "),
			})
			return
		}

		if errors.Is(err, ErrInvalidValue) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Message: "GENERIC_ERROR", Errors: err.Error()})
			return
		}

		s.log.Errorw("could not save settings", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "GENERIC_ERROR", Errors: "could not save settings"})
		return
	}

	c.JSON(http.StatusOK, updated)
}
