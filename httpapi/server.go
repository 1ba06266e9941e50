// Package httpapi exposes the supervisor over HTTP.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/events"
	"github.com/digineo/pingwatch/monitor"
)

// Controller is the control surface served by the API.
type Controller interface {
	Start(targets []string) error
	Pause(targets []string) error
	StopAllExcept(keep []string) error
	Targets() []pingwatch.TargetInfo
}

// Exporter provides the per-host statistics.
type Exporter interface {
	Export() map[string]*monitor.Metrics
}

// TargetsRequest is the body of the control requests.
type TargetsRequest struct {
	Targets []string `json:"targets"`
}

// Server serves the HTTP API.
type Server struct {
	ctrl    Controller
	metrics Exporter
	hub     *events.Hub
	logger  log.Logger
}

// NewServer creates a Server. metrics and hub are optional, their
// endpoints respond with 404 if missing.
func NewServer(ctrl Controller, metrics Exporter, hub *events.Hub, logger log.Logger) *Server {
	return &Server{
		ctrl:    ctrl,
		metrics: metrics,
		hub:     hub,
		logger:  log.WithPrefix(logger, "component", "httpapi"),
	}
}

// New creates an echo instance serving s.
func New(s *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	RegisterErrorHandler(e, s.logger)
	s.Register(e)
	return e
}

// Register adds the routes to e.
func (s *Server) Register(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.POST("/start", s.control(s.ctrl.Start))
	v1.POST("/pause", s.control(s.ctrl.Pause))
	v1.POST("/stop-all-except", s.control(s.ctrl.StopAllExcept))
	v1.GET("/targets", s.targets)
	v1.GET("/metrics", s.exportMetrics)
	v1.GET("/events", s.events)
}

// control (POST /v1/{start,pause,stop-all-except}) applies op to the
// targets of the request. Returns 204 on success, 422 with per target
// details if some targets failed.
func (s *Server) control(op func([]string) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req TargetsRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		if err := op(req.Targets); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// targets (GET /v1/targets) lists the supervised targets.
func (s *Server) targets(c echo.Context) error {
	return c.JSON(http.StatusOK, s.ctrl.Targets())
}

// exportMetrics (GET /v1/metrics) returns the statistics per host.
func (s *Server) exportMetrics(c echo.Context) error {
	if s.metrics == nil {
		return echo.ErrNotFound
	}
	return c.JSON(http.StatusOK, s.metrics.Export())
}

// events (GET /v1/events) streams results as server-sent events until
// the client disconnects.
func (s *Server) events(c echo.Context) error {
	if s.hub == nil {
		return echo.ErrNotFound
	}

	sub := s.hub.Subscribe()
	defer sub.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", pingwatch.EventName, data); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
