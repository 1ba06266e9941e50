package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"

	"github.com/digineo/pingwatch"
)

// ErrResponse is the body of every failed request.
type ErrResponse struct {
	Error   string         `json:"error"`
	Details []TargetDetail `json:"details,omitempty"`
}

// TargetDetail describes the failure of a single target.
type TargetDetail struct {
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

var kinds = []struct {
	err  error
	kind string
}{
	{pingwatch.ErrInvalidTarget, "invalid_target"},
	{pingwatch.ErrAlreadyRunning, "already_running"},
	{pingwatch.ErrNotRunning, "not_running"},
	{pingwatch.ErrSignal, "signal_failed"},
	{pingwatch.ErrStopTimeout, "stop_timeout"},
	{pingwatch.ErrAbnormalExit, "abnormal_exit"},
}

func kindOf(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}

// RegisterErrorHandler installs the error handler translating control
// errors into responses.
func RegisterErrorHandler(e *echo.Echo, logger log.Logger) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := translate(err)
		if status >= http.StatusInternalServerError {
			level.Error(logger).Log("msg", "HTTP request error", "path", c.Path(), "err", err)
		} else {
			level.Debug(logger).Log("msg", "HTTP request rejected", "path", c.Path(), "err", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func translate(err error) (int, ErrResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrResponse{Error: msg}
	}

	var batch pingwatch.BatchError
	if errors.As(err, &batch) {
		body := ErrResponse{Error: batch.Error()}
		for _, te := range batch {
			body.Details = append(body.Details, TargetDetail{
				Target: te.Target,
				Kind:   kindOf(te.Err),
				Error:  te.Err.Error(),
			})
		}
		return http.StatusUnprocessableEntity, body
	}

	if errors.Is(err, pingwatch.ErrClosed) {
		return http.StatusServiceUnavailable, ErrResponse{Error: err.Error()}
	}

	return http.StatusInternalServerError, ErrResponse{Error: "an internal server error has occurred"}
}
