package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrMissingAddress  = errors.New("missing address")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotMember       = errors.New("not a GOLD channel member")
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusOf maps a handler error to the HTTP status and client-facing message.
func (s *Server) statusOf(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, ErrMissingAddress):
		return http.StatusBadRequest, "Missing address"
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "Open the tracker from the Telegram bot"
	case errors.Is(err, ErrNotMember):
		return http.StatusForbidden, "Subscribe to the GOLD channel: " + s.cfg.InviteLink
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := s.statusOf(err)
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"err", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil {
		s.log.Warn("write error response", "err", err)
	}
}
