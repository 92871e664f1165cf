package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pvzzle/taptracker/internal/logger"
	"github.com/pvzzle/taptracker/internal/metrics"
	"github.com/pvzzle/taptracker/internal/reward"
)

// InitDataHeader carries the raw Telegram WebApp init data.
const InitDataHeader = "x-telegram-init-data"

const (
	DefaultRequestTimeout = 90 * time.Second

	// time left to write the error body after the request deadline fires
	writeMargin = 10 * time.Second
)

type Authenticator interface {
	Authenticate(initData string) (userID int64, ok bool)
}

type MembershipChecker interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

type ReportBuilder interface {
	Report(ctx context.Context, address string) (reward.Report, error)
}

type CacheStats interface {
	Len() int
}

type Deps struct {
	Auth    Authenticator
	Members MembershipChecker
	Reports ReportBuilder
	Cache   CacheStats
}

type Config struct {
	Addr       string
	InviteLink string

	// AllowOrigins defaults to any origin.
	AllowOrigins []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RequestTimeout bounds one /reward request; WriteTimeout is raised
	// above it when needed.
	RequestTimeout time.Duration
}

type Server struct {
	cfg  Config
	deps Deps
	e    *echo.Echo
	http *http.Server
	log  *slog.Logger
}

func New(cfg Config, deps Deps, log *slog.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Minute
	}
	if cfg.WriteTimeout < cfg.RequestTimeout+writeMargin {
		cfg.WriteTimeout = cfg.RequestTimeout + writeMargin
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"*"}
	}

	s := &Server{
		cfg:  cfg,
		deps: deps,
		e:    echo.New(),
		log:  logger.Component(log, "api"),
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.HTTPErrorHandler = s.handleError

	s.e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, InitDataHeader},
	}))
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			metrics.HTTPResponses.WithLabelValues(strconv.Itoa(v.Status)).Inc()
			s.log.Info("request",
				"method", v.Method,
				"path", v.URIPath,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			)
			return nil
		},
	}))

	s.e.GET("/reward", s.handleReward)
	s.e.GET("/healthz", s.handleHealth)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.e,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.e }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.cfg.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// handleReward authenticates the WebApp user, checks GOLD membership and
// returns the account's reward report. The whole request runs under
// RequestTimeout so it fails with a JSON error before the write deadline.
func (s *Server) handleReward(c echo.Context) error {
	userID, ok := s.deps.Auth.Authenticate(c.Request().Header.Get(InitDataHeader))
	if !ok {
		return ErrUnauthenticated
	}

	address := strings.TrimSpace(c.QueryParam("address"))
	if address == "" {
		return ErrMissingAddress
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.cfg.RequestTimeout)
	defer cancel()

	member, err := s.deps.Members.IsMember(ctx, userID)
	if err != nil {
		return s.deadline(ctx, fmt.Errorf("membership check: %w", err))
	}
	if !member {
		return ErrNotMember
	}

	rep, err := s.deps.Reports.Report(ctx, address)
	if err != nil {
		return s.deadline(ctx, err)
	}
	return c.JSON(http.StatusOK, newRewardResponse(rep))
}

// deadline names the request budget when it is what stopped err.
func (s *Server) deadline(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request exceeded %s: %w", s.cfg.RequestTimeout, err)
	}
	return err
}

func (s *Server) handleHealth(c echo.Context) error {
	n := 0
	if s.deps.Cache != nil {
		n = s.deps.Cache.Len()
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", CachedCodeHashes: n})
}
