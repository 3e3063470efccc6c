// Package adminapi exposes health, metrics and a read-only view of the
// registry over HTTP, plus a manual sweep trigger.
package adminapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aleister1102/slotwatch/internal/common"
	"github.com/aleister1102/slotwatch/internal/models"
	"github.com/aleister1102/slotwatch/internal/scheduler"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// Store is the read side the API serves from.
type Store interface {
	Ping(ctx context.Context) error
	ListTracked(ctx context.Context, ownerID int64) ([]models.TrackedResource, error)
	GetTracked(ctx context.Context, id int64) (*models.TrackedResource, error)
	ListSlots(ctx context.Context, resourceID int64) ([]models.Slot, error)
}

// SweepTrigger starts a sweep in the background.
type SweepTrigger interface {
	Trigger(ctx context.Context) error
}

// Server is the operator HTTP endpoint.
type Server struct {
	app     *fiber.App
	store   Store
	trigger SweepTrigger
	logger  zerolog.Logger
	baseCtx context.Context
}

// NewServer wires the routes. gatherer may be nil, in which case /metrics
// serves the default registry.
func NewServer(store Store, trigger SweepTrigger, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		store:   store,
		trigger: trigger,
		logger:  logger.With().Str("module", "AdminAPI").Logger(),
		baseCtx: context.Background(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "slotwatch admin",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(s.requestLogger)

	app.Get("/healthz", s.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	app.Get("/owners/:owner/tracked", s.listTracked)
	app.Get("/tracked/:id/slots", s.listSlots)
	app.Post("/sweep", s.sweep)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve listens on addr until ctx is done, then shuts down gracefully.
// Sweeps triggered over HTTP run with ctx.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.baseCtx = ctx

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Admin API listening")
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info().Msg("Shutting down admin API")
		return s.app.ShutdownWithTimeout(shutdownTimeout)
	}
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Request handled")
	return err
}

func (s *Server) health(c *fiber.Ctx) error {
	if err := s.store.Ping(c.UserContext()); err != nil {
		s.logger.Error().Err(err).Msg("Health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) listTracked(c *fiber.Ctx) error {
	owner, err := strconv.ParseInt(c.Params("owner"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "owner must be an integer"})
	}

	resources, err := s.store.ListTracked(c.UserContext(), owner)
	if err != nil {
		return s.internalError(c, err)
	}
	if resources == nil {
		resources = []models.TrackedResource{}
	}
	return c.JSON(fiber.Map{"owner_id": owner, "tracked": resources})
}

func (s *Server) listSlots(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be an integer"})
	}

	resource, err := s.store.GetTracked(c.UserContext(), id)
	if errors.Is(err, common.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "tracked resource not found"})
	}
	if err != nil {
		return s.internalError(c, err)
	}

	slots, err := s.store.ListSlots(c.UserContext(), id)
	if err != nil {
		return s.internalError(c, err)
	}
	if slots == nil {
		slots = []models.Slot{}
	}
	return c.JSON(fiber.Map{"resource": resource, "slots": slots})
}

func (s *Server) sweep(c *fiber.Ctx) error {
	if s.trigger == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "sweeping is not enabled"})
	}
	if err := s.trigger.Trigger(s.baseCtx); err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, scheduler.ErrStopped) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
		}
		return s.internalError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sweep started"})
}

func (s *Server) internalError(c *fiber.Ctx, err error) error {
	s.logger.Error().Err(err).Str("path", c.Path()).Msg("Admin request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
