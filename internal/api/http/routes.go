package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/diary"
)

// Service is the diary behaviour the HTTP layer depends on.
type Service interface {
	Create(ctx context.Context, date common.Date, text string) (diary.Entry, error)
	Read(ctx context.Context, date common.Date) ([]diary.Entry, error)
	ReadRange(ctx context.Context, start, end common.Date) ([]diary.Entry, error)
	Update(ctx context.Context, date common.Date, text string) error
	Delete(ctx context.Context, date common.Date) (int64, error)
}

// NewApp builds the Fiber app with error handling, panic recovery, the health
// endpoint and the diary routes. Access logs go to accessLog when it is non-nil.
func NewApp(service Service, accessLog io.Writer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "weather-diary",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          ErrorHandler,
	})

	if accessLog != nil {
		app.Use(logger.New(logger.Config{Output: accessLog}))
	}
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-diary",
		})
	})

	RegisterRoutes(app, service)
	return app
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
// Errors that are not *fiber.Error are logged and reported as a bare 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	} else {
		slog.Error("http: request failed", "method", c.Method(), "path", c.Path(), "err", err)
		err = errors.New("internal server error")
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the diary handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service Service) {
	app.Post("/create/diary", func(c *fiber.Ctx) error {
		date, err := parseDateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, err := service.Create(c.UserContext(), date, string(c.Body())); err != nil {
			return serviceError(err)
		}
		return c.Status(fiber.StatusOK).Send(nil)
	})

	app.Get("/read/diary", func(c *fiber.Ctx) error {
		date, err := parseDateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		entries, err := service.Read(c.UserContext(), date)
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(entries)
	})

	app.Get("/read/diaries", func(c *fiber.Ctx) error {
		start, end, err := parseRangeQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		entries, err := service.ReadRange(c.UserContext(), start, end)
		if err != nil {
			return serviceError(err)
		}
		return c.JSON(entries)
	})

	app.Put("/update/diary", func(c *fiber.Ctx) error {
		date, err := parseDateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := service.Update(c.UserContext(), date, string(c.Body())); err != nil {
			return serviceError(err)
		}
		return c.Status(fiber.StatusOK).Send(nil)
	})

	app.Delete("/delete/diary", func(c *fiber.Ctx) error {
		date, err := parseDateQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if _, err := service.Delete(c.UserContext(), date); err != nil {
			return serviceError(err)
		}
		return c.Status(fiber.StatusOK).Send(nil)
	})
}

// serviceError maps diary errors onto HTTP statuses.
func serviceError(err error) error {
	switch {
	case errors.Is(err, diary.ErrInvalidRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, diary.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, diary.ErrWeatherUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}
