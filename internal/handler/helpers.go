package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-innovation-api/internal/middleware"
	"github.com/noah-isme/gema-innovation-api/internal/service"
	"github.com/noah-isme/gema-innovation-api/internal/utils"
	"github.com/noah-isme/gema-innovation-api/internal/workflow"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
		if id, ok := v.(int); ok {
			if id < 0 {
				return 0
			}
			return uint(id)
		}
	}
	return 0
}

// actorFromContext builds the workflow actor from the identity bound by the JWT middleware.
func actorFromContext(c *fiber.Ctx) workflow.Actor {
	return workflow.NewActor(userIDFromContext(c), middleware.RolesFromContext(c)...)
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// respondError maps the service error taxonomy onto HTTP statuses and error codes.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrForbidden):
		return utils.SendErrorCode(c, fiber.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrLocked):
		return utils.SendErrorCode(c, fiber.StatusLocked, "locked", err.Error())
	case errors.Is(err, service.ErrConflict):
		return utils.SendErrorCode(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		return utils.SendErrorCode(c, fiber.StatusUnprocessableEntity, "invalid_transition", err.Error())
	case errors.Is(err, service.ErrValidation):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("internal server error")
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, "internal", "internal server error")
	}
}
