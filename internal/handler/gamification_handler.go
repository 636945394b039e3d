package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-innovation-api/internal/dto"
	"github.com/noah-isme/gema-innovation-api/internal/service"
	"github.com/noah-isme/gema-innovation-api/internal/utils"
)

// GamificationHandler exposes points, streaks, achievements and the leaderboard.
type GamificationHandler struct {
	service service.GamificationService
	logger  zerolog.Logger
}

// NewGamificationHandler constructs a handler instance.
func NewGamificationHandler(service service.GamificationService, logger zerolog.Logger) *GamificationHandler {
	return &GamificationHandler{
		service: service,
		logger:  logger.With().Str("component", "gamification_handler").Logger(),
	}
}

// Register binds the gamification routes.
func (h *GamificationHandler) Register(router fiber.Router) {
	router.Post("/signup", h.signup)
	router.Post("/daily-login", h.dailyLogin)
	router.Post("/collaborations", h.collaboration)
	router.Post("/invitations", h.invitation)
	router.Get("/me", h.summary)
	router.Get("/leaderboard", h.leaderboard)
	router.Get("/achievements", h.achievements)
	router.Post("/achievements/evaluate", h.evaluate)
}

func (h *GamificationHandler) signup(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	resp, err := h.service.Signup(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "signup bonus awarded", resp)
}

func (h *GamificationHandler) dailyLogin(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	resp, err := h.service.DailyLogin(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "daily login recorded", resp)
}

func (h *GamificationHandler) collaboration(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var req dto.CollaborationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.RecordCollaboration(requestContext(c), userID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "collaboration recorded", resp)
}

func (h *GamificationHandler) invitation(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var req dto.InvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.RecordInvitation(requestContext(c), userID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "invitation accepted", resp)
}

func (h *GamificationHandler) summary(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	summary, err := h.service.Summary(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "points summary", summary)
}

func (h *GamificationHandler) leaderboard(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	board, err := h.service.Leaderboard(requestContext(c), limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "leaderboard", board)
}

func (h *GamificationHandler) achievements(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	progress, err := h.service.Achievements(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievement progress", progress)
}

func (h *GamificationHandler) evaluate(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	resp, err := h.service.EvaluateAchievements(requestContext(c), userID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievements evaluated", resp)
}
