package controller

import (
	"context"
	"time"

	"github.com/akvekariya/AIChatBot/internal/constant"
	"github.com/akvekariya/AIChatBot/internal/dto"
	"github.com/akvekariya/AIChatBot/internal/pkg/serverutils"
	"github.com/akvekariya/AIChatBot/internal/service"
	"github.com/akvekariya/AIChatBot/pkg/ai/router"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// HealthChecker is the slice of the model router the controller needs.
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[constant.AIBackend]router.BackendHealth
}

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UpdateTitle(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	SetContext(ctx *fiber.Ctx) error
	ShowContext(ctx *fiber.Ctx) error
	ClearContext(ctx *fiber.Ctx) error
	AiHealth(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService   service.IChatService
	memoryService service.IMemoryService
	healthChecker HealthChecker
}

func NewChatController(chatService service.IChatService, memoryService service.IMemoryService, healthChecker HealthChecker) IChatController {
	return &chatController{
		chatService:   chatService,
		memoryService: memoryService,
		healthChecker: healthChecker,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("ai/health", c.AiHealth)
	h.Post("", c.Start)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
	h.Patch(":id/title", c.UpdateTitle)
	h.Get(":id/stats", c.Stats)
	h.Put(":id/context", c.SetContext)
	h.Get(":id/context", c.ShowContext)
	h.Delete(":id/context", c.ClearContext)
}

func (c *chatController) Start(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	var req dto.StartChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.StartChat(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success start chat", res))
}

func (c *chatController) List(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	res, err := c.chatService.ListChats(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list chats", res))
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.chatService.GetChat(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show chat", res))
}

func (c *chatController) Delete(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	if err := c.chatService.Deactivate(ctx.Context(), id, userId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success delete chat", nil))
}

func (c *chatController) UpdateTitle(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.UpdateTitleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.UpdateTitle(ctx.Context(), userId, &req, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update chat title", res))
}

func (c *chatController) Stats(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.chatService.GetStats(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show chat stats", res))
}

func (c *chatController) SetContext(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	var req dto.SetContextRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.memoryService.SetContext(ctx.Context(), id, userId, req.Key, req.Value); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success set chat context", nil))
}

func (c *chatController) ShowContext(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	res, err := c.memoryService.GetContext(ctx.Context(), id, userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show chat context", res))
}

func (c *chatController) ClearContext(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, _ := uuid.Parse(ctx.Params("id"))

	if err := c.memoryService.ClearContext(ctx.Context(), id, userId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear chat context", nil))
}

func (c *chatController) AiHealth(ctx *fiber.Ctx) error {
	probeCtx, cancel := context.WithTimeout(ctx.Context(), 30*time.Second)
	defer cancel()

	health := c.healthChecker.HealthCheck(probeCtx)

	res := make([]dto.BackendHealthResponse, 0, len(health))
	for _, id := range constant.AllBackends {
		status, ok := health[id]
		if !ok {
			continue
		}
		res = append(res, dto.BackendHealthResponse{
			Backend:     string(id),
			Available:   status.Available,
			LastChecked: status.LastChecked,
			Error:       status.Error,
			LatencyMs:   status.Latency.Milliseconds(),
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("Success check ai health", res))
}

func currentUserId(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}
