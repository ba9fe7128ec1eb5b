package controller

import (
	"strings"

	"ai-act-advisor-be/internal/dto"
	"ai-act-advisor-be/internal/pkg/serverutils"
	"ai-act-advisor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdvisorController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	ResetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Chat(ctx *fiber.Ctx) error
}

type advisorController struct {
	advisorService service.IAdvisorService
}

func NewAdvisorController(advisorService service.IAdvisorService) IAdvisorController {
	return &advisorController{
		advisorService: advisorService,
	}
}

func (c *advisorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/advisor/v1")
	h.Post("session", c.CreateSession)
	h.Get("session/:id", c.GetSession)
	h.Post("session/:id/reset", c.ResetSession)
	h.Delete("session/:id", c.DeleteSession)
	h.Post("chat", c.Chat)
}

func (c *advisorController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.advisorService.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *advisorController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.advisorService.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *advisorController) ResetSession(ctx *fiber.Ctx) error {
	res, err := c.advisorService.ResetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Session reset", res))
}

func (c *advisorController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.advisorService.DeleteSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func (c *advisorController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.Content = strings.TrimSpace(req.Content)

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.advisorService.Chat(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success chat", res))
}
