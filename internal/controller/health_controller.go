package controller

import (
	"ai-act-advisor-be/internal/pkg/serverutils"
	"ai-act-advisor-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	advisorService service.IAdvisorService
}

func NewHealthController(advisorService service.IAdvisorService) IHealthController {
	return &healthController{advisorService: advisorService}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
}

// Health answers 503 while the inference backend is unreachable.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	res := c.advisorService.Health(ctx.UserContext())
	if res.Inference == "down" {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(serverutils.BaseResponse[any]{
			Success: false,
			Code:    fiber.StatusServiceUnavailable,
			Message: "Inference backend unreachable",
			Data:    res,
		})
	}

	return ctx.JSON(serverutils.SuccessResponse("OK", res))
}
