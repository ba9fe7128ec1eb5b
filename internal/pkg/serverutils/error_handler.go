package serverutils

import (
	"errors"

	"ai-act-advisor-be/pkg/embedding"
	"ai-act-advisor-be/pkg/llm"
	"ai-act-advisor-be/pkg/rag/interview"
	"ai-act-advisor-be/pkg/store"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	var validationErr *ValidationError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest
	case errors.Is(err, store.ErrSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, interview.ErrSessionDone):
		return fiber.StatusConflict
	case errors.Is(err, llm.ErrInference), errors.Is(err, embedding.ErrEmbedding):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func messageFor(code int, err error) string {
	switch code {
	case fiber.StatusNotFound:
		return "Session not found"
	case fiber.StatusConflict:
		return "Assessment already completed; reset the session to start over"
	case fiber.StatusServiceUnavailable:
		return "Inference backend unavailable, please retry"
	case fiber.StatusInternalServerError:
		return "Internal server error"
	default:
		return err.Error()
	}
}

// ErrorHandler is installed as fiber's Config.ErrorHandler.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := StatusFor(err)
	res := ErrorResponse(code, messageFor(code, err))
	res.Error = err.Error()

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		res.Data = validationErr.Fields
	}
	return ctx.Status(code).JSON(res)
}

// ErrorHandlerMiddleware turns handler errors into the JSON envelope even when
// the app was built without ErrorHandler.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
