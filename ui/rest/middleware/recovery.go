package middleware

import (
	"errors"
	"fmt"

	pkgError "github.com/AzielCF/az-speed/pkg/error"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recovery turns panics raised through utils.PanicIfNeeded into the JSON
// envelope. Typed errors keep their code and status, even when wrapped.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			res := utils.ResponseData{
				Status:  fiber.StatusInternalServerError,
				Code:    "INTERNAL_SERVER_ERROR",
				Message: fmt.Sprintf("%v", rec),
			}

			var typed pkgError.GenericError
			if err, ok := rec.(error); ok && errors.As(err, &typed) {
				res.Status = typed.StatusCode()
				res.Code = typed.ErrCode()
				res.Message = typed.Error()
			} else {
				logrus.Errorf("[REST] panic recovered on %s %s: %v", ctx.Method(), ctx.Path(), rec)
			}

			_ = ctx.Status(res.Status).JSON(res)
		}()

		return ctx.Next()
	}
}
