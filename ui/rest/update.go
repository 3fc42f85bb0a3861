package rest

import (
	domainUpdate "github.com/AzielCF/az-speed/domains/update"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Update struct {
	Service domainUpdate.IUpdateUsecase
}

func InitRestUpdate(app fiber.Router, service domainUpdate.IUpdateUsecase) Update {
	rest := Update{Service: service}
	app.Get("/updates", rest.Status)
	app.Post("/updates/check", rest.Check)
	return rest
}

// Status returns the cached metadata without contacting the source.
func (handler *Update) Status(c *fiber.Ctx) error {
	res := handler.Service.CheckForUpdate(c.UserContext(), false)
	last, _ := handler.Service.LastCheck(c.UserContext())

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Update status",
		Results: fiber.Map{"result": res, "last_check": last},
	})
}

func (handler *Update) Check(c *fiber.Ctx) error {
	res := handler.Service.CheckForUpdate(c.UserContext(), true)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Update check completed",
		Results: res,
	})
}
