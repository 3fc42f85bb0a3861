package rest

import (
	domainSettings "github.com/AzielCF/az-speed/domains/settings"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
)

type Settings struct {
	Service domainSettings.ISettingsUsecase
}

func InitRestSettings(app fiber.Router, service domainSettings.ISettingsUsecase) Settings {
	rest := Settings{Service: service}
	app.Get("/settings", rest.GetAll)
	app.Get("/settings/:tab", rest.GetTab)
	return rest
}

func (handler *Settings) GetAll(c *fiber.Ctx) error {
	views, err := handler.Service.GetAll(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings retrieved",
		Results: views,
	})
}

func (handler *Settings) GetTab(c *fiber.Ctx) error {
	view, err := handler.Service.GetTab(c.UserContext(), fiberUtils.CopyString(c.Params("tab")))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Settings tab retrieved",
		Results: view,
	})
}
