package rest

import (
	domainPreset "github.com/AzielCF/az-speed/domains/preset"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
)

type Presets struct {
	Service domainPreset.IPresetUsecase
}

func InitRestPresets(app fiber.Router, service domainPreset.IPresetUsecase) Presets {
	rest := Presets{Service: service}
	app.Get("/presets", rest.List)
	app.Get("/presets/current", rest.Current)
	app.Get("/presets/:name/preview", rest.Preview)
	app.Post("/presets/:name/apply", rest.Apply)
	return rest
}

func (handler *Presets) List(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Presets retrieved",
		Results: handler.Service.ListPresets(),
	})
}

func (handler *Presets) Current(c *fiber.Ctx) error {
	name, err := handler.Service.DetectCurrentPreset(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Current preset detected",
		Results: fiber.Map{"preset": name},
	})
}

func (handler *Presets) Preview(c *fiber.Ctx) error {
	preview, err := handler.Service.Preview(c.UserContext(), fiberUtils.CopyString(c.Params("name")))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Preset preview",
		Results: preview,
	})
}

// Apply is authorized by basic auth alone; the admin form goes through
// the token checked variant.
func (handler *Presets) Apply(c *fiber.Ctx) error {
	name := fiberUtils.CopyString(c.Params("name"))
	utils.PanicIfNeeded(handler.Service.ApplyPreset(c.UserContext(), name))

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Preset " + name + " applied",
		Results: fiber.Map{"preset": name},
	})
}
