package rest

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/url"

	settings "github.com/AzielCF/az-speed/core/settings/domain"
	domainPreset "github.com/AzielCF/az-speed/domains/preset"
	domainSettings "github.com/AzielCF/az-speed/domains/settings"
	domainUpdate "github.com/AzielCF/az-speed/domains/update"
	"github.com/AzielCF/az-speed/optimizer/safety"
	pkgError "github.com/AzielCF/az-speed/pkg/error"
	"github.com/AzielCF/az-speed/pkg/optmonitor"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

//go:embed views/admin.html
var adminViews embed.FS

var adminTemplate = template.Must(template.ParseFS(adminViews, "views/admin.html"))

// Admin serves the tabbed settings page.
type Admin struct {
	Settings       domainSettings.ISettingsUsecase
	Presets        domainPreset.IPresetUsecase
	Updates        domainUpdate.IUpdateUsecase
	Throttle       ThrottleService
	Monitor        *optmonitor.Monitor
	Signer         *security.Signer
	BasePath       string
	CurrentVersion string
}

type adminPage struct {
	BasePath       string
	Tabs           []settings.Tab
	Active         domainSettings.TabView
	Presets        []domainPreset.Preset
	CurrentPreset  string
	SettingsToken  string
	PresetToken    string
	UpdatesToken   string
	Notice         string
	Error          string
	CurrentVersion string
	LastCheck      string
	Throttle       safety.ThrottleStatus
	Stats          optmonitor.Stats
}

func InitAdmin(app fiber.Router, admin *Admin) {
	app.Get("/", admin.Page)
	app.Post("/", admin.SaveTab)
	app.Post("/preset", admin.ApplyPreset)
	app.Post("/check-updates", admin.CheckUpdates)
}

// currentUser is the basic-auth user name set by the auth middleware.
func currentUser(c *fiber.Ctx) string {
	if u, ok := c.Locals("username").(string); ok {
		return fiberUtils.CopyString(u)
	}
	return ""
}

func activeTab(c *fiber.Ctx) string {
	tab := fiberUtils.CopyString(c.Query("tab"))
	if !settings.IsTab(tab) {
		return settings.TabJavaScript
	}
	return tab
}

func (a *Admin) Page(c *fiber.Ctx) error {
	page := adminPage{}
	if name := c.Query("preset_applied"); name != "" {
		if p, ok := domainPreset.Get(name); ok {
			page.Notice = p.Title + " preset applied successfully."
		}
	}
	if c.Query("updated") == "1" {
		page.Notice = "Settings saved."
	}
	return a.render(c, fiber.StatusOK, activeTab(c), page)
}

func (a *Admin) render(c *fiber.Ctx, status int, tab string, page adminPage) error {
	ctx := c.UserContext()
	user := currentUser(c)

	view, err := a.Settings.GetTab(ctx, tab)
	utils.PanicIfNeeded(err)
	current, err := a.Presets.DetectCurrentPreset(ctx)
	utils.PanicIfNeeded(err)

	page.BasePath = a.BasePath
	page.Tabs = settings.Tabs
	page.Active = view
	page.Presets = a.Presets.ListPresets()
	page.CurrentPreset = current
	page.CurrentVersion = a.CurrentVersion
	page.SettingsToken = a.issue(security.ActionSettings, user)
	page.PresetToken = a.issue(security.ActionApplyPreset, user)
	page.UpdatesToken = a.issue(security.ActionCheckUpdates, user)

	if last, ok := a.Updates.LastCheck(ctx); ok {
		page.LastCheck = humanize.Time(last)
	}
	if st, err := a.Throttle.Status(ctx); err == nil {
		page.Throttle = st
	}
	if a.Monitor != nil {
		page.Stats = a.Monitor.GetStats()
	}

	var buf bytes.Buffer
	if err := adminTemplate.Execute(&buf, page); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

func (a *Admin) issue(action, user string) string {
	token, err := a.Signer.Issue(action, user)
	if err != nil {
		logrus.WithError(err).Error("[ADMIN] failed to issue token")
	}
	return token
}

// formFields collects every posted name. An unchecked checkbox is absent.
func formFields(c *fiber.Ctx) map[string]string {
	fields := map[string]string{}
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		fields[string(key)] = string(value)
	})
	return fields
}

func (a *Admin) SaveTab(c *fiber.Ctx) error {
	fields := formFields(c)
	request := domainSettings.SaveTabRequest{
		Tab:    fields["active_tab"],
		Token:  fields["sso_settings_nonce"],
		User:   currentUser(c),
		Fields: fields,
	}

	if err := a.Settings.SaveTab(c.UserContext(), request); err != nil {
		return a.renderError(c, activeTab(c), err)
	}
	return c.Redirect(a.BasePath+"/admin?tab="+url.QueryEscape(request.Tab)+"&updated=1", fiber.StatusSeeOther)
}

func (a *Admin) ApplyPreset(c *fiber.Ctx) error {
	var request domainPreset.ApplyRequest
	utils.PanicIfNeeded(c.BodyParser(&request))
	request.PresetType = fiberUtils.CopyString(request.PresetType)
	request.Token = fiberUtils.CopyString(request.Token)
	request.User = currentUser(c)

	if err := a.Presets.Apply(c.UserContext(), request); err != nil {
		return a.renderError(c, activeTab(c), err)
	}
	target := a.BasePath + "/admin?tab=" + url.QueryEscape(activeTab(c)) + "&preset_applied=" + url.QueryEscape(request.PresetType)
	return c.Redirect(target, fiber.StatusSeeOther)
}

// renderError shows typed errors inline and lets anything else reach the
// recovery middleware.
func (a *Admin) renderError(c *fiber.Ctx, tab string, err error) error {
	var typed pkgError.GenericError
	if !errors.As(err, &typed) {
		panic(err)
	}
	return a.render(c, typed.StatusCode(), tab, adminPage{Error: typed.Error()})
}

// CheckUpdates answers the update button of the updates tab.
func (a *Admin) CheckUpdates(c *fiber.Ctx) error {
	var request domainUpdate.CheckRequest
	utils.PanicIfNeeded(c.BodyParser(&request))
	request.Token = fiberUtils.CopyString(request.Token)
	request.User = currentUser(c)

	res, err := a.Updates.ManualCheck(c.UserContext(), request)
	if err != nil {
		status := fiber.StatusInternalServerError
		var typed pkgError.GenericError
		if errors.As(err, &typed) {
			status = typed.StatusCode()
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "data": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "data": res})
}
