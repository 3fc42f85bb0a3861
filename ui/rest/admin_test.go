package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	settings "github.com/AzielCF/az-speed/core/settings/domain"
	domainPreset "github.com/AzielCF/az-speed/domains/preset"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/AzielCF/az-speed/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminApp(t *testing.T) (*fiber.App, *services) {
	t.Helper()
	svc := newServices(t)

	hash, err := security.HashPassword("secret")
	require.NoError(t, err)
	accounts, err := middleware.ParseAccounts([]string{"admin:" + hash, "editor:plain"})
	require.NoError(t, err)

	app := fiber.New()
	app.Use(middleware.Recovery())
	InitAdmin(app.Group("/admin", middleware.BasicAuth(accounts)), svc.admin)

	api := app.Group("/api", middleware.BasicAuth(accounts))
	InitRestSettings(api, svc.admin.Settings)
	InitRestPresets(api, svc.admin.Presets)
	InitRestMonitoring(api, svc.monitor, svc.throttle)
	return app, svc
}

func do(t *testing.T, app *fiber.App, method, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.SetBasicAuth("admin", "secret")

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestAdmin_RequiresAuth(t *testing.T) {
	app, _ := newAdminApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.SetBasicAuth("editor", "plain")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdmin_Page(t *testing.T) {
	app, _ := newAdminApp(t)

	resp, body := do(t, app, http.MethodGet, "/admin?tab=css", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Inline critical CSS")
	assert.Contains(t, body, `name="active_tab" value="css"`)
	assert.Contains(t, body, `name="sso_settings_nonce"`)
	assert.Contains(t, body, `name="sso_preset_nonce"`)
	assert.Contains(t, body, `id="sso-live-feed"`)
	assert.Contains(t, body, `/admin/ws'`)
	assert.NotContains(t, body, "Move jQuery to footer")

	_, body = do(t, app, http.MethodGet, "/admin?tab=nope", nil)
	assert.Contains(t, body, "Move jQuery to footer")
}

func TestAdmin_SaveTab(t *testing.T) {
	app, svc := newAdminApp(t)
	ctx := context.Background()
	token, err := svc.signer.Issue(security.ActionSettings, "admin")
	require.NoError(t, err)

	resp, _ := do(t, app, http.MethodPost, "/admin?tab=css", url.Values{
		"active_tab":              {"css"},
		"sso_settings_nonce":      {token},
		"sso_css_inline_critical": {"1"},
		"sso_css_critical_css":    {"body{margin:0}"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin?tab=css&updated=1", resp.Header.Get("Location"))

	v, err := svc.store.Get(ctx, "sso_css_inline_critical")
	require.NoError(t, err)
	assert.True(t, v.Enabled())
	v, err = svc.store.Get(ctx, "sso_css_defer_non_critical")
	require.NoError(t, err)
	assert.False(t, v.Enabled())

	_, body := do(t, app, http.MethodGet, "/admin?tab=css&updated=1", nil)
	assert.Contains(t, body, "Settings saved.")
}

func TestAdmin_SaveTabBadToken(t *testing.T) {
	app, svc := newAdminApp(t)

	resp, body := do(t, app, http.MethodPost, "/admin?tab=css", url.Values{
		"active_tab":         {"css"},
		"sso_settings_nonce": {"forged"},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "security check failed")

	v, err := svc.store.Get(context.Background(), "sso_css_defer_non_critical")
	require.NoError(t, err)
	assert.True(t, v.Enabled())
}

func TestAdmin_ApplyPreset(t *testing.T) {
	app, svc := newAdminApp(t)
	token, err := svc.signer.Issue(security.ActionApplyPreset, "admin")
	require.NoError(t, err)

	resp, _ := do(t, app, http.MethodPost, "/admin/preset?tab=fonts", url.Values{
		"preset_type":      {domainPreset.Risky},
		"sso_preset_nonce": {token},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin?tab=fonts&preset_applied=risky", resp.Header.Get("Location"))

	_, body := do(t, app, http.MethodGet, resp.Header.Get("Location"), nil)
	assert.Contains(t, body, "Risky preset applied successfully.")
	assert.Contains(t, body, `value="risky" checked`)

	v, err := svc.store.Get(context.Background(), "sso_fonts_disable_google")
	require.NoError(t, err)
	assert.True(t, v.Enabled())

	resp, body = do(t, app, http.MethodPost, "/admin/preset", url.Values{
		"preset_type":      {"turbo"},
		"sso_preset_nonce": {token},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "invalid preset selected")
}

func TestAdmin_CheckUpdates(t *testing.T) {
	app, svc := newAdminApp(t)

	resp, body := do(t, app, http.MethodPost, "/admin/check-updates", url.Values{"nonce": {"forged"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var failed struct {
		Success bool   `json:"success"`
		Data    string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &failed))
	assert.False(t, failed.Success)

	token, err := svc.signer.Issue(security.ActionCheckUpdates, "admin")
	require.NoError(t, err)
	resp, body = do(t, app, http.MethodPost, "/admin/check-updates", url.Values{"nonce": {token}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ok struct {
		Success bool `json:"success"`
		Data    struct {
			UpdateAvailable bool   `json:"update_available"`
			CurrentVersion  string `json:"current_version"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &ok))
	assert.True(t, ok.Success)
	assert.False(t, ok.Data.UpdateAvailable)
	assert.Equal(t, "1.0.0", ok.Data.CurrentVersion)
}

func TestAPI_SettingsAndPresets(t *testing.T) {
	app, svc := newAdminApp(t)

	resp, body := do(t, app, http.MethodGet, "/api/settings/updates", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, settings.KeyUpdateMethod)

	resp, body = do(t, app, http.MethodGet, "/api/settings/advanced", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "SETTINGS_TAB_NOT_FOUND")

	resp, _ = do(t, app, http.MethodPost, "/api/presets/medium/apply", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = do(t, app, http.MethodGet, "/api/presets/current", nil)
	assert.Contains(t, body, `"preset":"medium"`)

	resp, body = do(t, app, http.MethodPost, "/api/presets/turbo/apply", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "PRESET_NOT_FOUND")

	resp, _ = do(t, app, http.MethodGet, "/api/presets/turbo/preview", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	marker, err := svc.store.Get(context.Background(), settings.KeyCurrentPreset)
	require.NoError(t, err)
	assert.Equal(t, "medium", marker.String())

	_, body = do(t, app, http.MethodGet, "/api/presets/safe/preview", nil)
	assert.Contains(t, body, `"changes"`)

	require.NoError(t, svc.throttle.RecordError(context.Background(), "test"))
	_, body = do(t, app, http.MethodGet, "/api/safety/status", nil)
	assert.Contains(t, body, `"error_count":1`)

	resp, _ = do(t, app, http.MethodPost, "/api/safety/reset", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	st, err := svc.throttle.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.ErrorCount)

	_, body = do(t, app, http.MethodGet, "/api/monitoring/stats", nil)
	assert.Contains(t, body, "total_requests")
}
