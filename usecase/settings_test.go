package usecase

import (
	"context"
	"testing"

	settings "github.com/AzielCF/az-speed/core/settings/domain"
	domainSettings "github.com/AzielCF/az-speed/domains/settings"
	pkgError "github.com/AzielCF/az-speed/pkg/error"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_SaveTab(t *testing.T) {
	ctx := context.Background()
	signer := newTestSigner()

	setup := func(t *testing.T) (*serviceSettings, func(key string) settings.Value) {
		store := newTestStore(t)
		_, err := store.Activate(ctx)
		require.NoError(t, err)
		svc := NewSettingsService(store, signer).(*serviceSettings)
		get := func(key string) settings.Value {
			v, err := store.Get(ctx, key)
			require.NoError(t, err)
			return v
		}
		return svc, get
	}

	save := func(t *testing.T, svc *serviceSettings, tab string, fields map[string]string) error {
		return svc.SaveTab(ctx, domainSettings.SaveTabRequest{
			Tab:    tab,
			Token:  issue(t, signer, security.ActionSettings),
			User:   testUser,
			Fields: fields,
		})
	}

	t.Run("checkbox is presence", func(t *testing.T) {
		svc, get := setup(t)
		require.NoError(t, save(t, svc, settings.TabJavaScript, map[string]string{
			"sso_js_delay_until_interaction": "1",
			"sso_js_excluded_scripts":        "jquery-core\njquery-migrate",
		}))

		assert.True(t, get("sso_js_delay_until_interaction").Enabled())
		assert.False(t, get("sso_js_move_jquery_footer").Enabled())
		assert.False(t, get("sso_js_defer_non_critical").Enabled())
		assert.Equal(t, "jquery-core\njquery-migrate", get("sso_js_excluded_scripts").String())
	})

	t.Run("other tabs untouched", func(t *testing.T) {
		svc, get := setup(t)
		require.NoError(t, save(t, svc, settings.TabCSS, map[string]string{}))

		assert.False(t, get("sso_css_defer_non_critical").Enabled())
		assert.True(t, get("sso_js_defer_non_critical").Enabled())
		assert.True(t, get("sso_images_lazy_load").Enabled())
	})

	t.Run("textarea is sanitized", func(t *testing.T) {
		svc, get := setup(t)
		require.NoError(t, save(t, svc, settings.TabCSS, map[string]string{
			"sso_css_critical_css": "  body{margin:0}<script>alert(1)</script>\n.hero{color:red}  ",
		}))
		assert.Equal(t, "body{margin:0}\n.hero{color:red}", get("sso_css_critical_css").String())
	})

	t.Run("text field collapses whitespace", func(t *testing.T) {
		svc, get := setup(t)
		require.NoError(t, save(t, svc, settings.TabUpdates, map[string]string{
			"update_method":          "github",
			settings.KeyGithubRepo:   "  acme/<b>speed</b>  ",
			settings.KeyUpdateServer: "",
			settings.KeyAutoUpdates:  "1",
		}))
		assert.Equal(t, "acme/speed", get(settings.KeyGithubRepo).String())
		assert.True(t, get(settings.KeyAutoUpdates).Enabled())
	})

	t.Run("update method only when posted", func(t *testing.T) {
		svc, get := setup(t)
		require.NoError(t, save(t, svc, settings.TabUpdates, map[string]string{"update_method": "custom"}))
		assert.Equal(t, "custom", get(settings.KeyUpdateMethod).String())

		require.NoError(t, save(t, svc, settings.TabUpdates, map[string]string{}))
		assert.Equal(t, "custom", get(settings.KeyUpdateMethod).String())
	})

	t.Run("invalid radio value", func(t *testing.T) {
		svc, get := setup(t)
		err := save(t, svc, settings.TabUpdates, map[string]string{"update_method": "ftp"})
		assert.IsType(t, pkgError.ValidationError(""), err)
		assert.Equal(t, "github", get(settings.KeyUpdateMethod).String())
	})

	t.Run("empty license key keeps stored value", func(t *testing.T) {
		svc, get := setup(t)
		require.NoError(t, save(t, svc, settings.TabUpdates, map[string]string{settings.KeyLicenseKey: "LIC-123"}))
		require.NoError(t, save(t, svc, settings.TabUpdates, map[string]string{settings.KeyLicenseKey: ""}))
		assert.Equal(t, "LIC-123", get(settings.KeyLicenseKey).String())
	})

	t.Run("bad token writes nothing", func(t *testing.T) {
		svc, get := setup(t)
		err := svc.SaveTab(ctx, domainSettings.SaveTabRequest{
			Tab:    settings.TabJavaScript,
			Token:  issue(t, signer, security.ActionApplyPreset),
			User:   testUser,
			Fields: map[string]string{},
		})
		assert.IsType(t, pkgError.InvalidTokenError(""), err)
		assert.True(t, get("sso_js_defer_non_critical").Enabled())
	})

	t.Run("token of another user", func(t *testing.T) {
		svc, _ := setup(t)
		token, err := signer.Issue(security.ActionSettings, "editor")
		require.NoError(t, err)
		err = svc.SaveTab(ctx, domainSettings.SaveTabRequest{Tab: settings.TabCSS, Token: token, User: testUser})
		assert.IsType(t, pkgError.InvalidTokenError(""), err)
	})

	t.Run("unknown tab", func(t *testing.T) {
		svc, _ := setup(t)
		err := save(t, svc, "advanced", nil)
		assert.IsType(t, pkgError.ValidationError(""), err)
	})
}

func TestSettingsService_Views(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewSettingsService(store, newTestSigner())

	require.NoError(t, store.Set(ctx, settings.KeyLicenseKey, settings.StringValue("secret")))

	views, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, views, len(settings.Tabs))

	updates, err := svc.GetTab(ctx, settings.TabUpdates)
	require.NoError(t, err)
	assert.Equal(t, "Updates", updates.Title)

	for _, f := range updates.Fields {
		if f.Key == settings.KeyLicenseKey {
			assert.Empty(t, f.Value.String())
		}
		if f.Key == settings.KeyUpdateMethod {
			assert.Equal(t, "update_method", f.Name)
			assert.Equal(t, "github", f.Value.String())
		}
	}

	_, err = svc.GetTab(ctx, "advanced")
	assert.Equal(t, pkgError.NotFoundError{Kind: "settings tab", Name: "advanced"}, err)
}

func TestSettingsService_ActivateKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewSettingsService(store, newTestSigner())

	require.NoError(t, store.Set(ctx, "sso_js_defer_non_critical", settings.BoolValue(false)))

	n, err := svc.Activate(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)

	v, err := store.Get(ctx, "sso_js_defer_non_critical")
	require.NoError(t, err)
	assert.False(t, v.Enabled())

	again, err := svc.Activate(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a & b", sanitizeText("a &amp; b"))
	assert.Equal(t, "plain", sanitizeText("plain"))
	assert.Equal(t, "one\ntwo", sanitizeTextarea("one\ntwo\n"))
}
