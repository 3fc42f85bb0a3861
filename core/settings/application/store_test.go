package application

import (
	"context"
	"testing"

	"github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/core/settings/infrastructure"
	"github.com/AzielCF/az-speed/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *infrastructure.MemorySettingsRepository) {
	repo := infrastructure.NewMemorySettingsRepository()
	return NewStore(repo, crypto.NewSealer("test-secret")), repo
}

func TestStore_GetFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	v, err := store.Get(ctx, "sso_js_excluded_scripts")
	require.NoError(t, err)
	assert.Equal(t, "jquery-core", v.String())

	v, err = store.Get(ctx, domain.KeyAffectLoggedInUsers)
	require.NoError(t, err)
	assert.True(t, v.IsBool())
	assert.False(t, v.Bool)
}

func TestStore_CoercesAtTheBoundary(t *testing.T) {
	ctx := context.Background()
	store, repo := newTestStore()

	require.NoError(t, store.Set(ctx, "sso_js_defer_non_critical", domain.BoolValue(true)))
	raw, _, _ := repo.Get(ctx, "sso_js_defer_non_critical")
	assert.Equal(t, "1", raw)

	require.NoError(t, repo.Set(ctx, "sso_css_defer_non_critical", "yes"))
	v, err := store.Get(ctx, "sso_css_defer_non_critical")
	require.NoError(t, err)
	assert.True(t, v.IsBool())
	assert.True(t, v.Bool)
}

func TestStore_SealsSensitiveValues(t *testing.T) {
	ctx := context.Background()
	store, repo := newTestStore()

	require.NoError(t, store.Set(ctx, domain.KeyLicenseKey, domain.StringValue("LIC-42")))

	raw, _, _ := repo.Get(ctx, domain.KeyLicenseKey)
	assert.NotEqual(t, "LIC-42", raw)

	v, err := store.Get(ctx, domain.KeyLicenseKey)
	require.NoError(t, err)
	assert.Equal(t, "LIC-42", v.String())
}

func TestStore_ModuleSnapshot(t *testing.T) {
	ctx := context.Background()
	store, repo := newTestStore()

	require.NoError(t, repo.Set(ctx, "sso_js_defer_non_critical", "0"))
	require.NoError(t, repo.Set(ctx, "sso_js_excluded_scripts", "jquery-core,\ncontact-form-7"))

	js, err := store.Module(ctx, domain.ModuleJavaScript)
	require.NoError(t, err)

	assert.False(t, js.IsEnabled("defer_non_critical"))
	assert.True(t, js.IsEnabled("move_jquery_footer"), "absent keys resolve to their default")
	assert.Equal(t, []string{"jquery-core", "contact-form-7"}, js.List("excluded_scripts"))

	// the snapshot does not see writes made after it was taken
	require.NoError(t, repo.Set(ctx, "sso_js_defer_non_critical", "1"))
	assert.False(t, js.IsEnabled("defer_non_critical"))
}

func TestModuleSettings_IsEnabledAcceptsStringOne(t *testing.T) {
	m := NewModuleSettings(domain.ModuleCore, map[string]domain.Value{
		"remove_wp_embed":      domain.StringValue("1"),
		"disable_xmlrpc":       domain.StringValue("true"),
		"remove_query_strings": domain.BoolValue(false),
	})

	assert.True(t, m.IsEnabled("remove_wp_embed"))
	assert.False(t, m.IsEnabled("disable_xmlrpc"))
	assert.False(t, m.IsEnabled("remove_query_strings"))
	assert.False(t, m.IsEnabled("does_not_exist"))
}

func TestStore_ActivateIsAddIfAbsent(t *testing.T) {
	ctx := context.Background()
	store, repo := newTestStore()

	require.NoError(t, repo.Set(ctx, "sso_js_defer_non_critical", "0"))

	written, err := store.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18, written)

	v, _ := store.Get(ctx, "sso_js_defer_non_critical")
	assert.False(t, v.Enabled(), "existing values are kept")

	_, found, _ := repo.Get(ctx, "sso_fonts_disable_google")
	assert.False(t, found, "keys outside the activation set are not written")

	_, found, _ = repo.Get(ctx, "sso_css_defer_non_critical")
	assert.True(t, found)

	again, err := store.Activate(ctx)
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap, len(domain.Schema))
	assert.Equal(t, "github", snap[domain.KeyUpdateMethod].String())
}
