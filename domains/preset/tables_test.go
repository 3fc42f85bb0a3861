package preset

import (
	"testing"

	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables_CoverSchemaKeys(t *testing.T) {
	for _, p := range All() {
		require.Len(t, p.Entries, 24, p.Name)
		seen := map[string]bool{}
		for _, e := range p.Entries {
			def, ok := settings.Lookup(e.Key)
			require.True(t, ok, e.Key)
			assert.Equal(t, def.Type, e.Value.Type, e.Key)
			assert.False(t, seen[e.Key], "duplicate %s", e.Key)
			seen[e.Key] = true
		}
	}
}

func value(p Preset, key string) settings.Value {
	for _, e := range p.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return settings.Value{}
}

// Every toggle enabled by a preset stays enabled in the more aggressive ones.
func TestTables_OrderedByAggressiveness(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		for _, e := range all[i-1].Entries {
			if e.Value.IsBool() && e.Value.Bool {
				assert.True(t, value(all[i], e.Key).Bool, "%s in %s", e.Key, all[i].Name)
			}
		}
	}
}

func TestTables_NeverAffectLoggedInUsers(t *testing.T) {
	for _, p := range All() {
		assert.False(t, value(p, settings.KeyAffectLoggedInUsers).Bool, p.Name)
	}
	risky, _ := Get(Risky)
	assert.True(t, value(risky, "sso_fonts_disable_google").Bool)
	assert.True(t, value(risky, "sso_js_delay_until_interaction").Bool)

	_, ok := Get("extreme")
	assert.False(t, ok)
}
