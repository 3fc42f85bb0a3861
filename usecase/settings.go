package usecase

import (
	"context"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	domainSettings "github.com/AzielCF/az-speed/domains/settings"
	pkgError "github.com/AzielCF/az-speed/pkg/error"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/AzielCF/az-speed/validations"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

type serviceSettings struct {
	store  *application.Store
	tokens TokenVerifier
}

func NewSettingsService(store *application.Store, tokens TokenVerifier) domainSettings.ISettingsUsecase {
	return &serviceSettings{store: store, tokens: tokens}
}

func (service serviceSettings) SaveTab(ctx context.Context, request domainSettings.SaveTabRequest) error {
	if err := validations.ValidateSaveTab(ctx, request); err != nil {
		return err
	}
	if err := service.tokens.Verify(request.Token, security.ActionSettings, request.User); err != nil {
		return pkgError.InvalidTokenError("security check failed, reload the page and try again")
	}

	type write struct {
		key   string
		value settings.Value
	}
	var writes []write

	for _, def := range settings.TabFields(request.Tab) {
		raw, posted := request.Fields[def.Field()]
		switch def.Type {
		case settings.FieldBool:
			writes = append(writes, write{def.Key, settings.BoolValue(posted)})
		case settings.FieldText:
			writes = append(writes, write{def.Key, settings.TextValue(sanitizeTextarea(raw))})
		case settings.FieldString:
			v := sanitizeText(raw)
			if def.Sensitive && v == "" {
				continue
			}
			writes = append(writes, write{def.Key, settings.StringValue(v)})
		case settings.FieldRadio:
			// only written when posted
			if !posted {
				continue
			}
			v := sanitizeText(raw)
			if !contains(def.Options, v) {
				return pkgError.ValidationError("invalid value for " + def.Label)
			}
			writes = append(writes, write{def.Key, settings.Value{Type: settings.FieldRadio, Str: v}})
		}
	}

	for _, w := range writes {
		if err := service.store.Set(ctx, w.key, w.value); err != nil {
			return err
		}
	}
	logrus.Infof("[SETTINGS] saved tab %s (%d settings)", request.Tab, len(writes))
	return nil
}

func (service serviceSettings) GetTab(ctx context.Context, tab string) (domainSettings.TabView, error) {
	if err := validations.ValidateTab(tab); err != nil {
		return domainSettings.TabView{}, err
	}
	snapshot, err := service.store.Snapshot(ctx)
	if err != nil {
		return domainSettings.TabView{}, err
	}
	return tabView(tab, snapshot), nil
}

func (service serviceSettings) GetAll(ctx context.Context) ([]domainSettings.TabView, error) {
	snapshot, err := service.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domainSettings.TabView, 0, len(settings.Tabs))
	for _, t := range settings.Tabs {
		views = append(views, tabView(t.ID, snapshot))
	}
	return views, nil
}

func (service serviceSettings) Activate(ctx context.Context) (int, error) {
	return service.store.Activate(ctx)
}

func tabView(tab string, snapshot map[string]settings.Value) domainSettings.TabView {
	view := domainSettings.TabView{ID: tab}
	for _, t := range settings.Tabs {
		if t.ID == tab {
			view.Title = t.Title
		}
	}
	for _, def := range settings.TabFields(tab) {
		v := snapshot[def.Key]
		if def.Sensitive {
			v = settings.StringValue("")
		}
		view.Fields = append(view.Fields, domainSettings.Field{
			Key:         def.Key,
			Name:        def.Field(),
			Type:        def.Type,
			Label:       def.Label,
			Description: def.Description,
			Options:     def.Options,
			Value:       v,
		})
	}
	return view
}

// stripTags drops markup, including the content of script and style
// elements, and returns the text.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<>&") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()
	return doc.Text()
}

// sanitizeTextarea keeps line breaks.
func sanitizeTextarea(s string) string {
	return strings.TrimSpace(stripTags(s))
}

func sanitizeText(s string) string {
	return strings.Join(strings.Fields(stripTags(s)), " ")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
