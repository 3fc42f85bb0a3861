package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/AzielCF/az-speed/core/config"
	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	transient "github.com/AzielCF/az-speed/core/transient/domain"
	domainUpdate "github.com/AzielCF/az-speed/domains/update"
	pkgError "github.com/AzielCF/az-speed/pkg/error"
	"github.com/AzielCF/az-speed/pkg/metrics"
	"github.com/AzielCF/az-speed/pkg/security"
	"github.com/AzielCF/az-speed/validations"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"golang.org/x/mod/semver"
	"golang.org/x/sync/singleflight"
)

const pluginName = "UX-Sites-Optimiser"

type serviceUpdate struct {
	cfg    config.UpdatesConfig
	store  *application.Store
	cache  transient.Store
	tokens TokenVerifier
	client *fasthttp.Client
	now    func() time.Time
	group  singleflight.Group
}

func NewUpdateService(cfg config.UpdatesConfig, store *application.Store, cache transient.Store, tokens TokenVerifier) domainUpdate.IUpdateUsecase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 12 * time.Hour
	}
	if cfg.GithubAPIBase == "" {
		cfg.GithubAPIBase = "https://api.github.com"
	}
	return &serviceUpdate{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		tokens: tokens,
		client: &fasthttp.Client{Name: userAgent(cfg.CurrentVersion), ReadTimeout: cfg.Timeout, WriteTimeout: cfg.Timeout},
		now:    time.Now,
	}
}

func userAgent(version string) string {
	return pluginName + "/" + version
}

// cacheKey is stable for a plugin slug.
func cacheKey(slug string) string {
	sum := md5.Sum([]byte(slug))
	return transient.KeyUpdateInfoPrefix + hex.EncodeToString(sum[:])
}

func (service *serviceUpdate) CheckForUpdate(ctx context.Context, force bool) domainUpdate.CheckResult {
	key := cacheKey(service.cfg.PluginSlug)

	if force {
		if err := service.cache.Delete(ctx, key); err != nil {
			logrus.WithError(err).Debug("[UPDATES] failed to clear cached update info")
		}
	} else if info := service.cached(ctx, key); info != nil {
		metrics.UpdateChecks.WithLabelValues("cache").Inc()
		return service.result(info)
	}

	v, _, _ := service.group.Do(key, func() (interface{}, error) {
		info := service.fetch(ctx)
		if info == nil {
			return (*domainUpdate.Info)(nil), nil
		}
		if raw, err := json.Marshal(info); err == nil {
			if err := service.cache.Set(ctx, key, string(raw), service.cfg.CacheTTL); err != nil {
				logrus.WithError(err).Debug("[UPDATES] failed to cache update info")
			}
		}
		return info, nil
	})
	return service.result(v.(*domainUpdate.Info))
}

func (service *serviceUpdate) ManualCheck(ctx context.Context, request domainUpdate.CheckRequest) (domainUpdate.CheckResult, error) {
	if err := service.tokens.Verify(request.Token, security.ActionCheckUpdates, request.User); err != nil {
		return domainUpdate.CheckResult{}, pkgError.InvalidTokenError("security check failed")
	}
	return service.CheckForUpdate(ctx, true), nil
}

func (service *serviceUpdate) LastCheck(ctx context.Context) (time.Time, bool) {
	raw, found, err := service.cache.Get(ctx, transient.KeyLastUpdateCheck)
	if err != nil || !found {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, err == nil
}

func (service *serviceUpdate) cached(ctx context.Context, key string) *domainUpdate.Info {
	raw, found, err := service.cache.Get(ctx, key)
	if err != nil || !found {
		return nil
	}
	var info domainUpdate.Info
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil
	}
	return &info
}

func (service *serviceUpdate) result(info *domainUpdate.Info) domainUpdate.CheckResult {
	res := domainUpdate.CheckResult{CurrentVersion: service.cfg.CurrentVersion, Info: info}
	if info == nil {
		return res
	}
	res.NewVersion = info.NewVersion
	res.UpdateAvailable = IsNewer(service.cfg.CurrentVersion, info.NewVersion)
	return res
}

// IsNewer compares two plugin versions. Versions that are not valid
// semver never count as newer.
func IsNewer(current, candidate string) bool {
	c, n := canonical(current), canonical(candidate)
	if !semver.IsValid(c) || !semver.IsValid(n) {
		return false
	}
	return semver.Compare(c, n) < 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	return "v" + strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
}

// fetch asks the configured source. Every failure is logged at debug
// level and reported as "no update".
func (service *serviceUpdate) fetch(ctx context.Context) *domainUpdate.Info {
	provider, err := service.provider(ctx)
	if err != nil {
		logrus.WithError(err).Debug("[UPDATES] update source not usable")
		metrics.UpdateChecks.WithLabelValues("error").Inc()
		return nil
	}

	info, err := provider.Latest(ctx)
	if err != nil {
		logrus.WithError(err).Debugf("[UPDATES] %s check failed", provider.Name())
		metrics.UpdateChecks.WithLabelValues("error").Inc()
		return nil
	}
	metrics.UpdateChecks.WithLabelValues(provider.Name()).Inc()

	info.Slug = service.cfg.PluginSlug
	info.Source = provider.Name()
	info.CheckedAt = service.now().UTC()
	if err := service.cache.Set(ctx, transient.KeyLastUpdateCheck, info.CheckedAt.Format(time.RFC3339), 0); err != nil {
		logrus.WithError(err).Debug("[UPDATES] failed to store last check time")
	}
	return info
}

func (service *serviceUpdate) setting(ctx context.Context, key string) string {
	v, err := service.store.Get(ctx, key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v.String())
}

func (service *serviceUpdate) provider(ctx context.Context) (domainUpdate.Provider, error) {
	method := service.setting(ctx, settings.KeyUpdateMethod)
	repo := service.setting(ctx, settings.KeyGithubRepo)
	server := service.setting(ctx, settings.KeyUpdateServer)
	if err := validations.ValidateUpdateSource(method, repo, server); err != nil {
		return nil, err
	}

	if method == domainUpdate.MethodCustom {
		return &customProvider{
			client:  service.client,
			timeout: service.cfg.Timeout,
			server:  server,
			form: url.Values{
				"action":          {"get_version"},
				"plugin_slug":     {path.Dir(service.cfg.PluginSlug)},
				"current_version": {service.cfg.CurrentVersion},
				"site_url":        {service.cfg.SiteURL},
				"license_key":     {service.setting(ctx, settings.KeyLicenseKey)},
			},
		}, nil
	}
	return &githubProvider{
		client:  service.client,
		timeout: service.cfg.Timeout,
		url:     strings.TrimSuffix(service.cfg.GithubAPIBase, "/") + "/repos/" + repo + "/releases/latest",
		version: service.cfg.CurrentVersion,
	}, nil
}

// do runs one request, bounded by the timeout and the context deadline.
func do(ctx context.Context, client *fasthttp.Client, timeout time.Duration, req *fasthttp.Request, resp *fasthttp.Response) error {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := client.DoDeadline(req, resp, deadline); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return nil
}

type githubRelease struct {
	TagName    string `json:"tag_name"`
	HTMLURL    string `json:"html_url"`
	Body       string `json:"body"`
	ZipballURL string `json:"zipball_url"`
	Assets     []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

type githubProvider struct {
	client  *fasthttp.Client
	timeout time.Duration
	url     string
	version string
}

func (p *githubProvider) Name() string { return domainUpdate.MethodGithub }

func (p *githubProvider) Latest(ctx context.Context) (*domainUpdate.Info, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", userAgent(p.version))
	req.Header.Set("Accept", "application/vnd.github+json")

	if err := do(ctx, p.client, p.timeout, req, resp); err != nil {
		return nil, fmt.Errorf("github releases: %w", err)
	}

	var rel githubRelease
	if err := json.Unmarshal(resp.Body(), &rel); err != nil {
		return nil, fmt.Errorf("github releases: %w", err)
	}
	if rel.TagName == "" {
		return nil, fmt.Errorf("github releases: missing tag_name")
	}

	info := &domainUpdate.Info{
		NewVersion: strings.TrimPrefix(rel.TagName, "v"),
		URL:        rel.HTMLURL,
		Changelog:  rel.Body,
	}
	for _, a := range rel.Assets {
		if strings.Contains(a.Name, ".zip") {
			info.Package = a.BrowserDownloadURL
			break
		}
	}
	if info.Package == "" {
		info.Package = rel.ZipballURL
	}
	if info.Changelog == "" {
		info.Changelog = "See GitHub release for details."
	}
	return info, nil
}

type customRelease struct {
	NewVersion  string `json:"new_version"`
	DownloadURL string `json:"download_url"`
	DetailsURL  string `json:"details_url"`
	Changelog   string `json:"changelog"`
	Tested      string `json:"tested"`
	RequiresPHP string `json:"requires_php"`
}

type customProvider struct {
	client  *fasthttp.Client
	timeout time.Duration
	server  string
	form    url.Values
}

func (p *customProvider) Name() string { return domainUpdate.MethodCustom }

func (p *customProvider) Latest(ctx context.Context) (*domainUpdate.Info, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.server)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/x-www-form-urlencoded")
	req.SetBodyString(p.form.Encode())

	if err := do(ctx, p.client, p.timeout, req, resp); err != nil {
		return nil, fmt.Errorf("update server: %w", err)
	}

	var rel customRelease
	if err := json.Unmarshal(resp.Body(), &rel); err != nil {
		return nil, fmt.Errorf("update server: %w", err)
	}
	if rel.NewVersion == "" {
		return nil, fmt.Errorf("update server: missing new_version")
	}
	return &domainUpdate.Info{
		NewVersion:  rel.NewVersion,
		URL:         rel.DetailsURL,
		Package:     rel.DownloadURL,
		Changelog:   rel.Changelog,
		Tested:      rel.Tested,
		RequiresPHP: rel.RequiresPHP,
	}, nil
}
