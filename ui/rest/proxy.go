package rest

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/AzielCF/az-speed/core/config"
	"github.com/AzielCF/az-speed/optimizer"
	"github.com/AzielCF/az-speed/optimizer/domain"
	"github.com/AzielCF/az-speed/pkg/metrics"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// Proxy forwards visitor requests to the origin and optimizes the HTML
// documents that come back.
type Proxy struct {
	engine  *optimizer.Engine
	client  *fasthttp.Client
	origin  *url.URL
	timeout time.Duration
}

func NewProxy(engine *optimizer.Engine, cfg config.OriginConfig) (*Proxy, error) {
	origin, err := url.Parse(strings.TrimSuffix(cfg.URL, "/"))
	if err != nil || origin.Host == "" {
		return nil, fmt.Errorf("invalid origin URL %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Proxy{
		engine: engine,
		client: &fasthttp.Client{
			Name:                     "az-speed",
			MaxResponseBodySize:      cfg.MaxBodyBytes,
			NoDefaultUserAgentHeader: true,
			DisablePathNormalizing:   true,
		},
		origin:  origin,
		timeout: cfg.Timeout,
	}, nil
}

// InitProxy registers the catch-all route. It must be the last route.
func InitProxy(app fiber.Router, proxy *Proxy) {
	app.All("/*", proxy.Handle)
}

func (p *Proxy) Handle(c *fiber.Ctx) error {
	ctx := c.UserContext()
	plan := p.engine.Prepare(ctx, requestInfo(c))

	if in := plan.Intercept(ctx); in != nil {
		if in.ContentType != "" {
			c.Set(fiber.HeaderContentType, in.ContentType)
		}
		return c.Status(in.Status).SendString(in.Body)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	c.Request().CopyTo(req)
	req.SetRequestURI(p.origin.Scheme + "://" + p.origin.Host + string(c.Request().URI().RequestURI()))
	req.Header.SetHost(p.origin.Host)
	req.Header.Set(fiber.HeaderXForwardedHost, c.Hostname())
	req.Header.Set(fiber.HeaderXForwardedProto, c.Protocol())
	req.Header.Set(fiber.HeaderXForwardedFor, c.IP())

	optimizing := plan.Decision.Safe && !plan.Emergency
	if optimizing {
		// only gzip is decoded below
		if strings.Contains(c.Get(fiber.HeaderAcceptEncoding), "gzip") {
			req.Header.Set(fiber.HeaderAcceptEncoding, "gzip")
		} else {
			req.Header.Del(fiber.HeaderAcceptEncoding)
		}
	}

	if err := p.client.DoTimeout(req, resp, p.timeout); err != nil {
		metrics.OriginRequests.WithLabelValues("error").Inc()
		logrus.WithError(err).WithField("path", c.Path()).Error("[PROXY] origin request failed")
		return c.Status(fiber.StatusBadGateway).SendString("Bad Gateway")
	}
	metrics.OriginRequests.WithLabelValues(metrics.StatusClass(resp.StatusCode())).Inc()

	p.rewriteLocation(&resp.Header, plan.RC)
	plan.FilterHeaders(ctx, &responseHeader{h: &resp.Header})

	resp.CopyTo(c.Response())

	if resp.StatusCode() != fiber.StatusOK || !isHTML(resp.Header.ContentType()) {
		return nil
	}
	if !optimizing {
		plan.Skip(len(resp.Body()))
		return nil
	}

	body, err := decodeBody(resp)
	if err != nil {
		logrus.WithError(err).WithField("path", c.Path()).Debug("[PROXY] cannot decode origin body, passing through")
		return nil
	}
	out := plan.Apply(ctx, body)
	c.Response().Header.Del(fiber.HeaderContentEncoding)
	c.Response().SetBody(out)
	return nil
}

// requestInfo maps the fiber request onto the optimizer's request view.
// Every string is copied: the plan outlives the request buffers.
func requestInfo(c *fiber.Ctx) domain.RequestInfo {
	info := domain.RequestInfo{
		Method:        fiberUtils.CopyString(c.Method()),
		Scheme:        fiberUtils.CopyString(c.Protocol()),
		Host:          fiberUtils.CopyString(c.Hostname()),
		Path:          fiberUtils.CopyString(c.Path()),
		RawQuery:      string(c.Request().URI().QueryString()),
		RequestedWith: fiberUtils.CopyString(c.Get(fiber.HeaderXRequestedWith)),
	}
	c.Request().Header.VisitAllCookie(func(key, _ []byte) {
		info.Cookies = append(info.Cookies, string(key))
	})
	return info
}

// rewriteLocation points origin redirects back at the public host.
func (p *Proxy) rewriteLocation(h *fasthttp.ResponseHeader, rc domain.RequestContext) {
	loc := string(h.Peek(fiber.HeaderLocation))
	if loc == "" {
		return
	}
	base := p.origin.Scheme + "://" + p.origin.Host
	if loc == base || strings.HasPrefix(loc, base+"/") {
		h.Set(fiber.HeaderLocation, rc.SiteURL()+strings.TrimPrefix(loc, base))
	}
}

func isHTML(contentType []byte) bool {
	return bytes.HasPrefix(bytes.ToLower(bytes.TrimSpace(contentType)), []byte("text/html"))
}

func decodeBody(resp *fasthttp.Response) ([]byte, error) {
	switch enc := strings.ToLower(string(resp.Header.ContentEncoding())); enc {
	case "":
		return resp.Body(), nil
	case "gzip":
		return resp.BodyGunzip()
	default:
		return nil, fmt.Errorf("unsupported content encoding %s", enc)
	}
}

// responseHeader adapts fasthttp response headers to pipeline.Header.
type responseHeader struct {
	h *fasthttp.ResponseHeader
}

func (r *responseHeader) Get(key string) string {
	return string(r.h.Peek(key))
}

func (r *responseHeader) Values(key string) []string {
	var out []string
	for _, v := range r.h.PeekAll(key) {
		out = append(out, string(v))
	}
	return out
}

func (r *responseHeader) Set(key, value string) { r.h.Set(key, value) }
func (r *responseHeader) Add(key, value string) { r.h.Add(key, value) }
func (r *responseHeader) Del(key string)        { r.h.Del(key) }
