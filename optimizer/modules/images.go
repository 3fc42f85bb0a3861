package modules

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/AzielCF/az-speed/core/settings/application"
	settings "github.com/AzielCF/az-speed/core/settings/domain"
	"github.com/AzielCF/az-speed/optimizer/pipeline"
	"github.com/AzielCF/az-speed/optimizer/safety"
	"github.com/AzielCF/az-speed/pkg/imageprobe"
	"github.com/AzielCF/az-speed/pkg/utils"
	"github.com/PuerkitoBio/goquery"
)

var alwaysExcludedImages = []string{
	".logo", ".site-logo", ".header-logo", ".hero-image", ".banner-image", "#logo", "#site-logo",
}

// WordPress names resized copies "name-300x200.jpg".
var sizedFilePattern = regexp.MustCompile(`-(\d{1,5})x(\d{1,5})\.[A-Za-z0-9]+$`)

// Images adds missing dimensions and native lazy loading.
type Images struct {
	base
}

func NewImages(opts *application.ModuleSettings, deps Deps) Optimizable {
	return &Images{base: base{name: settings.ModuleImages, opts: opts, deps: deps}}
}

func (m *Images) Init(ctx context.Context, p *pipeline.Pipeline) error {
	if !m.permitted(ctx, p) {
		return nil
	}

	if m.enabled("add_dimensions") {
		p.OnContent("images.add_dimensions", 10, m.addDimensions)
	}
	if m.enabled("lazy_load") {
		p.OnContent("images.lazy_load", 10, m.lazyLoad)
	}
	return nil
}

func (m *Images) addDimensions(doc *pipeline.Document) error {
	doc.Body().Find("img").Each(func(_ int, img *goquery.Selection) {
		_, hasW := img.Attr("width")
		_, hasH := img.Attr("height")
		if hasW && hasH {
			return
		}
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") || !safety.IsInternalURL(src, doc.SiteHost()) {
			return
		}

		dims, ok := m.dimensions(src)
		if !ok {
			return
		}
		if !hasW {
			img.SetAttr("width", strconv.Itoa(dims.Width))
		}
		if !hasH {
			img.SetAttr("height", strconv.Itoa(dims.Height))
		}
		m.debugf("added dimensions to %s", src)
	})
	return nil
}

func (m *Images) dimensions(src string) (imageprobe.Dimensions, bool) {
	if m.deps.Images != nil {
		if path, ok := utils.ResolveAssetPath(m.deps.DocumentRoot, src); ok {
			if dims, err := m.deps.Images.Probe(path); err == nil && dims.Width > 0 && dims.Height > 0 {
				return dims, true
			}
		}
	}

	p := src
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	match := sizedFilePattern.FindStringSubmatch(p)
	if match == nil {
		return imageprobe.Dimensions{}, false
	}
	w, _ := strconv.Atoi(match[1])
	h, _ := strconv.Atoi(match[2])
	if w == 0 || h == 0 {
		return imageprobe.Dimensions{}, false
	}
	return imageprobe.Dimensions{Width: w, Height: h}, true
}

func (m *Images) exclusions() []string {
	return append(append([]string{}, alwaysExcludedImages...), m.opts.List("exclude_above_fold")...)
}

func (m *Images) lazyLoad(doc *pipeline.Document) error {
	selectors := m.exclusions()
	doc.Body().Find("img").Each(func(_ int, img *goquery.Selection) {
		if _, ok := img.Attr("loading"); ok {
			return
		}
		if strings.EqualFold(img.AttrOr("fetchpriority", ""), "high") {
			return
		}
		if isExcludedImage(img, selectors) {
			return
		}
		img.SetAttr("loading", "lazy")
	})
	return nil
}

// isExcludedImage matches the image against CSS selectors, itself or an
// ancestor, and also by class fragment, exact id or alt text.
func isExcludedImage(img *goquery.Selection, selectors []string) bool {
	class := img.AttrOr("class", "")
	id := img.AttrOr("id", "")
	alt := strings.ToLower(img.AttrOr("alt", ""))

	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if img.Closest(sel).Length() > 0 {
			return true
		}
		switch {
		case strings.HasPrefix(sel, "."):
			if strings.Contains(class, sel[1:]) {
				return true
			}
		case strings.HasPrefix(sel, "#"):
			if id == sel[1:] {
				return true
			}
		}
		if alt != "" && strings.Contains(alt, strings.ToLower(sel)) {
			return true
		}
	}
	return false
}
