package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AzielCF/az-speed/optimizer/domain"
)

// HookPoint is one stage of the rendering driver.
type HookPoint string

const (
	PointRequest   HookPoint = "request"
	PointHeaders   HookPoint = "headers"
	PointEnqueue   HookPoint = "enqueue"
	PointScriptTag HookPoint = "script_tag"
	PointStyleTag  HookPoint = "style_tag"
	PointContent   HookPoint = "content"
	PointHead      HookPoint = "head"
	PointFooter    HookPoint = "footer"
)

// HeadEarlyPriority splits head fragments: below it they are printed
// before the page's own styles and scripts, from it on after them.
const HeadEarlyPriority = 8

// Interception answers a request without contacting the origin.
type Interception struct {
	Status      int
	ContentType string
	Body        string
}

// Header is the response header view given to header hooks. http.Header
// satisfies it.
type Header interface {
	Get(key string) string
	Values(key string) []string
	Set(key, value string)
	Add(key, value string)
	Del(key string)
}

type (
	RequestFunc  func(rc domain.RequestContext) *Interception
	HeadersFunc  func(h Header) error
	DocumentFunc func(doc *Document) error
	TagFunc      func(doc *Document, a *Asset) error
	FragmentFunc func(doc *Document) (string, error)
)

// Registration describes a registered hook.
type Registration struct {
	Point    HookPoint `json:"point"`
	Name     string    `json:"name"`
	Priority int       `json:"priority"`
}

type hook struct {
	Registration
	seq      int
	request  RequestFunc
	headers  HeadersFunc
	document DocumentFunc
	tag      TagFunc
	fragment FragmentFunc
}

// Pipeline is the ordered list of hooks assembled for one request.
// Hooks of a point run by ascending priority, then registration order.
type Pipeline struct {
	rc    domain.RequestContext
	hooks []hook
	seq   int
}

func New(rc domain.RequestContext) *Pipeline {
	return &Pipeline{rc: rc}
}

func (p *Pipeline) Context() domain.RequestContext {
	return p.rc
}

func (p *Pipeline) add(h hook) {
	h.seq = p.seq
	p.seq++
	p.hooks = append(p.hooks, h)
}

func (p *Pipeline) OnRequest(name string, priority int, fn RequestFunc) {
	p.add(hook{Registration: Registration{PointRequest, name, priority}, request: fn})
}

func (p *Pipeline) OnHeaders(name string, priority int, fn HeadersFunc) {
	p.add(hook{Registration: Registration{PointHeaders, name, priority}, headers: fn})
}

func (p *Pipeline) OnEnqueue(name string, priority int, fn DocumentFunc) {
	p.add(hook{Registration: Registration{PointEnqueue, name, priority}, document: fn})
}

func (p *Pipeline) OnScriptTag(name string, priority int, fn TagFunc) {
	p.add(hook{Registration: Registration{PointScriptTag, name, priority}, tag: fn})
}

func (p *Pipeline) OnStyleTag(name string, priority int, fn TagFunc) {
	p.add(hook{Registration: Registration{PointStyleTag, name, priority}, tag: fn})
}

func (p *Pipeline) OnContent(name string, priority int, fn DocumentFunc) {
	p.add(hook{Registration: Registration{PointContent, name, priority}, document: fn})
}

func (p *Pipeline) OnHead(name string, priority int, fn FragmentFunc) {
	p.add(hook{Registration: Registration{PointHead, name, priority}, fragment: fn})
}

func (p *Pipeline) OnFooter(name string, priority int, fn FragmentFunc) {
	p.add(hook{Registration: Registration{PointFooter, name, priority}, fragment: fn})
}

// Len is the number of registered hooks.
func (p *Pipeline) Len() int {
	return len(p.hooks)
}

// Registrations lists hooks in execution order, point by point.
func (p *Pipeline) Registrations() []Registration {
	var out []Registration
	for _, point := range []HookPoint{PointRequest, PointHeaders, PointEnqueue, PointScriptTag, PointStyleTag, PointContent, PointHead, PointFooter} {
		for _, h := range p.ordered(point) {
			out = append(out, h.Registration)
		}
	}
	return out
}

// HasDocumentHooks reports whether Render would change anything.
func (p *Pipeline) HasDocumentHooks() bool {
	for _, h := range p.hooks {
		if h.Point != PointRequest && h.Point != PointHeaders {
			return true
		}
	}
	return false
}

func (p *Pipeline) ordered(point HookPoint) []hook {
	var out []hook
	for _, h := range p.hooks {
		if h.Point == point {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// call runs fn and turns a panic into an error naming the hook.
func call(h hook, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s hook %s panicked: %v", h.Point, h.Name, r)
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("%s hook %s: %w", h.Point, h.Name, err)
	}
	return nil
}

// Intercept returns the first interception produced by a request hook.
func (p *Pipeline) Intercept() (*Interception, error) {
	for _, h := range p.ordered(PointRequest) {
		var res *Interception
		if err := call(h, func() error {
			res = h.request(p.rc)
			return nil
		}); err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	return nil, nil
}

// FilterHeaders lets header hooks edit the origin response headers.
func (p *Pipeline) FilterHeaders(hdr Header) error {
	for _, h := range p.ordered(PointHeaders) {
		if err := call(h, func() error { return h.headers(hdr) }); err != nil {
			return err
		}
	}
	return nil
}

// Render parses body, runs the document hooks and returns the new markup.
// Any hook failure aborts the whole render; callers then serve body as is.
func (p *Pipeline) Render(body []byte) ([]byte, error) {
	doc, err := ParseDocument(body, p.rc)
	if err != nil {
		return nil, err
	}

	if err := p.runDocument(PointEnqueue, doc); err != nil {
		return nil, err
	}
	if err := p.runTags(PointScriptTag, doc, doc.Scripts()); err != nil {
		return nil, err
	}
	if err := p.runTags(PointStyleTag, doc, doc.Styles()); err != nil {
		return nil, err
	}
	if err := p.runDocument(PointContent, doc); err != nil {
		return nil, err
	}
	if err := p.printHead(doc); err != nil {
		return nil, err
	}
	if err := p.printFooter(doc); err != nil {
		return nil, err
	}

	html, err := doc.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}
	return []byte(html), nil
}

func (p *Pipeline) runDocument(point HookPoint, doc *Document) error {
	for _, h := range p.ordered(point) {
		if err := call(h, func() error { return h.document(doc) }); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runTags(point HookPoint, doc *Document, assets []*Asset) error {
	hooks := p.ordered(point)
	if len(hooks) == 0 {
		return nil
	}
	for _, a := range assets {
		for _, h := range hooks {
			if a.Removed() {
				break
			}
			if err := call(h, func() error { return h.tag(doc, a) }); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) fragments(point HookPoint, doc *Document, keep func(priority int) bool) (string, error) {
	var b strings.Builder
	for _, h := range p.ordered(point) {
		if !keep(h.Priority) {
			continue
		}
		var frag string
		if err := call(h, func() error {
			var err error
			frag, err = h.fragment(doc)
			return err
		}); err != nil {
			return "", err
		}
		if frag = strings.TrimSpace(frag); frag != "" {
			b.WriteString(frag)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (p *Pipeline) printHead(doc *Document) error {
	early, err := p.fragments(PointHead, doc, func(pr int) bool { return pr < HeadEarlyPriority })
	if err != nil {
		return err
	}
	late, err := p.fragments(PointHead, doc, func(pr int) bool { return pr >= HeadEarlyPriority })
	if err != nil {
		return err
	}

	head := doc.Head()
	if early != "" {
		if anchor := head.Find("link, style, script").First(); anchor.Length() > 0 {
			anchor.BeforeHtml(early)
		} else {
			head.AppendHtml(early)
		}
	}
	if late != "" {
		head.AppendHtml(late)
	}
	return nil
}

func (p *Pipeline) printFooter(doc *Document) error {
	footer, err := p.fragments(PointFooter, doc, func(int) bool { return true })
	if err != nil {
		return err
	}
	if footer != "" {
		doc.Body().AppendHtml(footer)
	}
	return nil
}
