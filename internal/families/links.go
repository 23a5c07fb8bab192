package families

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/roach88/vtree/internal/ir"
	"github.com/roach88/vtree/internal/pipeline"
)

// BrokenAttr marks links the checker could not reach.
const BrokenAttr = "data-broken"

// Link checker defaults.
const (
	DefaultCheckConcurrency = 8
	DefaultCheckTimeout     = 10 * time.Second
	DefaultCheckRate        = rate.Limit(20)
)

// LinkStatus is the outcome of checking one URL.
type LinkStatus struct {
	URL    string
	Status int
	Err    error
}

// Broken reports whether the URL failed to resolve to a non-error response.
func (s LinkStatus) Broken() bool {
	return s.Err != nil || s.Status >= 400
}

func (s LinkStatus) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: %v", s.URL, s.Err)
	}
	return fmt.Sprintf("%s: %d", s.URL, s.Status)
}

// BrokenLinksError is returned by a strict LinkChecker.
type BrokenLinksError struct {
	Path  string
	Links []LinkStatus
}

func (e *BrokenLinksError) Error() string {
	parts := make([]string, len(e.Links))
	for i, l := range e.Links {
		parts[i] = l.String()
	}
	return fmt.Sprintf("%s: %d broken links: %s", e.Path, len(e.Links), strings.Join(parts, "; "))
}

// LinkChecker validates external links over HTTP and flags the broken ones
// with BrokenAttr. Requests are bounded both in concurrency and in rate.
type LinkChecker struct {
	client      *http.Client
	limiter     *rate.Limiter
	concurrency int
	enabled     bool
	strict      bool
	logger      *slog.Logger
}

// LinkCheckerOption configures a LinkChecker.
type LinkCheckerOption func(*LinkChecker)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) LinkCheckerOption {
	return func(lc *LinkChecker) {
		lc.client = c
	}
}

// WithConcurrency bounds the number of requests in flight.
func WithConcurrency(n int) LinkCheckerOption {
	return func(lc *LinkChecker) {
		if n > 0 {
			lc.concurrency = n
		}
	}
}

// WithRate limits requests per second. rate.Inf disables limiting.
func WithRate(r rate.Limit, burst int) LinkCheckerOption {
	return func(lc *LinkChecker) {
		lc.limiter = rate.NewLimiter(r, max(burst, 1))
	}
}

// WithStrict makes broken links fail the transform.
func WithStrict(strict bool) LinkCheckerOption {
	return func(lc *LinkChecker) {
		lc.strict = strict
	}
}

// WithNetwork enables or disables network checks. A disabled checker
// leaves the tree untouched and still grants LinksChecked.
func WithNetwork(enabled bool) LinkCheckerOption {
	return func(lc *LinkChecker) {
		lc.enabled = enabled
	}
}

// WithCheckerLogger sets the logger.
func WithCheckerLogger(l *slog.Logger) LinkCheckerOption {
	return func(lc *LinkChecker) {
		lc.logger = l
	}
}

// NewLinkChecker creates a checker with network checks enabled.
func NewLinkChecker(opts ...LinkCheckerOption) *LinkChecker {
	lc := &LinkChecker{
		client:      &http.Client{Timeout: DefaultCheckTimeout},
		limiter:     rate.NewLimiter(DefaultCheckRate, DefaultCheckConcurrency),
		concurrency: DefaultCheckConcurrency,
		enabled:     true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(lc)
	}
	return lc
}

// Descriptor implements pipeline.Transform.
func (lc *LinkChecker) Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:     "link-checker",
		Provides: ir.CapLinksChecked,
		Input:    ir.PhaseIndexed,
		Output:   ir.PhaseIndexed,
	}
}

// Apply implements pipeline.Transform.
func (lc *LinkChecker) Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
	if !lc.enabled {
		return nil, nil
	}
	links := elements(doc.Root, ir.FamilyLink)
	var urls []string
	for _, n := range links {
		if u, ok := externalURL(n); ok && !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, nil
	}

	statuses, err := lc.Check(ctx, urls)
	if err != nil {
		return nil, err
	}
	byURL := make(map[string]LinkStatus, len(statuses))
	var broken []LinkStatus
	for _, s := range statuses {
		byURL[s.URL] = s
		if s.Broken() {
			broken = append(broken, s)
		}
	}
	lc.logger.Debug("links checked",
		"path", doc.Path,
		"checked", len(urls),
		"broken", len(broken),
	)
	if lc.strict && len(broken) > 0 {
		return nil, &BrokenLinksError{Path: doc.Path, Links: broken}
	}

	changed := false
	for _, n := range links {
		u, ok := externalURL(n)
		if !ok {
			continue
		}
		if byURL[u].Broken() {
			changed = n.SetAttr(BrokenAttr, "true") || changed
		} else {
			changed = n.RemoveAttr(BrokenAttr) || changed
		}
	}
	if !changed {
		return nil, nil
	}
	return doc.Root, nil
}

// Check requests every URL and returns their statuses in input order.
// Request failures are reported per URL; the returned error is non-nil
// only when ctx ends first.
func (lc *LinkChecker) Check(ctx context.Context, urls []string) ([]LinkStatus, error) {
	out := make([]LinkStatus, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lc.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			if err := lc.limiter.Wait(gctx); err != nil {
				return err
			}
			out[i] = lc.check(gctx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check links: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("check links: %w", err)
	}
	return out, nil
}

func (lc *LinkChecker) check(ctx context.Context, u string) LinkStatus {
	status, err := lc.request(ctx, http.MethodHead, u)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = lc.request(ctx, http.MethodGet, u)
	}
	return LinkStatus{URL: u, Status: status, Err: err}
}

func (lc *LinkChecker) request(ctx context.Context, method, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := lc.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// externalURL returns the absolute URL of an external link.
func externalURL(n *ir.Node) (string, bool) {
	href, _ := n.Attr("href")
	if ClassifyHref(href) != LinkExternal {
		return "", false
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	return href, true
}

// LinkResolver rewrites relative hrefs into site-absolute paths against
// the document's path and marks external links rel="noopener".
type LinkResolver struct{}

// NewLinkResolver returns a resolver.
func NewLinkResolver() LinkResolver { return LinkResolver{} }

// Descriptor implements pipeline.Transform.
func (LinkResolver) Descriptor() pipeline.Descriptor {
	return pipeline.Descriptor{
		Name:     "link-resolver",
		Requires: []ir.Capability{ir.CapLinksChecked},
		Provides: ir.CapLinksResolved,
		Input:    ir.PhaseIndexed,
		Output:   ir.PhaseIndexed,
	}
}

// Apply implements pipeline.Transform.
func (LinkResolver) Apply(ctx context.Context, doc *ir.Document) (*ir.Node, error) {
	p := doc.Path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	base, err := url.Parse(p)
	if err != nil {
		return nil, fmt.Errorf("resolve links: page path %q: %w", doc.Path, err)
	}

	changed := false
	for _, n := range elements(doc.Root, ir.FamilyLink) {
		href, ok := n.Attr("href")
		if !ok {
			continue
		}
		switch ClassifyHref(href) {
		case LinkRelative:
			ref, err := url.Parse(href)
			if err != nil || ref.Scheme != "" {
				continue
			}
			changed = n.SetAttr("href", base.ResolveReference(ref).String()) || changed
		case LinkExternal:
			changed = addRel(n, "noopener") || changed
		}
	}
	if !changed {
		return nil, nil
	}
	return doc.Root, nil
}

func addRel(n *ir.Node, token string) bool {
	rel, _ := n.Attr("rel")
	tokens := strings.Fields(rel)
	if slices.Contains(tokens, token) {
		return false
	}
	return n.SetAttr("rel", strings.Join(append(tokens, token), " "))
}

// elements returns the elements of family under root in document order.
func elements(root *ir.Node, family ir.Family) []*ir.Node {
	var out []*ir.Node
	root.Walk(func(n *ir.Node) bool {
		if n.IsElement() && n.Family == family {
			out = append(out, n)
		}
		return true
	})
	return out
}
