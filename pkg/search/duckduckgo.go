package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/randalmurphal/victoruno/pkg/documents"
)

// DefaultEndpoint is DuckDuckGo's JavaScript-free results page.
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

const userAgent = "Mozilla/5.0 (compatible; victoruno/1.0)"

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// DuckDuckGo scrapes the DuckDuckGo HTML endpoint. Safe for concurrent use.
type DuckDuckGo struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures DuckDuckGo.
type Option func(*DuckDuckGo)

// WithEndpoint points the scraper at another results page (tests, mirrors).
func WithEndpoint(endpoint string) Option {
	return func(d *DuckDuckGo) {
		if endpoint != "" {
			d.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DuckDuckGo) { d.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(d *DuckDuckGo) {
		if timeout > 0 {
			d.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *DuckDuckGo) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDuckDuckGo creates a scraper.
func NewDuckDuckGo(opts ...Option) *DuckDuckGo {
	d := &DuckDuckGo{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search returns up to limit organic results for query. A blank query
// returns no results without touching the network.
func (d *DuckDuckGo) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []Result{}, nil
	}

	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, &Error{Op: "search", Err: err}
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	body, err := d.get(ctx, "search", u.String())
	if err != nil {
		return nil, err
	}
	defer body.Close()

	results, err := parseResults(body, limit)
	if err != nil {
		return nil, &Error{Op: "search", Err: err}
	}
	d.logger.Debug("web search completed",
		slog.String("query", query),
		slog.Int("results", len(results)))
	return results, nil
}

// Fetch downloads a page and returns its title and visible text.
func (d *DuckDuckGo) Fetch(ctx context.Context, pageURL string) (Page, error) {
	body, err := d.get(ctx, "fetch", pageURL)
	if err != nil {
		return Page{URL: pageURL}, err
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxBody))
	if err != nil {
		return Page{URL: pageURL}, &Error{Op: "fetch", Err: err, retryable: true}
	}

	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return Page{URL: pageURL}, &Error{Op: "fetch", Err: err}
	}
	content, err := documents.HTMLText(bytes.NewReader(raw))
	if err != nil {
		return Page{URL: pageURL}, &Error{Op: "fetch", Err: err}
	}

	var title string
	if n := findFirst(doc, func(n *html.Node) bool { return isElement(n, "title") }); n != nil {
		title = strings.TrimSpace(textOf(n))
	}
	return Page{Title: title, Content: content, URL: pageURL}, nil
}

func (d *DuckDuckGo) get(ctx context.Context, op, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Err: err, retryable: ctx.Err() == nil}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
			retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}
	return resp.Body, nil
}

// parseResults walks a results page. Each organic hit is a container with
// class "result" holding a "result__a" link and an optional
// "result__snippet"; ads carry "result--ad" and are skipped.
func parseResults(r io.Reader, limit int) ([]Result, error) {
	doc, err := html.Parse(io.LimitReader(r, maxBody))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	results := []Result{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result") {
			if !hasClass(n, "result--ad") {
				if res, ok := resultFrom(n); ok {
					results = append(results, res)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func resultFrom(n *html.Node) (Result, bool) {
	link := findFirst(n, func(n *html.Node) bool { return hasClass(n, "result__a") })
	if link == nil {
		return Result{}, false
	}
	res := Result{
		Title: strings.Join(strings.Fields(textOf(link)), " "),
		URL:   resolveURL(attr(link, "href")),
	}
	if snip := findFirst(n, func(n *html.Node) bool { return hasClass(n, "result__snippet") }); snip != nil {
		res.Description = strings.Join(strings.Fields(textOf(snip)), " ")
	}
	if res.Title == "" {
		res.Title = "No title"
	}
	return res, true
}

// resolveURL unwraps DuckDuckGo redirect links (//duckduckgo.com/l/?uddg=...).
func resolveURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
