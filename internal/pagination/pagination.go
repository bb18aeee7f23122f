// Package pagination slices ordered collections into 1-based pages and
// renders the matching navigation Link header.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go-album-center/internal/apperr"
)

const (
	DefaultPerPage = 30
	MaxPerPage     = 100
)

// Request is the parsed page/per_page pair. Index is 0-based.
type Request struct {
	Index   int
	PerPage int
}

// Page is a request resolved against a collection size.
type Page struct {
	Request
	Count     int
	LastIndex int
}

// Link is one navigation entry of the Link header.
type Link struct {
	Rel   string
	Title string
	Page  int
	URL   string
}

// Parse reads the raw query values. Empty values fall back to the defaults.
func Parse(page, perPage string) (Request, error) {
	p, err := parseInt("page", page, 1)
	if err != nil {
		return Request{}, err
	}
	pp, err := parseInt("per_page", perPage, DefaultPerPage)
	if err != nil {
		return Request{}, err
	}

	if pp <= 0 || pp > MaxPerPage {
		return Request{}, apperr.Validation("per_page must be in 1..%d, got %d", MaxPerPage, pp)
	}
	if p < 1 {
		return Request{}, apperr.Validation("page must be positive, got %d", p)
	}
	return Request{Index: p - 1, PerPage: pp}, nil
}

// Resolve checks the request against a collection of count elements.
func (r Request) Resolve(count int) (Page, error) {
	last := count / r.PerPage
	if r.Index > last {
		return Page{}, apperr.Validation("page %d is out of range (last page is %d)", r.Index+1, last+1)
	}
	return Page{Request: r, Count: count, LastIndex: last}, nil
}

// New parses and resolves in one step.
func New(count int, page, perPage string) (Page, error) {
	r, err := Parse(page, perPage)
	if err != nil {
		return Page{}, err
	}
	return r.Resolve(count)
}

// Offset is the first element of the page.
func (p Page) Offset() int {
	return p.Index * p.PerPage
}

// Bounds returns the slice bounds of the page, clamped to Count.
func (p Page) Bounds() (begin, end int) {
	begin = min(p.Offset(), p.Count)
	end = min(begin+p.PerPage, p.Count)
	return begin, end
}

// Links computes the navigation links. first and previous appear from the
// second page on; next and last appear before the last page.
func (p Page) Links(base *url.URL) []Link {
	var links []Link
	if p.Index > 0 {
		links = append(links,
			p.link(base, "first", "First page", 1),
			p.link(base, "previous", "Previous page", p.Index),
		)
	}
	if p.Index < p.LastIndex {
		links = append(links,
			p.link(base, "next", "Next page", p.Index+2),
			p.link(base, "last", "Last page", p.LastIndex+1),
		)
	}
	return links
}

func (p Page) link(base *url.URL, rel, title string, page int) Link {
	u := url.URL{Path: "/"}
	if base != nil {
		u = *base
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	u.RawQuery = q.Encode()
	return Link{Rel: rel, Title: title, Page: page, URL: u.String()}
}

// Header renders links as an RFC 5988 Link header value.
func Header(links []Link) string {
	parts := make([]string, 0, len(links))
	for _, l := range links {
		parts = append(parts, fmt.Sprintf("<%s>; rel=%q; title=%q", l.URL, l.Rel, l.Title))
	}
	return strings.Join(parts, ", ")
}

func parseInt(name, raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}
