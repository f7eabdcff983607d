// Package view renders the search page: the query box, result cards and the pager.
package view

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/kailas-cloud/cvsearch/internal/domain/schema"
	"github.com/kailas-cloud/cvsearch/internal/domain/search/result"
)

//go:embed templates/*.html
var templateFiles embed.FS

// pagerRadius is how many page links are shown on each side of the current page.
const pagerRadius = 2

var templateFuncs = template.FuncMap{
	"formatCount": formatCount,
}

// Renderer renders the search page with a fixed result template.
type Renderer struct {
	tmpl *template.Template
	card schema.Template
}

// New parses the embedded page template. It fails on template syntax errors so startup fails fast.
func New(card schema.Template) (*Renderer, error) {
	tmpl, err := template.New("page.html").Funcs(templateFuncs).ParseFS(templateFiles, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, card: card}, nil
}

// Data is the input of one page render.
type Data struct {
	Query string
	// Size is echoed into pager links when the caller chose a non-default page size.
	Size  int
	Page  result.Page
	Error string
}

// Card is one rendered hit.
type Card struct {
	ID     string
	Title  string
	Blocks []Line
}

// Line is one "Label: value" row of a card.
type Line struct {
	Label string
	Value string
}

// PagerLink is one entry of the pager.
type PagerLink struct {
	Number  int
	Href    string
	Current bool
}

type pageModel struct {
	Query      string
	Error      string
	Total      int
	Page       int
	TotalPages int
	Cards      []Card
	Prev       string
	Next       string
	Links      []PagerLink
}

// Render writes the full HTML page.
func (r *Renderer) Render(w io.Writer, d Data) error {
	if err := r.tmpl.ExecuteTemplate(w, "page.html", r.model(d)); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func (r *Renderer) model(d Data) pageModel {
	m := pageModel{
		Query: d.Query,
		Error: d.Error,
	}
	if d.Error != "" {
		return m
	}

	p := d.Page
	m.Total = p.Total
	m.Page = p.Page
	m.TotalPages = p.TotalPages()
	m.Cards = make([]Card, 0, len(p.Results))
	for _, res := range p.Results {
		m.Cards = append(m.Cards, r.Card(res))
	}

	if p.HasPrev() {
		m.Prev = pageHref(d.Query, p.Page-1, d.Size)
	}
	if p.HasNext() {
		m.Next = pageHref(d.Query, p.Page+1, d.Size)
	}
	if m.TotalPages > 1 {
		for _, n := range Window(p.Page, m.TotalPages, pagerRadius) {
			m.Links = append(m.Links, PagerLink{Number: n, Href: pageHref(d.Query, n, d.Size), Current: n == p.Page})
		}
	}
	return m
}

// Card maps a hit onto the result template. Blocks whose field is not present on the hit are dropped.
func (r *Renderer) Card(res result.Result) Card {
	c := Card{ID: res.ID()}
	if v, ok := res.Raw(r.card.Title()); ok {
		c.Title = FormatValue(v)
	}
	for _, b := range r.card.Blocks() {
		if !res.Present(b.Field) {
			continue
		}
		v, _ := res.Raw(b.Field)
		c.Blocks = append(c.Blocks, Line{Label: b.Label, Value: FormatValue(v) + b.Suffix})
	}
	return c
}

// Window returns the page numbers shown around current, clamped to [1, total].
func Window(current, total, radius int) []int {
	if total <= 0 {
		return nil
	}
	start := max(current-radius, 1)
	end := min(current+radius, total)
	// keep the window width constant near the edges
	if width := 2*radius + 1; end-start+1 < width {
		if start == 1 {
			end = min(width, total)
		} else if end == total {
			start = max(total-width+1, 1)
		}
	}
	out := make([]int, 0, end-start+1)
	for n := start; n <= end; n++ {
		out = append(out, n)
	}
	return out
}

// FormatValue renders a raw field value. Numbers drop trailing zeros: 4.50 -> "4.5", 3.0 -> "3".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}

func pageHref(query string, page, size int) string {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	q.Set("page", strconv.Itoa(page))
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return "/?" + q.Encode()
}

// formatCount renders a hit count with thousands separators.
func formatCount(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + formatCount(-n)
	}
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
