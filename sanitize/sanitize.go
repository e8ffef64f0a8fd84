// Package sanitize turns untrusted email bodies into HTML that is safe to
// render inline.
package sanitize

import (
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/microcosm-cc/bluemonday/css"

	"labelmail/models"
)

var allowedElements = []string{
	"p", "br", "strong", "em", "u", "b", "i",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"ul", "ol", "li", "a", "img",
	"table", "thead", "tbody", "tr", "td", "th",
	"div", "span", "blockquote", "pre", "code", "hr",
}

// textElements may carry TextStyles when configured.
var textElements = []string{
	"p", "div", "span", "td", "th", "li", "blockquote", "pre", "code",
	"h1", "h2", "h3", "h4", "h5", "h6", "strong", "em", "u", "b", "i",
	"table", "tr",
}

// DefaultImageStyles is used when Options.ImageStyles is empty.
var DefaultImageStyles = []string{
	"width", "height", "max-width", "max-height",
	"display", "vertical-align",
	"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
	"border", "border-width", "border-style", "border-color",
}

// Options configures the CSS that survives sanitizing.
type Options struct {
	ImageStyles []string
	TextStyles  []string
}

// Sanitizer renders email bodies through a fixed bluemonday policy.
// It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// New builds the policy. Blocked properties are removed from both style
// lists before they reach the policy.
func New(opts Options) *Sanitizer {
	imageStyles := opts.ImageStyles
	if len(imageStyles) == 0 {
		imageStyles = DefaultImageStyles
	}

	p := bluemonday.NewPolicy()
	p.AllowElements(allowedElements...)
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("title").Globally()

	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto", "cid")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	allowStyles(p, filterStyles(imageStyles), "img")
	allowStyles(p, filterStyles(opts.TextStyles), textElements...)

	return &Sanitizer{policy: p}
}

func allowStyles(p *bluemonday.Policy, properties []string, elements ...string) {
	for _, prop := range properties {
		p.AllowStyles(prop).MatchingHandler(guard(css.GetDefaultHandler(prop))).OnElements(elements...)
	}
}

// guard rejects values that can load or execute anything before handing
// the value to the property's own validator.
func guard(next func(string) bool) func(string) bool {
	return func(value string) bool {
		v := strings.ToLower(value)
		if strings.Contains(v, "url(") || strings.Contains(v, "expression(") || strings.Contains(v, "javascript:") {
			return false
		}
		return next(value)
	}
}

// Blocked reports whether a CSS property can never be allowed: positioning
// and backgrounds let a message draw over the surrounding UI.
func Blocked(property string) bool {
	prop := strings.ToLower(strings.TrimSpace(property))
	switch prop {
	case "position", "z-index", "top", "right", "bottom", "left", "float", "transform":
		return true
	}
	return strings.HasPrefix(prop, "background") || strings.HasPrefix(prop, "inset")
}

func filterStyles(properties []string) []string {
	var out []string
	for _, prop := range properties {
		prop = strings.ToLower(strings.TrimSpace(prop))
		if prop == "" || Blocked(prop) {
			continue
		}
		out = append(out, prop)
	}
	return out
}

// HTML sanitizes an HTML fragment.
func (s *Sanitizer) HTML(raw string) string {
	return s.policy.Sanitize(raw)
}

// Text escapes plain text and converts its line breaks to <br/>.
func (s *Sanitizer) Text(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	escaped := html.EscapeString(raw)
	return s.policy.Sanitize(strings.ReplaceAll(escaped, "\n", "<br />"))
}

// Body picks the HTML part when present, otherwise the text part, and
// falls back to the no-content placeholder.
func (s *Sanitizer) Body(bodyHTML, bodyText string) string {
	switch {
	case strings.TrimSpace(bodyHTML) != "":
		return s.HTML(bodyHTML)
	case strings.TrimSpace(bodyText) != "":
		return s.Text(bodyText)
	default:
		return models.NoContent
	}
}

// Render is Body typed for html/template.
func (s *Sanitizer) Render(bodyHTML, bodyText string) template.HTML {
	return template.HTML(s.Body(bodyHTML, bodyText))
}
