// Package shell holds the page layout helpers shared by every template: nav
// links, the quote carousel, Markdown rendering and avatars.
package shell

import (
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

const (
	SiteName    = "Cozy Curated"
	Description = "Cozy Curated helps you design a life you love with curated inspiration, tools, and guidance."

	ContactBannerDelay = 3 * time.Second
	ProfileBannerDelay = 800 * time.Millisecond

	ErrorBanner = "Something went wrong. Please try again later."
)

type NavLink struct {
	Title string
	Path  string
}

var navLinks = []NavLink{
	{Title: "Home", Path: "/"},
	{Title: "Contact", Path: "/contact"},
	{Title: "Profile", Path: "/profile"},
}

func Nav() []NavLink {
	return append([]NavLink(nil), navLinks...)
}

var policy = bluemonday.UGCPolicy()

// Markdown renders user-written Markdown to sanitized HTML.
func Markdown(s string) template.HTML {
	unsafe := blackfriday.Run([]byte(s), blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.HardLineBreak))
	return template.HTML(policy.SanitizeBytes(unsafe))
}

// Initial is the uppercase first letter of name, or "?" for an empty name.
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}

// FuncMap is registered on the gin engine before templates are loaded.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"initial":  Initial,
		"year":     func() int { return time.Now().Year() },
		"millis":   func(d time.Duration) int64 { return d.Milliseconds() },
		"orDefault": func(def, s string) string {
			if strings.TrimSpace(s) == "" {
				return def
			}
			return s
		},
		"dict": dict,
	}
}

// dict builds a map from key/value pairs so partials can take several arguments.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}
