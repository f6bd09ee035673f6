// Package pagination parses the Link headers that paginated list endpoints return.
package pagination

import (
	"net/http"
	"regexp"
	"strconv"
)

var (
	linkRegex = regexp.MustCompile(`<([^>]*)>\s*;\s*rel="([a-zA-Z0-9]+)"`)
	pageRegex = regexp.MustCompile(`\bpage=(\d+)`)
)

// Links maps a relation ("next", "prev", …) to its URL.
type Links map[string]string

// ParseLinks extracts every relation from the Link header values of h.
func ParseLinks(h http.Header) Links {
	links := Links{}
	for _, value := range h.Values("Link") {
		for _, m := range linkRegex.FindAllStringSubmatch(value, -1) {
			links[m[2]] = m[1]
		}
	}
	return links
}

// Next returns the URL of the next page, if any.
func (l Links) Next() (string, bool) {
	u, ok := l["next"]
	return u, ok && u != ""
}

// Prev returns the URL of the previous page, if any.
func (l Links) Prev() (string, bool) {
	u, ok := l["prev"]
	return u, ok && u != ""
}

// NextPage returns the page number embedded in the next link.
func (l Links) NextPage() (int, bool) {
	u, ok := l.Next()
	if !ok {
		return 0, false
	}
	return PageOf(u)
}

// PageOf extracts the page query parameter from a link URL.
func PageOf(link string) (int, bool) {
	m := pageRegex.FindStringSubmatch(link)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
