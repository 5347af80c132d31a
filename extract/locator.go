// Package extract locates book fields in Goodreads pages. A page is read
// either as a rendered DOM tree or as the entity graph the site embeds in
// its __NEXT_DATA__ script; both sit behind the Locator interface so the
// field fallbacks are written once.
package extract

import (
	"regexp"
	"strings"

	"github.com/aluiziolira/go-scrape-goodreads/models"
)

// Criteria describes one way of finding a value. DOM locators read
// Selector, XPath, Attr and Parent; graph locators read Path. Pattern and
// Transform run on whatever was found.
type Criteria struct {
	Selector string
	XPath    string
	Attr     string
	Parent   bool

	// Path walks entity fields; "[]" fans out over an array.
	Path []string

	// Pattern keeps its first capture group (or the whole match).
	Pattern   *regexp.Regexp
	Transform func(string) (string, bool)
}

// Locator is implemented once per page representation.
type Locator interface {
	Locate(c Criteria) (string, bool)
	LocateAll(c Criteria) []string
}

// FieldSpec is an ordered list of criteria for one output field.
type FieldSpec struct {
	Field    string
	Criteria []Criteria
}

// Lookup tries each criterion in order and stops at the first value.
func Lookup(loc Locator, spec FieldSpec) (string, bool) {
	for _, c := range spec.Criteria {
		if v, ok := loc.Locate(c); ok {
			return v, true
		}
	}
	return "", false
}

// LookupAll returns the values of the first criterion that yields any.
func LookupAll(loc Locator, spec FieldSpec) []string {
	for _, c := range spec.Criteria {
		if vs := loc.LocateAll(c); len(vs) > 0 {
			return vs
		}
	}
	return nil
}

// finish applies the post-processing shared by every locator.
func finish(raw string, c Criteria) (string, bool) {
	v := strings.Join(strings.Fields(raw), " ")
	if v == "" {
		return "", false
	}
	if c.Pattern != nil {
		m := c.Pattern.FindStringSubmatch(v)
		if m == nil {
			return "", false
		}
		if len(m) > 1 {
			v = strings.TrimSpace(m[1])
		} else {
			v = m[0]
		}
	}
	if c.Transform != nil {
		var ok bool
		if v, ok = c.Transform(v); !ok {
			return "", false
		}
	}
	if v == "" || v == models.NotAvailable {
		return "", false
	}
	return v, true
}
