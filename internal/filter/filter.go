// Package filter maps list query parameters to a typed Filter and back.
//
// Encoding is sparse: a field equal to its default is left out of the query
// string, so the default view of a list has a bare URL. Decoding never fails;
// a malformed or out-of-range parameter decodes as if it were absent.
package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/meetai/meetai/internal/domain"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Query parameter names, in wire order.
const (
	ParamSearch   = "search"
	ParamPage     = "page"
	ParamPageSize = "pageSize"
	ParamStatus   = "status"
	ParamAgentID  = "agentId"
)

// Filter is the decoded state of a list view.
type Filter struct {
	Search   string
	Page     int
	PageSize int
	// Status is empty when no status filter is applied.
	Status  domain.MeetingStatus
	AgentID string
}

// Default returns the filter of an unparameterized list view.
func Default() Filter {
	return Filter{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Normalize replaces unreachable values with their defaults.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.Status != "" {
		if _, ok := domain.ParseMeetingStatus(string(f.Status)); !ok {
			f.Status = ""
		}
	}
	return f
}

// Scoped drops the fields a collection does not filter on. Agents are only
// searched and paged.
func (f Filter) Scoped(kind domain.EntityKind) Filter {
	if kind == domain.EntityAgents {
		f.Status = ""
		f.AgentID = ""
	}
	return f
}

// Offset is the number of rows before the current page.
func (f Filter) Offset() int {
	f = f.Normalize()
	return (f.Page - 1) * f.PageSize
}

// WithPage returns a copy of f showing page p.
func (f Filter) WithPage(p int) Filter {
	f.Page = p
	return f.Normalize()
}

// WithSearch returns a copy of f with a new search term, back on the first page.
func (f Filter) WithSearch(s string) Filter {
	f.Search = s
	f.Page = DefaultPage
	return f.Normalize()
}

// WithStatus returns a copy of f filtered by status, back on the first page.
func (f Filter) WithStatus(s domain.MeetingStatus) Filter {
	f.Status = s
	f.Page = DefaultPage
	return f.Normalize()
}

// WithAgent returns a copy of f filtered by agent, back on the first page.
func (f Filter) WithAgent(id string) Filter {
	f.AgentID = id
	f.Page = DefaultPage
	return f.Normalize()
}

// IsDefault reports whether f encodes to an empty query.
func (f Filter) IsDefault() bool {
	return f.Normalize() == Default()
}

// Decode fills every field from its parameter or its default.
func Decode(v url.Values) Filter {
	f := Default()
	f.Search = v.Get(ParamSearch)
	if n, ok := positiveInt(v.Get(ParamPage)); ok {
		f.Page = n
	}
	if n, ok := positiveInt(v.Get(ParamPageSize)); ok {
		f.PageSize = n
	}
	if st, ok := domain.ParseMeetingStatus(v.Get(ParamStatus)); ok {
		f.Status = st
	}
	f.AgentID = v.Get(ParamAgentID)
	return f
}

// Parse decodes a raw query string, with or without the leading '?'.
// An unparseable query decodes as much as url.ParseQuery recovers.
func Parse(rawQuery string) Filter {
	v, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	return Decode(v)
}

// Encode returns the sparse query string for f, without the leading '?'.
// Parameters appear in wire order rather than sorted.
func Encode(f Filter) string {
	var b strings.Builder
	for _, p := range pairs(f) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}

// Values returns the sparse parameters of f.
func Values(f Filter) url.Values {
	v := url.Values{}
	for _, p := range pairs(f) {
		v.Set(p[0], p[1])
	}
	return v
}

// Href joins path and the encoded filter.
func Href(path string, f Filter) string {
	q := Encode(f)
	if q == "" {
		return path
	}
	return path + "?" + q
}

func pairs(f Filter) [][2]string {
	f = f.Normalize()
	var out [][2]string
	if f.Search != "" {
		out = append(out, [2]string{ParamSearch, f.Search})
	}
	if f.Page != DefaultPage {
		out = append(out, [2]string{ParamPage, strconv.Itoa(f.Page)})
	}
	if f.PageSize != DefaultPageSize {
		out = append(out, [2]string{ParamPageSize, strconv.Itoa(f.PageSize)})
	}
	if f.Status != "" {
		out = append(out, [2]string{ParamStatus, string(f.Status)})
	}
	if f.AgentID != "" {
		out = append(out, [2]string{ParamAgentID, f.AgentID})
	}
	return out
}

func positiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
