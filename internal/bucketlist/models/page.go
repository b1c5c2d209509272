package models

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	DefaultPage  = 1
)

// MsgNoBucketlists accompanies an empty listing.
const MsgNoBucketlists = "No bucketlist found"

// ListQuery selects a page of a user's bucketlists. A non-empty Search
// switches to prefix search, which paginates independently of the default
// listing and carries q= instead of limit= in its navigation links.
type ListQuery struct {
	Page    int
	Limit   int
	Search  string
	BaseURL string
}

// Normalized applies defaults and clamps Limit to MaxLimit.
func (q ListQuery) Normalized() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	switch {
	case q.Limit < 1:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	q.BaseURL = strings.TrimRight(q.BaseURL, "/")
	return q
}

// IsSearch reports whether the query runs in search mode.
func (q ListQuery) IsSearch() bool {
	return q.Search != ""
}

// Offset is the number of rows preceding the requested page. It saturates
// at math.MaxInt, so an absurd page number reads past the end instead of
// wrapping negative.
func (q ListQuery) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// Page is one window of a user's bucketlists with navigation metadata.
// NextPage and PreviousPage are nil at the boundaries.
type Page struct {
	Bucketlists  []Bucketlist
	Page         int
	Limit        int
	Total        int
	Pages        int
	HasNext      bool
	HasPrevious  bool
	NextPage     *string
	PreviousPage *string
	Message      string
}

// NewPage assembles navigation metadata for bucketlists, the rows of page
// q.Page out of total matches. q must already be normalized.
func NewPage(q ListQuery, bucketlists []Bucketlist, total int) *Page {
	if bucketlists == nil {
		bucketlists = []Bucketlist{}
	}
	pages := 0
	if total > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	p := &Page{
		Bucketlists: bucketlists,
		Page:        q.Page,
		Limit:       q.Limit,
		Total:       total,
		Pages:       pages,
		HasNext:     q.Page < pages,
		HasPrevious: q.Page > 1,
	}
	if p.HasNext {
		next := q.navURL(q.Page + 1)
		p.NextPage = &next
	}
	if p.HasPrevious {
		prev := q.navURL(q.Page - 1)
		p.PreviousPage = &prev
	}
	if len(bucketlists) == 0 {
		p.Message = MsgNoBucketlists
	}
	return p
}

// navURL keeps the active mode parameter ahead of page.
func (q ListQuery) navURL(page int) string {
	var b strings.Builder
	b.WriteString(q.BaseURL)
	b.WriteString("/bucketlists?")
	if q.IsSearch() {
		b.WriteString("q=")
		b.WriteString(url.QueryEscape(q.Search))
	} else {
		b.WriteString("limit=")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	b.WriteString("&page=")
	b.WriteString(strconv.Itoa(page))
	return b.String()
}
