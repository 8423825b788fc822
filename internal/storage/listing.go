package storage

import (
	"fmt"
	"regexp"
	"time"
)

// listFilter is the compiled form of ListOptions shared by the memory driver.
type listFilter struct {
	pattern   *regexp.Regexp
	yearStart time.Time
	yearEnd   time.Time
	hasYear   bool
}

func newListFilter(opts ListOptions) (listFilter, error) {
	var filter listFilter
	if opts.Query != "" {
		pattern, err := regexp.Compile("(?i)" + opts.Query)
		if err != nil {
			return listFilter{}, fmt.Errorf("compile query filter: %w", err)
		}
		filter.pattern = pattern
	}
	if opts.Year != nil {
		filter.hasYear = true
		filter.yearStart = time.Date(*opts.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		filter.yearEnd = filter.yearStart.AddDate(1, 0, 0)
	}
	return filter, nil
}

func (f listFilter) matchText(value string) bool {
	if f.pattern == nil {
		return true
	}
	return f.pattern.MatchString(value)
}

func (f listFilter) matchDate(value time.Time) bool {
	if !f.hasYear {
		return true
	}
	return !value.Before(f.yearStart) && value.Before(f.yearEnd)
}

func normalizePage(opts ListOptions) (page, limit int) {
	page = opts.Page
	if page < 1 {
		page = 1
	}
	limit = opts.Limit
	if limit < 0 {
		limit = 0
	}
	return page, limit
}

// window slices the filtered items into the page the caller asked for. The
// skip offset derives from the requested limit while the window itself is
// capped at listWindowSize documents.
func window[T any](items []T, opts ListOptions, total int) ListResult[T] {
	page, limit := normalizePage(opts)
	skip := (page - 1) * limit
	if skip > len(items) {
		skip = len(items)
	}
	end := skip + listWindowSize
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-skip)
	copy(out, items[skip:end])
	return ListResult[T]{Items: out, Page: page, Limit: limit, Total: total}
}
