package api

import (
	"fmt"
	"net/http"
	"strconv"

	"kennapartner-api/internal/storage"
)

// parseListOptions reads the shared page/limit/year/query parameters. Page is
// 1-based and capped at 100; limit may be zero. Violations surface as 422.
func parseListOptions(r *http.Request) (storage.ListOptions, error) {
	opts := storage.ListOptions{Page: 1, Limit: 10}
	values := r.URL.Query()

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return storage.ListOptions{}, fmt.Errorf("page %q is not a number", raw)
		}
		if page < 1 || page > 100 {
			return storage.ListOptions{}, fmt.Errorf("page must be between 1 and 100")
		}
		opts.Page = page
	}

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return storage.ListOptions{}, fmt.Errorf("limit %q is not a number", raw)
		}
		if limit < 0 {
			return storage.ListOptions{}, fmt.Errorf("limit must not be negative")
		}
		opts.Limit = limit
	}

	if raw := values.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return storage.ListOptions{}, fmt.Errorf("year %q is not a number", raw)
		}
		opts.Year = &year
	}

	opts.Query = values.Get("query")
	return opts, nil
}
