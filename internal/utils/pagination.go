package utils

import "strconv"

// Page describes one page of a list result: the 1-based page number, the page
// size, and the unpaged total.
type Page struct {
	Page  int
	Limit int
	Total int
}

// Pages is the total page count (at least 1 so "page 1 of 1" holds for empty
// results).
func (p Page) Pages() int {
	if p.Limit <= 0 {
		return 1
	}

	pages := (p.Total + p.Limit - 1) / p.Limit

	if pages < 1 {
		pages = 1
	}

	return pages
}

func (p Page) HasNext() bool {
	return p.Page < p.Pages()
}

func (p Page) HasPrevious() bool {
	return p.Page > 1
}

// ParsePageParam parses a positive 1-based page/limit query value, falling
// back to the default on absence, junk, or non-positive input.
func ParsePageParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)

	if err != nil || n < 1 {
		return fallback
	}

	return n
}

// HeaderSetter is the slice of the response writer pagination needs;
// satisfied by http.Header-backed writers and by gin's context helpers.
type HeaderSetter interface {
	Header(key, value string)
}

// SetPaginationHeaders surfaces page metadata as response headers so the body
// stays a plain record array.
func SetPaginationHeaders(h HeaderSetter, p Page) {
	h.Header("X-Total-Count", strconv.Itoa(p.Total))
	h.Header("X-Page", strconv.Itoa(p.Page))
	h.Header("X-Limit", strconv.Itoa(p.Limit))
	h.Header("X-Total-Pages", strconv.Itoa(p.Pages()))
	h.Header("X-Has-Next", strconv.FormatBool(p.HasNext()))
	h.Header("X-Has-Previous", strconv.FormatBool(p.HasPrevious()))
}
