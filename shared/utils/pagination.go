package utils

import "strconv"

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// ParsePagination normalizes raw page/limit query values. Empty or malformed
// input falls back to the defaults; limit is clamped to maxLimit.
func ParsePagination(pageStr, limitStr string) (page, limit int) {
	page = defaultPage
	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	limit = defaultLimit
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// Offset converts a page/limit pair into an SQL offset.
func Offset(page, limit int) int {
	return (page - 1) * limit
}
