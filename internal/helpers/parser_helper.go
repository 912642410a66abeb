package helpers

import (
	"fmt"
	"strconv"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParsePagination converts page/limit query values, clamping limit to maxLimit.
func ParsePagination(page, limit string, maxLimit int) (int, int, error) {
	pageNum, err := StringToInt(page)
	if err != nil || pageNum < 1 {
		return 0, 0, fmt.Errorf("invalid page number %q", page)
	}

	limitNum, err := StringToInt(limit)
	if err != nil || limitNum < 1 {
		return 0, 0, fmt.Errorf("invalid limit %q", limit)
	}
	if limitNum > maxLimit {
		limitNum = maxLimit
	}

	return pageNum, limitNum, nil
}
