package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// ParsePagination reads page/page_size query params and returns limit/offset.
func ParsePagination(ctx echo.Context) (limit uint64, offset uint64) {
	page, _ := strconv.ParseUint(ctx.QueryParam("page"), 10, 64)
	if page == 0 {
		page = 1
	}
	size, _ := strconv.ParseUint(ctx.QueryParam("page_size"), 10, 64)
	if size == 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}
