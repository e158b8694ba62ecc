package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kymanga/darasa/core"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"

	defaultPageLimit = 20
	maxPageLimit     = 100
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindPagination reads ?page & ?limit with sane bounds.
func bindPagination(ctx echo.Context) core.Pagination {
	page := core.Pagination{Page: 1, Limit: defaultPageLimit}
	if v, err := strconv.Atoi(ctx.QueryParam(pageParam)); err == nil && v > 0 {
		page.Page = v
	}
	if v, err := strconv.Atoi(ctx.QueryParam(limitParam)); err == nil && v > 0 {
		page.Limit = v
		if page.Limit > maxPageLimit {
			page.Limit = maxPageLimit
		}
	}
	return page
}
