package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/shule/core"
)

const orderingParam = "ordering"

// Ordering holds the sort directives parsed from the `ordering` query param:
// a comma-separated field list, each optionally prefixed with "-" for
// descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	raw := ctx.QueryParam(orderingParam)
	if raw == "" {
		return
	}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		if desc {
			field = field[1:]
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !desc})
	}
}
