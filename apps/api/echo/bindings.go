package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/umoja/campus/core"
)

const orderingParam = "ordering"

// Ordering binds the "ordering" query param: a comma-separated field
// list, "-" prefix for descending.
type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val, ok := ctx.QueryParams()[orderingParam]
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
