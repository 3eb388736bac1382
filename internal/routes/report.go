package routes

import (
	"github.com/labstack/echo/v4"

	"workitem-system/internal/controllers"
)

func runReportRouter(g *echo.Group, c *controllers.ReportController) {
	g.GET("/reports/work-items.xlsx", c.ExportWorkItems)
}
