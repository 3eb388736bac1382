package routes

import (
	"github.com/labstack/echo/v4"

	"workitem-system/internal/controllers"
)

func runDashboardRouter(g *echo.Group, c *controllers.DashboardController) {
	g.GET("/dashboard/summary", c.Summary)
}
