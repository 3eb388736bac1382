package routes

import (
	"github.com/labstack/echo/v4"

	"workitem-system/internal/controllers"
)

func runWorkItemRouter(g *echo.Group, c *controllers.WorkItemController) {
	g.GET("/work-items", c.GetWorkItems)
	g.POST("/work-items", c.CreateWorkItem)
	g.POST("/work-items/stale-check", c.StaleCheck)
	g.GET("/work-items/:id", c.FindWorkItem)
	g.PATCH("/work-items/:id", c.PatchWorkItem)
	g.DELETE("/work-items/:id", c.DeleteWorkItem)
}
