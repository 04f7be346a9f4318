package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// InsightHandler serves the read-only page projections.
type InsightHandler struct {
	insights ports.InsightService
}

func NewInsightHandler(insights ports.InsightService) *InsightHandler {
	return &InsightHandler{insights: insights}
}

func insightQuery(c echo.Context) ports.InsightQuery {
	return ports.InsightQuery{
		Filter: c.QueryParam("filter"),
		Search: c.QueryParam("search"),
		Status: c.QueryParam("status"),
	}
}

// Dashboard handles GET /v1/insights/dashboard.
//
// @Summary      Dashboard counters and progress
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Dashboard
// @Router       /v1/insights/dashboard [get]
func (h *InsightHandler) Dashboard(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Dashboard(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Finances handles GET /v1/insights/finances.
//
// @Summary      Finance summary and rows
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Param        filter  query     string  false  "all, income, expense, this-month or last-month"
// @Success      200     {object}  ports.FinanceView
// @Router       /v1/insights/finances [get]
func (h *InsightHandler) Finances(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Finances(c.Request().Context(), id, insightQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Invoices handles GET /v1/insights/invoices.
//
// @Summary      Invoice counts, rows and the next suggested number
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Invoice status"
// @Success      200     {object}  ports.InvoiceView
// @Router       /v1/insights/invoices [get]
func (h *InsightHandler) Invoices(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Invoices(c.Request().Context(), id, insightQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Tasks handles GET /v1/insights/tasks.
//
// @Summary      Task counts and filtered rows
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Param        filter  query     string  false  "all, today, overdue or high-priority"
// @Success      200     {object}  ports.TaskView
// @Router       /v1/insights/tasks [get]
func (h *InsightHandler) Tasks(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Tasks(c.Request().Context(), id, insightQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Projects handles GET /v1/insights/projects.
//
// @Summary      Project counts, budget and rows
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.ProjectView
// @Router       /v1/insights/projects [get]
func (h *InsightHandler) Projects(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Projects(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Goals handles GET /v1/insights/goals.
//
// @Summary      Goal statistics and filtered rows
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Param        filter  query     string  false  "Goal filter"
// @Success      200     {object}  ports.GoalView
// @Router       /v1/insights/goals [get]
func (h *InsightHandler) Goals(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Goals(c.Request().Context(), id, insightQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Clients handles GET /v1/insights/clients.
//
// @Summary      Client counts with search and status filter
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Matches name or company"
// @Param        status  query     string  false  "Client status"
// @Success      200     {object}  ports.ClientView
// @Router       /v1/insights/clients [get]
func (h *InsightHandler) Clients(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Clients(c.Request().Context(), id, insightQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Resources handles GET /v1/insights/resources.
//
// @Summary      Resource counts with type filter and search
// @Tags         insights
// @Produce      json
// @Security     BearerAuth
// @Param        filter  query     string  false  "Resource type"
// @Param        search  query     string  false  "Matches name, category or notes"
// @Success      200     {object}  ports.ResourceView
// @Router       /v1/insights/resources [get]
func (h *InsightHandler) Resources(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	view, err := h.insights.Resources(c.Request().Context(), id, insightQuery(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}
