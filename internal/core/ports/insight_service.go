package ports

import (
	"context"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
)

// FinanceRow is a finance record joined with its client and project names.
type FinanceRow struct {
	domain.Finance
	ClientName  string `json:"clientName"`
	ProjectName string `json:"projectName"`
}

type FinanceView struct {
	Summary domain.FinanceSummary `json:"summary"`
	Rows    []FinanceRow          `json:"rows"`
}

type InvoiceRow struct {
	domain.Invoice
	ClientName string `json:"clientName"`
}

type InvoiceView struct {
	Stats      domain.InvoiceStats `json:"stats"`
	Rows       []InvoiceRow        `json:"rows"`
	NextNumber string              `json:"nextNumber"`
}

type TaskRow struct {
	domain.Task
	ProjectName string `json:"projectName"`
}

type TaskView struct {
	Stats domain.TaskStats `json:"stats"`
	Rows  []TaskRow        `json:"rows"`
}

type ProjectRow struct {
	domain.Project
	ClientName string `json:"clientName"`
}

type ProjectView struct {
	Stats domain.ProjectStats `json:"stats"`
	Rows  []ProjectRow        `json:"rows"`
}

type GoalView struct {
	Stats domain.GoalStats `json:"stats"`
	Rows  []domain.Goal    `json:"rows"`
}

type ClientView struct {
	Stats domain.ClientStats `json:"stats"`
	Rows  []domain.Client    `json:"rows"`
}

type ResourceView struct {
	Stats domain.ResourceStats `json:"stats"`
	Rows  []domain.Resource    `json:"rows"`
}

// InsightQuery carries the optional filters of the feature views.
type InsightQuery struct {
	Filter string
	Search string
	Status string
}

// InsightService derives read-only views across an identity's collections.
type InsightService interface {
	Dashboard(ctx context.Context, id *domain.Identity) (*domain.Dashboard, error)
	Finances(ctx context.Context, id *domain.Identity, q InsightQuery) (*FinanceView, error)
	Invoices(ctx context.Context, id *domain.Identity, q InsightQuery) (*InvoiceView, error)
	Tasks(ctx context.Context, id *domain.Identity, q InsightQuery) (*TaskView, error)
	Projects(ctx context.Context, id *domain.Identity) (*ProjectView, error)
	Goals(ctx context.Context, id *domain.Identity, q InsightQuery) (*GoalView, error)
	Clients(ctx context.Context, id *domain.Identity, q InsightQuery) (*ClientView, error)
	Resources(ctx context.Context, id *domain.Identity, q InsightQuery) (*ResourceView, error)
}
