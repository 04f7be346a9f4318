package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

// InsightService derives the read-only feature views from live collections.
type InsightService struct {
	ws  *Workspace
	now func() time.Time
	log zerolog.Logger
}

func NewInsightService(ws *Workspace, log zerolog.Logger) *InsightService {
	return &InsightService{ws: ws, now: ws.now, log: log}
}

func (s *InsightService) directory(ctx context.Context, id *domain.Identity) (*domain.Directory, error) {
	clients, err := s.ws.Clients.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	projects, err := s.ws.Projects.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.NewDirectory(clients, projects), nil
}

func (s *InsightService) Dashboard(ctx context.Context, id *domain.Identity) (*domain.Dashboard, error) {
	clients, err := s.ws.Clients.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	projects, err := s.ws.Projects.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.ws.Tasks.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	finances, err := s.ws.Finances.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	goals, err := s.ws.Goals.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	d := domain.BuildDashboard(clients, projects, tasks, finances, goals, s.now())
	return &d, nil
}

func (s *InsightService) Finances(ctx context.Context, id *domain.Identity, q ports.InsightQuery) (*ports.FinanceView, error) {
	records, err := s.ws.Finances.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	view := &ports.FinanceView{Summary: domain.SummarizeFinances(records, now), Rows: []ports.FinanceRow{}}
	for _, f := range domain.FilterFinances(records, domain.FinanceFilter(q.Filter), now) {
		view.Rows = append(view.Rows, ports.FinanceRow{
			Finance:     f,
			ClientName:  dir.ClientName(f.ClientID),
			ProjectName: dir.ProjectName(f.ProjectID),
		})
	}
	return view, nil
}

func (s *InsightService) Invoices(ctx context.Context, id *domain.Identity, q ports.InsightQuery) (*ports.InvoiceView, error) {
	invoices, err := s.ws.Invoices.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &ports.InvoiceView{
		Stats:      domain.CountInvoices(invoices),
		NextNumber: domain.NextInvoiceNumber(invoices, s.now()),
		Rows:       []ports.InvoiceRow{},
	}
	for _, inv := range domain.FilterInvoices(invoices, q.Status) {
		view.Rows = append(view.Rows, ports.InvoiceRow{Invoice: inv, ClientName: dir.ClientName(inv.ClientID)})
	}
	return view, nil
}

func (s *InsightService) Tasks(ctx context.Context, id *domain.Identity, q ports.InsightQuery) (*ports.TaskView, error) {
	tasks, err := s.ws.Tasks.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &ports.TaskView{Stats: domain.CountTasks(tasks), Rows: []ports.TaskRow{}}
	for _, t := range domain.FilterTasks(tasks, domain.TaskFilter(q.Filter), s.now()) {
		view.Rows = append(view.Rows, ports.TaskRow{Task: t, ProjectName: dir.ProjectName(t.ProjectID)})
	}
	return view, nil
}

func (s *InsightService) Projects(ctx context.Context, id *domain.Identity) (*ports.ProjectView, error) {
	projects, err := s.ws.Projects.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	dir, err := s.directory(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &ports.ProjectView{Stats: domain.CountProjects(projects), Rows: []ports.ProjectRow{}}
	for _, p := range projects {
		view.Rows = append(view.Rows, ports.ProjectRow{Project: p, ClientName: dir.ClientName(p.ClientID)})
	}
	return view, nil
}

func (s *InsightService) Goals(ctx context.Context, id *domain.Identity, q ports.InsightQuery) (*ports.GoalView, error) {
	goals, err := s.ws.Goals.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ports.GoalView{
		Stats: domain.CountGoals(goals),
		Rows:  domain.FilterGoals(goals, domain.GoalFilter(q.Filter)),
	}, nil
}

func (s *InsightService) Clients(ctx context.Context, id *domain.Identity, q ports.InsightQuery) (*ports.ClientView, error) {
	clients, err := s.ws.Clients.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ports.ClientView{
		Stats: domain.CountClients(clients),
		Rows:  domain.FilterClients(clients, q.Search, domain.ClientStatus(q.Status)),
	}, nil
}

func (s *InsightService) Resources(ctx context.Context, id *domain.Identity, q ports.InsightQuery) (*ports.ResourceView, error) {
	resources, err := s.ws.Resources.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ports.ResourceView{
		Stats: domain.CountResources(resources),
		Rows:  domain.FilterResources(resources, q.Filter, q.Search),
	}, nil
}
