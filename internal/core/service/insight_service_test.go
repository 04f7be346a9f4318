package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freelanceros/freelancer-os/internal/core/domain"
	"github.com/freelanceros/freelancer-os/internal/core/ports"
)

func TestInsightService_FinancesJoinsNames(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	svc := NewInsightService(ws, zerolog.Nop())
	ctx := context.Background()

	clientID, _ := ws.Clients.Add(ctx, alice(), validClient("Jane"))
	_, _ = ws.Finances.Add(ctx, alice(), domain.Finance{Date: "2024-06-01", Type: domain.FinanceIncome, Amount: 1000, ClientID: clientID})
	_, _ = ws.Finances.Add(ctx, alice(), domain.Finance{Date: "2024-06-02", Type: domain.FinanceExpense, Amount: 400, ClientID: "deleted", ProjectID: "gone"})

	view, err := svc.Finances(ctx, alice(), ports.InsightQuery{Filter: "all"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Summary.MonthlyNet != 600 {
		t.Errorf("expected monthly net 600, got %v", view.Summary.MonthlyNet)
	}
	if len(view.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(view.Rows))
	}
	if view.Rows[0].ClientName != "Jane" || view.Rows[0].ProjectName != domain.NoProject {
		t.Errorf("unexpected first row names: %q / %q", view.Rows[0].ClientName, view.Rows[0].ProjectName)
	}
	if view.Rows[1].ClientName != domain.UnknownClient {
		t.Errorf("expected %q for dangling client, got %q", domain.UnknownClient, view.Rows[1].ClientName)
	}
}

func TestInsightService_InvoicesSuggestsNextNumber(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	svc := NewInsightService(ws, zerolog.Nop())
	ctx := context.Background()
	_, _ = ws.Invoices.Add(ctx, alice(), sampleInvoice())

	view, err := svc.Invoices(ctx, alice(), ports.InsightQuery{Status: "Draft"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.NextNumber != "INV-20240612-0002" {
		t.Errorf("unexpected next number %q", view.NextNumber)
	}
	if view.Stats.Draft != 1 || len(view.Rows) != 1 {
		t.Errorf("unexpected invoice view: %+v", view)
	}
	if view.Rows[0].ClientName != domain.UnknownClient {
		t.Errorf("expected unknown client, got %q", view.Rows[0].ClientName)
	}
}

func TestInsightService_Dashboard(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	svc := NewInsightService(ws, zerolog.Nop())
	ctx := context.Background()
	_, _ = ws.Clients.Add(ctx, alice(), validClient("Jane"))
	_, _ = ws.Tasks.Add(ctx, alice(), domain.Task{Name: "Call", Deadline: "2024-06-12", Priority: domain.PriorityHigh, Status: domain.TaskDone})

	d, err := svc.Dashboard(ctx, alice())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ActiveClients != 1 || d.CompletedTasks != 1 || len(d.TodaysTasks) != 1 {
		t.Errorf("unexpected dashboard: %+v", d)
	}
}

func TestInsightService_RequiresIdentity(t *testing.T) {
	ws, _ := newTestWorkspace(t, WorkspaceOptions{})
	svc := NewInsightService(ws, zerolog.Nop())
	if _, err := svc.Goals(context.Background(), nil, ports.InsightQuery{}); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
