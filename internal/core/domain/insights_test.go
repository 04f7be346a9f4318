package domain

import (
	"testing"
	"time"
)

func TestDirectory_SoftReferences(t *testing.T) {
	dir := NewDirectory(
		[]Client{{ID: "c1", Name: "Acme"}},
		[]Project{{ID: "p1", Name: "Website"}},
	)

	if got := dir.ClientName("c1"); got != "Acme" {
		t.Errorf("expected Acme, got %q", got)
	}
	if got := dir.ClientName("deleted"); got != UnknownClient {
		t.Errorf("expected %q, got %q", UnknownClient, got)
	}
	if got := dir.ProjectName(""); got != NoProject {
		t.Errorf("expected %q, got %q", NoProject, got)
	}
	if got := dir.ProjectName("p1"); got != "Website" {
		t.Errorf("expected Website, got %q", got)
	}
}

func TestFilterTasks(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	tasks := []Task{
		{ID: "today", Deadline: "2024-06-10", Priority: PriorityLow, Status: TaskToDo},
		{ID: "late", Deadline: "2024-06-01", Priority: PriorityHigh, Status: TaskDoing},
		{ID: "late-done", Deadline: "2024-06-01", Priority: PriorityMedium, Status: TaskDone},
		{ID: "later", Deadline: "2024-07-01", Priority: PriorityHigh, Status: TaskToDo},
	}

	assertIDs := func(name string, got []Task, want ...string) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("%s: expected %v, got %d tasks", name, want, len(got))
		}
		for i := range want {
			if got[i].ID != want[i] {
				t.Errorf("%s: position %d expected %s, got %s", name, i, want[i], got[i].ID)
			}
		}
	}

	assertIDs("today", FilterTasks(tasks, TaskFilterToday, now), "today")
	assertIDs("overdue", FilterTasks(tasks, TaskFilterOverdue, now), "late")
	assertIDs("high", FilterTasks(tasks, TaskFilterHighPriority, now), "late", "later")
	assertIDs("all", FilterTasks(tasks, TaskFilterAll, now), "today", "late", "late-done", "later")

	stats := CountTasks(tasks)
	if stats.ToDo != 2 || stats.Doing != 1 || stats.Done != 1 || stats.Total != 4 {
		t.Errorf("unexpected task stats: %+v", stats)
	}
}

func TestCountGoals_AverageRounded(t *testing.T) {
	goals := []Goal{
		{Category: GoalWork, Status: GoalActive, Progress: 10},
		{Category: GoalWork, Status: GoalCompleted, Progress: 100},
		{Category: GoalFinancial, Status: GoalPaused, Progress: 25},
	}
	s := CountGoals(goals)
	if s.AverageProgress != 45 {
		t.Errorf("expected average 45, got %d", s.AverageProgress)
	}
	if s.ByCategory[GoalWork] != 2 || s.ByCategory[GoalFinancial] != 1 {
		t.Errorf("unexpected category counts: %+v", s.ByCategory)
	}
	if s.Completed != 1 || s.Active != 1 {
		t.Errorf("unexpected status counts: %+v", s)
	}
	if got := FilterGoals(goals, GoalFilterPaused); len(got) != 1 {
		t.Errorf("expected one paused goal, got %d", len(got))
	}
}

func TestCountGoals_Empty(t *testing.T) {
	if s := CountGoals(nil); s.AverageProgress != 0 || s.Total != 0 {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func TestFilterClients(t *testing.T) {
	clients := []Client{
		{ID: "1", Name: "Jane Doe", Company: "Acme", Status: ClientActive},
		{ID: "2", Name: "John", Company: "Globex", Status: ClientLead},
		{ID: "3", Name: "Ana", Company: "ACME Labs", Status: ClientCompleted},
	}
	if got := FilterClients(clients, "acme", ""); len(got) != 2 {
		t.Errorf("expected 2 matches for acme, got %d", len(got))
	}
	if got := FilterClients(clients, "acme", ClientActive); len(got) != 1 || got[0].ID != "1" {
		t.Errorf("expected only client 1, got %+v", got)
	}
}

func TestFilterResources(t *testing.T) {
	resources := []Resource{
		{Name: "Figma", Type: ResourceTool, Category: "Design"},
		{Name: "Pricing guide", Type: ResourceArticle, Notes: "design rates"},
		{Name: "Go talk", Type: ResourceVideo},
	}
	if got := FilterResources(resources, "all", "design"); len(got) != 2 {
		t.Errorf("expected 2 design resources, got %d", len(got))
	}
	if got := FilterResources(resources, "tool", ""); len(got) != 1 {
		t.Errorf("expected 1 tool, got %d", len(got))
	}
}

func TestBuildDashboard(t *testing.T) {
	// Wednesday; the week runs Sunday 2024-06-09 to Saturday 2024-06-15.
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	tasks := []Task{
		{Deadline: "2024-06-12", Priority: PriorityHigh, Status: TaskDone},
		{Deadline: "2024-06-09", Priority: PriorityHigh, Status: TaskToDo},
		{Deadline: "2024-06-16", Priority: PriorityLow, Status: TaskDone},
	}
	d := BuildDashboard(
		[]Client{{Status: ClientActive}, {Status: ClientLead}},
		[]Project{{Status: ProjectInProgress}, {Status: ProjectDone}},
		tasks,
		[]Finance{{Date: "2024-06-01", Type: FinanceIncome, Amount: 900}},
		[]Goal{{Category: GoalWork, Status: GoalCompleted}, {Category: GoalWork, Status: GoalActive}},
		now,
	)

	if d.ActiveClients != 1 || d.ActiveProjects != 1 {
		t.Errorf("unexpected client/project counts: %+v", d)
	}
	if d.CompletedTasks != 2 || d.TotalTasks != 3 {
		t.Errorf("unexpected task counts: %d/%d", d.CompletedTasks, d.TotalTasks)
	}
	if d.HighPriorityTasks != (Progress{Value: 1, Max: 2}) {
		t.Errorf("unexpected high priority progress: %+v", d.HighPriorityTasks)
	}
	if d.WeekTasks != (Progress{Value: 1, Max: 2}) {
		t.Errorf("unexpected week progress: %+v", d.WeekTasks)
	}
	if len(d.TodaysTasks) != 1 {
		t.Errorf("expected one task due today, got %d", len(d.TodaysTasks))
	}
	if d.MonthlyIncome != 900 {
		t.Errorf("expected monthly income 900, got %v", d.MonthlyIncome)
	}
	if d.GoalsByCategory[GoalWork] != (Progress{Value: 1, Max: 2}) || d.CompletedGoals != 1 {
		t.Errorf("unexpected goal progress: %+v", d.GoalsByCategory)
	}
}
