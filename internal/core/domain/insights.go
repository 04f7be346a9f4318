package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinels shown when a soft reference points at a missing record.
const (
	UnknownClient = "Unknown Client"
	NoProject     = "No Project"
)

// Directory resolves soft references to display names.
type Directory struct {
	clients  map[string]string
	projects map[string]string
}

// NewDirectory indexes clients and projects by id.
func NewDirectory(clients []Client, projects []Project) *Directory {
	d := &Directory{
		clients:  make(map[string]string, len(clients)),
		projects: make(map[string]string, len(projects)),
	}
	for _, c := range clients {
		d.clients[c.ID] = c.Name
	}
	for _, p := range projects {
		d.projects[p.ID] = p.Name
	}
	return d
}

// ClientName returns the client's name or UnknownClient.
func (d *Directory) ClientName(id string) string {
	if name, ok := d.clients[id]; ok && id != "" {
		return name
	}
	return UnknownClient
}

// ProjectName returns the project's name or NoProject.
func (d *Directory) ProjectName(id string) string {
	if name, ok := d.projects[id]; ok && id != "" {
		return name
	}
	return NoProject
}

// --- Tasks ---

type TaskFilter string

const (
	TaskFilterAll          TaskFilter = "all"
	TaskFilterToday        TaskFilter = "today"
	TaskFilterOverdue      TaskFilter = "overdue"
	TaskFilterHighPriority TaskFilter = "high-priority"
)

// TaskStats counts tasks per board column.
type TaskStats struct {
	ToDo  int `json:"toDo"`
	Doing int `json:"doing"`
	Done  int `json:"done"`
	Total int `json:"total"`
}

func CountTasks(tasks []Task) TaskStats {
	s := TaskStats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskToDo:
			s.ToDo++
		case TaskDoing:
			s.Doing++
		case TaskDone:
			s.Done++
		}
	}
	return s
}

// FilterTasks applies a board filter. A task is overdue when its deadline
// day has passed and it is not done.
func FilterTasks(tasks []Task, filter TaskFilter, now time.Time) []Task {
	today := startOfDay(now)
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		deadline, ok := ParseDate(t.Deadline)
		var keep bool
		switch filter {
		case TaskFilterToday:
			keep = ok && sameDay(deadline, today)
		case TaskFilterOverdue:
			keep = ok && deadline.Before(today) && t.Status != TaskDone
		case TaskFilterHighPriority:
			keep = t.Priority == PriorityHigh
		default:
			keep = true
		}
		if keep {
			out = append(out, t)
		}
	}
	return out
}

// --- Projects ---

type ProjectStats struct {
	ToDo        int     `json:"toDo"`
	InProgress  int     `json:"inProgress"`
	Done        int     `json:"done"`
	TotalBudget float64 `json:"totalBudget"`
}

func CountProjects(projects []Project) ProjectStats {
	var s ProjectStats
	budget := decimal.Zero
	for _, p := range projects {
		switch p.Status {
		case ProjectToDo:
			s.ToDo++
		case ProjectInProgress:
			s.InProgress++
		case ProjectDone:
			s.Done++
		}
		budget = budget.Add(decimal.NewFromFloat(p.Budget))
	}
	s.TotalBudget = toFloat(budget)
	return s
}

// --- Goals ---

type GoalFilter string

const (
	GoalFilterAll       GoalFilter = "all"
	GoalFilterWork      GoalFilter = "work"
	GoalFilterPersonal  GoalFilter = "personal"
	GoalFilterFinancial GoalFilter = "financial"
	GoalFilterActive    GoalFilter = "active"
	GoalFilterCompleted GoalFilter = "completed"
	GoalFilterPaused    GoalFilter = "paused"
)

type GoalStats struct {
	Total           int                  `json:"total"`
	Completed       int                  `json:"completed"`
	Active          int                  `json:"active"`
	AverageProgress int                  `json:"averageProgress"`
	ByCategory      map[GoalCategory]int `json:"byCategory"`
}

func CountGoals(goals []Goal) GoalStats {
	s := GoalStats{Total: len(goals), ByCategory: map[GoalCategory]int{}}
	progress := 0
	for _, g := range goals {
		switch g.Status {
		case GoalCompleted:
			s.Completed++
		case GoalActive:
			s.Active++
		}
		s.ByCategory[g.Category]++
		progress += g.Progress
	}
	if s.Total > 0 {
		s.AverageProgress = int(math.Round(float64(progress) / float64(s.Total)))
	}
	return s
}

func FilterGoals(goals []Goal, filter GoalFilter) []Goal {
	out := make([]Goal, 0, len(goals))
	for _, g := range goals {
		var keep bool
		switch filter {
		case GoalFilterWork:
			keep = g.Category == GoalWork
		case GoalFilterPersonal:
			keep = g.Category == GoalPersonal
		case GoalFilterFinancial:
			keep = g.Category == GoalFinancial
		case GoalFilterActive:
			keep = g.Status == GoalActive
		case GoalFilterCompleted:
			keep = g.Status == GoalCompleted
		case GoalFilterPaused:
			keep = g.Status == GoalPaused
		default:
			keep = true
		}
		if keep {
			out = append(out, g)
		}
	}
	return out
}

// --- Clients ---

type ClientStats struct {
	Active    int `json:"active"`
	Lead      int `json:"lead"`
	Completed int `json:"completed"`
}

func CountClients(clients []Client) ClientStats {
	var s ClientStats
	for _, c := range clients {
		switch c.Status {
		case ClientActive:
			s.Active++
		case ClientLead:
			s.Lead++
		case ClientCompleted:
			s.Completed++
		}
	}
	return s
}

// FilterClients matches search against name and company, case-insensitively.
// An empty status matches every status.
func FilterClients(clients []Client, search string, status ClientStatus) []Client {
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if status != "" && c.Status != status {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(c.Name), term) &&
			!strings.Contains(strings.ToLower(c.Company), term) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// --- Resources ---

type ResourceStats struct {
	Total    int `json:"total"`
	Tools    int `json:"tools"`
	Articles int `json:"articles"`
	Videos   int `json:"videos"`
}

func CountResources(resources []Resource) ResourceStats {
	s := ResourceStats{Total: len(resources)}
	for _, r := range resources {
		switch r.Type {
		case ResourceTool:
			s.Tools++
		case ResourceArticle:
			s.Articles++
		case ResourceVideo:
			s.Videos++
		}
	}
	return s
}

// FilterResources keeps resources of the given type (case-insensitive, empty or
// "all" for any) whose name, category or notes contain search.
func FilterResources(resources []Resource, kind, search string) []Resource {
	kind = strings.ToLower(kind)
	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		if kind != "" && kind != "all" && strings.ToLower(string(r.Type)) != kind {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(r.Name), term) &&
			!strings.Contains(strings.ToLower(r.Category), term) &&
			!strings.Contains(strings.ToLower(r.Notes), term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// --- Invoices ---

type InvoiceStats struct {
	Draft   int `json:"draft"`
	Sent    int `json:"sent"`
	Paid    int `json:"paid"`
	Overdue int `json:"overdue"`
}

func CountInvoices(invoices []Invoice) InvoiceStats {
	var s InvoiceStats
	for _, inv := range invoices {
		switch inv.Status {
		case InvoiceDraft:
			s.Draft++
		case InvoiceSent:
			s.Sent++
		case InvoicePaid:
			s.Paid++
		case InvoiceOverdue:
			s.Overdue++
		}
	}
	return s
}

// FilterInvoices keeps invoices with the given status; "all" or empty keeps everything.
func FilterInvoices(invoices []Invoice, status string) []Invoice {
	if status == "" || strings.EqualFold(status, "all") {
		return invoices
	}
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if strings.EqualFold(string(inv.Status), status) {
			out = append(out, inv)
		}
	}
	return out
}

// --- Dashboard ---

// Progress is a value out of a maximum, rendered as a bar.
type Progress struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

type Dashboard struct {
	ActiveClients     int                       `json:"activeClients"`
	ActiveProjects    int                       `json:"activeProjects"`
	CompletedTasks    int                       `json:"completedTasks"`
	TotalTasks        int                       `json:"totalTasks"`
	MonthlyIncome     float64                   `json:"monthlyIncome"`
	CompletedGoals    int                       `json:"completedGoals"`
	TodaysTasks       []Task                    `json:"todaysTasks"`
	HighPriorityTasks Progress                  `json:"highPriorityTasks"`
	WeekTasks         Progress                  `json:"weekTasks"`
	GoalsByCategory   map[GoalCategory]Progress `json:"goalsByCategory"`
}

// BuildDashboard derives the landing-page statistics relative to now.
func BuildDashboard(clients []Client, projects []Project, tasks []Task, finances []Finance, goals []Goal, now time.Time) Dashboard {
	d := Dashboard{
		TotalTasks:      len(tasks),
		MonthlyIncome:   SummarizeFinances(finances, now).MonthlyIncome,
		TodaysTasks:     FilterTasks(tasks, TaskFilterToday, now),
		GoalsByCategory: map[GoalCategory]Progress{},
	}
	d.ActiveClients = CountClients(clients).Active
	for _, p := range projects {
		if p.Status != ProjectDone {
			d.ActiveProjects++
		}
	}

	weekStart := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
	weekEnd := weekStart.AddDate(0, 0, 6)
	for _, t := range tasks {
		done := t.Status == TaskDone
		if done {
			d.CompletedTasks++
		}
		if t.Priority == PriorityHigh {
			d.HighPriorityTasks.Max++
			if done {
				d.HighPriorityTasks.Value++
			}
		}
		if deadline, ok := ParseDate(t.Deadline); ok && !deadline.Before(weekStart) && !deadline.After(weekEnd) {
			d.WeekTasks.Max++
			if done {
				d.WeekTasks.Value++
			}
		}
	}

	for _, g := range goals {
		p := d.GoalsByCategory[g.Category]
		p.Max++
		if g.Status == GoalCompleted {
			p.Value++
			d.CompletedGoals++
		}
		d.GoalsByCategory[g.Category] = p
	}
	return d
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
