package domain

import "time"

// Patch is a partial record update keyed by JSON field name.
type Patch map[string]any

// DateLayout is the calendar-date format used by every date field.
const DateLayout = "2006-01-02"

type ClientStatus string

const (
	ClientLead      ClientStatus = "Lead"
	ClientActive    ClientStatus = "Active"
	ClientCompleted ClientStatus = "Completed"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentPending PaymentStatus = "Pending"
	PaymentOverdue PaymentStatus = "Overdue"
)

// Client is a customer of the freelancer.
type Client struct {
	ID            string        `json:"id"`
	Name          string        `json:"name" validate:"required"`
	Company       string        `json:"company"`
	ContactInfo   string        `json:"contactInfo"`
	Status        ClientStatus  `json:"status" validate:"required,oneof=Lead Active Completed"`
	StartDate     string        `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate       string        `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentStatus PaymentStatus `json:"paymentStatus" validate:"required,oneof=Paid Pending Overdue"`
	Notes         string        `json:"notes"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type ProjectStatus string

const (
	ProjectToDo       ProjectStatus = "To Do"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectDone       ProjectStatus = "Done"
)

// Project belongs to a client through a soft reference.
type Project struct {
	ID        string        `json:"id"`
	Name      string        `json:"name" validate:"required"`
	ClientID  string        `json:"clientId"`
	DueDate   string        `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Status    ProjectStatus `json:"status" validate:"required,oneof='To Do' 'In Progress' Done"`
	Budget    float64       `json:"budget" validate:"gte=0"`
	Notes     string        `json:"notes"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

type TaskStatus string

const (
	TaskToDo  TaskStatus = "To Do"
	TaskDoing TaskStatus = "Doing"
	TaskDone  TaskStatus = "Done"
)

// Task is a unit of work, optionally attached to a project.
type Task struct {
	ID        string     `json:"id"`
	Name      string     `json:"name" validate:"required"`
	ProjectID string     `json:"projectId"`
	Deadline  string     `json:"deadline" validate:"required,datetime=2006-01-02"`
	Priority  Priority   `json:"priority" validate:"required,oneof=Low Medium High"`
	Status    TaskStatus `json:"status" validate:"required,oneof='To Do' Doing Done"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type FinanceType string

const (
	FinanceIncome  FinanceType = "Income"
	FinanceExpense FinanceType = "Expense"
)

// Finance is a single income or expense entry.
type Finance struct {
	ID            string      `json:"id"`
	Date          string      `json:"date" validate:"required,datetime=2006-01-02"`
	ClientID      string      `json:"clientId,omitempty"`
	ProjectID     string      `json:"projectId,omitempty"`
	Type          FinanceType `json:"type" validate:"required,oneof=Income Expense"`
	Amount        float64     `json:"amount" validate:"gte=0"`
	PaymentMethod string      `json:"paymentMethod"`
	Notes         string      `json:"notes"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type GoalCategory string

const (
	GoalWork      GoalCategory = "Work"
	GoalPersonal  GoalCategory = "Personal"
	GoalFinancial GoalCategory = "Financial"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "Active"
	GoalCompleted GoalStatus = "Completed"
	GoalPaused    GoalStatus = "Paused"
)

// Goal tracks progress towards a target date.
type Goal struct {
	ID         string       `json:"id"`
	Name       string       `json:"name" validate:"required"`
	Category   GoalCategory `json:"category" validate:"required,oneof=Work Personal Financial"`
	Progress   int          `json:"progress" validate:"gte=0,lte=100"`
	TargetDate string       `json:"targetDate" validate:"required,datetime=2006-01-02"`
	Status     GoalStatus   `json:"status" validate:"required,oneof=Active Completed Paused"`
	Notes      string       `json:"notes"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type ResourceType string

const (
	ResourceTool    ResourceType = "Tool"
	ResourceArticle ResourceType = "Article"
	ResourceVideo   ResourceType = "Video"
)

// Resource is a bookmarked tool, article or video.
type Resource struct {
	ID        string       `json:"id"`
	Name      string       `json:"name" validate:"required"`
	Type      ResourceType `json:"type" validate:"required,oneof=Tool Article Video"`
	URL       string       `json:"url" validate:"required,url"`
	Category  string       `json:"category"`
	Notes     string       `json:"notes"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "Draft"
	InvoiceSent    InvoiceStatus = "Sent"
	InvoicePaid    InvoiceStatus = "Paid"
	InvoiceOverdue InvoiceStatus = "Overdue"
)

// InvoiceItem is one billed line. Amount is always Quantity x Rate.
type InvoiceItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Amount      float64 `json:"amount"`
}

// Invoice bills a client. Total is always the sum of item amounts.
type Invoice struct {
	ID            string        `json:"id"`
	ClientID      string        `json:"clientId" validate:"required"`
	ProjectID     string        `json:"projectId,omitempty"`
	InvoiceNumber string        `json:"invoiceNumber" validate:"required"`
	Date          string        `json:"date" validate:"required,datetime=2006-01-02"`
	DueDate       string        `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Items         []InvoiceItem `json:"items" validate:"required,min=1,dive"`
	Total         float64       `json:"total"`
	Status        InvoiceStatus `json:"status" validate:"required,oneof=Draft Sent Paid Overdue"`
	Notes         string        `json:"notes"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// ParseDate reads a calendar date, accepting RFC 3339 timestamps as well.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
