package model

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusDone       TaskStatus = "done"
)

// TaskPriority orders tasks by urgency.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// TaskPhase groups tasks by product-development phase.
type TaskPhase string

const (
	TaskPhaseResearch TaskPhase = "research"
	TaskPhaseDrafting TaskPhase = "drafting"
	TaskPhaseFiling   TaskPhase = "filing"
	TaskPhaseLaunch   TaskPhase = "launch"
)

// Task is a to-do item tracked alongside products. Tasks are descriptive
// only: they feed the assistant's context and the dashboard list.
type Task struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Assignee  string       `json:"assignee,omitempty"`
	DueDate   *time.Time   `json:"dueDate,omitempty"`
	Status    TaskStatus   `json:"status"`
	Priority  TaskPriority `json:"priority"`
	Phase     TaskPhase    `json:"phase,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Overdue reports whether the task has a due date in the past and is not done.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusDone
}
