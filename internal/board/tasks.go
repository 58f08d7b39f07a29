package board

import (
	"context"
	"slices"
	"time"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
	"sprintdesk/internal/listing"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/store"
	sdk "sprintdesk/sdk/go"
)

type TaskAPI interface {
	ListTasks(ctx context.Context, q sdk.TaskQuery) (domain.Page[domain.Task], error)
	CreateTask(ctx context.Context, in sdk.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, in sdk.TaskInput) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// TaskFilter constrains the task list. Search looks at title and
// description only.
type TaskFilter struct {
	Search     string
	Status     string
	Priority   int
	AssigneeID string
	ProjectID  string
	SprintID   string
	DueFrom    time.Time
	DueTo      time.Time
}

func (f TaskFilter) Match(t domain.Task) bool {
	return listing.Contains(f.Search, t.Title, t.Description) &&
		listing.Equal(f.Status, t.Status) &&
		(f.Priority == 0 || (t.Priority != nil && *t.Priority == f.Priority)) &&
		listing.EqualPtr(f.AssigneeID, t.AssigneeID) &&
		listing.Equal(f.ProjectID, t.ProjectID) &&
		listing.EqualPtr(f.SprintID, t.SprintID) &&
		listing.Within(t.DueDate, f.DueFrom, f.DueTo)
}

func statusRank(status string) listing.Value {
	i := slices.Index(domain.TaskStatuses, status)
	if i < 0 {
		return listing.Missing()
	}
	return listing.Number(float64(i))
}

// TaskFields are the sortable task columns. Unset priority and due date sort
// last.
var TaskFields = []listing.Field[domain.Task]{
	{Name: "title", Key: func(t domain.Task) listing.Value { return listing.Text(t.Title) }},
	{Name: "status", Key: func(t domain.Task) listing.Value { return statusRank(t.Status) }, Missing: listing.MissingHigh},
	{Name: "priority", Key: func(t domain.Task) listing.Value { return listing.Int(t.Priority) }, Missing: listing.MissingHigh},
	{Name: "due", Key: func(t domain.Task) listing.Value { return listing.Time(t.DueDate) }, Missing: listing.MissingHigh},
	{Name: "created", Key: func(t domain.Task) listing.Value { return listing.At(t.CreatedAt) }},
	{Name: "updated", Key: func(t domain.Task) listing.Value { return listing.At(t.UpdatedAt) }},
}

type TaskList = listing.Controller[domain.Task, TaskFilter]

func NewTaskList(api TaskAPI, r *remote.Runner, st *store.Store, s Settings) *TaskList {
	return listing.New(listing.Options[domain.Task, TaskFilter]{
		Fetch: func(ctx context.Context, q listing.Query[TaskFilter]) (domain.Page[domain.Task], error) {
			tq := sdk.TaskQuery{
				Search:     q.Criteria.Search,
				Status:     constraint(q.Criteria.Status),
				Priority:   q.Criteria.Priority,
				AssigneeID: constraint(q.Criteria.AssigneeID),
				SprintID:   constraint(q.Criteria.SprintID),
			}
			if s.ServerPaging {
				tq.Page, tq.Size = q.Page, q.Size
			}
			return api.ListTasks(ctx, tq)
		},
		Runner:         r,
		Op:             "operations.tasks.list",
		Fields:         TaskFields,
		DefaultSort:    "created",
		PageSize:       s.PageSize,
		ServerPaging:   s.ServerPaging,
		ClearOnRefresh: s.ClearOnRefresh,
		Locale:         s.Locale,
		Mirror:         mirror(st, func(st *store.Store) *store.Cell[[]domain.Task] { return &st.Tasks }),
	})
}

// constraint drops the "all" sentinel before it reaches the server.
func constraint(v string) string {
	if listing.Unset(v) {
		return ""
	}
	return v
}

type TaskDraft struct {
	Title       string
	Description string
	Status      string
	Priority    *int
	AssigneeID  string
	SprintID    string
	DueDate     *time.Time
}

var (
	TaskTitle = form.Field[TaskDraft, string]{
		Name:       "title",
		Get:        func(d TaskDraft) string { return d.Title },
		Set:        func(d *TaskDraft, v string) { d.Title = v },
		Validators: []form.Validator[string]{form.Required(), form.MaxLength(120)},
	}
	TaskDescription = form.Field[TaskDraft, string]{
		Name:       "description",
		Get:        func(d TaskDraft) string { return d.Description },
		Set:        func(d *TaskDraft, v string) { d.Description = v },
		Validators: []form.Validator[string]{form.MaxLength(255)},
	}
	TaskStatus = form.Field[TaskDraft, string]{
		Name:       "status",
		Get:        func(d TaskDraft) string { return d.Status },
		Set:        func(d *TaskDraft, v string) { d.Status = v },
		Validators: []form.Validator[string]{form.Required(), form.OneOf(domain.TaskStatuses...)},
	}
	TaskPriority = form.Field[TaskDraft, *int]{
		Name: "priority",
		Get:  func(d TaskDraft) *int { return d.Priority },
		Set:  func(d *TaskDraft, v *int) { d.Priority = v },
	}
	TaskAssignee = form.Field[TaskDraft, string]{
		Name: "assignee",
		Get:  func(d TaskDraft) string { return d.AssigneeID },
		Set:  func(d *TaskDraft, v string) { d.AssigneeID = v },
	}
	TaskSprint = form.Field[TaskDraft, string]{
		Name: "sprint",
		Get:  func(d TaskDraft) string { return d.SprintID },
		Set:  func(d *TaskDraft, v string) { d.SprintID = v },
	}
	TaskDue = form.Field[TaskDraft, *time.Time]{
		Name: "due",
		Get:  func(d TaskDraft) *time.Time { return d.DueDate },
		Set:  func(d *TaskDraft, v *time.Time) { d.DueDate = v },
	}
)

func (d TaskDraft) input() sdk.TaskInput {
	return sdk.TaskInput{
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    d.Priority,
		AssigneeID:  optional(d.AssigneeID),
		SprintID:    optional(d.SprintID),
		DueDate:     d.DueDate,
	}
}

type TaskDialog = form.Dialog[TaskDraft, domain.Task]

func NewTaskDialog(api TaskAPI, r *remote.Runner, done listing.Reconciler[domain.Task]) *TaskDialog {
	return form.New(form.Options[TaskDraft, domain.Task]{
		Defaults: func() TaskDraft { return TaskDraft{Status: domain.TaskTodo} },
		Seed: func(t domain.Task) TaskDraft {
			return TaskDraft{
				Title:       t.Title,
				Description: t.Description,
				Status:      t.Status,
				Priority:    clonePtr(t.Priority),
				AssigneeID:  deref(t.AssigneeID),
				SprintID:    deref(t.SprintID),
				DueDate:     clonePtr(t.DueDate),
			}
		},
		Fields: []form.Binding[TaskDraft]{TaskTitle, TaskDescription, TaskStatus},
		Create: func(ctx context.Context, d TaskDraft) (domain.Task, error) {
			return api.CreateTask(ctx, d.input())
		},
		Update: func(ctx context.Context, id string, d TaskDraft) (domain.Task, error) {
			return api.UpdateTask(ctx, id, d.input())
		},
		Done:   done,
		Runner: r,
		Ops: form.Ops{
			Create:  "operations.tasks.create",
			Update:  "operations.tasks.update",
			Created: "operations.tasks.created",
			Updated: "operations.tasks.updated",
		},
	})
}
