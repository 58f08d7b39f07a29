package engine

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"
	"time"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/events"
	"sprintdesk/internal/repo"
)

// TaskInput replaces every editable field of a task.
type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    *int
	AssigneeID  *string
	SprintID    *string
	DueDate     *time.Time
}

// TaskQuery selects one page of tasks. Size 0 returns every match.
type TaskQuery struct {
	Search     string
	Status     string
	Priority   int
	AssigneeID string
	SprintID   string
	Page       int
	Size       int
}

const maxTaskPageSize = 200

func (in *TaskInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = domain.TaskTodo
	}
	if err := checkLength("title", in.Title, 1, 200); err != nil {
		return err
	}
	if err := checkLength("description", in.Description, 0, 2000); err != nil {
		return err
	}
	if !slices.Contains(domain.TaskStatuses, in.Status) {
		return invalid("status must be one of %s", strings.Join(domain.TaskStatuses, ", "))
	}
	if in.Priority != nil && (*in.Priority < 1 || *in.Priority > 5) {
		return invalid("priority must be between 1 and 5")
	}
	for _, p := range []**string{&in.AssigneeID, &in.SprintID} {
		if *p != nil && strings.TrimSpace(**p) == "" {
			*p = nil
		}
	}
	return nil
}

func (e Engine) ListTasks(ctx context.Context, actorID, projectID string, q TaskQuery) (domain.Page[domain.Task], error) {
	if err := e.Auth.Require(ctx, e.DB, actorID, "task.read"); err != nil {
		return domain.Page[domain.Task]{}, err
	}
	if _, err := e.Repo.GetProject(ctx, e.DB, projectID); err != nil {
		return domain.Page[domain.Task]{}, err
	}
	if q.Size < 0 || q.Page < 0 {
		return domain.Page[domain.Task]{}, invalid("page and size must not be negative")
	}
	if q.Size > maxTaskPageSize {
		q.Size = maxTaskPageSize
	}
	f := repo.TaskFilters{
		ProjectID:  projectID,
		Search:     q.Search,
		Status:     q.Status,
		Priority:   q.Priority,
		AssigneeID: q.AssigneeID,
		SprintID:   q.SprintID,
	}
	page := domain.Page[domain.Task]{}
	if q.Size > 0 {
		if q.Page == 0 {
			q.Page = 1
		}
		f.Limit = q.Size
		f.Offset = (q.Page - 1) * q.Size
		page.Page, page.Size = q.Page, q.Size
	}
	items, total, err := e.Repo.ListTasks(ctx, e.DB, f)
	if err != nil {
		return page, err
	}
	page.Items, page.Total = items, total
	return page, nil
}

func (e Engine) CreateTask(ctx context.Context, actorID, projectID string, in TaskInput) (domain.Task, error) {
	if err := in.normalize(); err != nil {
		return domain.Task{}, err
	}
	now := e.now()
	t := domain.Task{
		ID:        newID(),
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyTaskInput(&t, in)
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "task.write"); err != nil {
			return err
		}
		if err := e.checkTaskRefs(ctx, tx, t); err != nil {
			return err
		}
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "task.created", projectID, "task", t.ID, actorID, events.EventPayload{"title": t.Title, "status": t.Status})
	})
	return t, err
}

func (e Engine) UpdateTask(ctx context.Context, actorID, projectID, id string, in TaskInput) (domain.Task, error) {
	if err := in.normalize(); err != nil {
		return domain.Task{}, err
	}
	var t domain.Task
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "task.write"); err != nil {
			return err
		}
		old, err := e.Repo.GetTask(ctx, tx, projectID, id)
		if err != nil {
			return err
		}
		t = old
		applyTaskInput(&t, in)
		t.UpdatedAt = e.now()
		if err := e.checkTaskRefs(ctx, tx, t); err != nil {
			return err
		}
		if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
			return err
		}
		payload := events.EventPayload{"title": t.Title}
		if old.Status != t.Status {
			payload["from"], payload["to"] = old.Status, t.Status
		}
		return e.Events.Append(ctx, tx, "task.updated", projectID, "task", t.ID, actorID, payload)
	})
	return t, err
}

func (e Engine) DeleteTask(ctx context.Context, actorID, projectID, id string) error {
	return e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "task.write"); err != nil {
			return err
		}
		if err := e.Repo.DeleteTask(ctx, tx, projectID, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "task.deleted", projectID, "task", id, actorID, nil)
	})
}

func applyTaskInput(t *domain.Task, in TaskInput) {
	t.Title = in.Title
	t.Description = in.Description
	t.Status = in.Status
	t.Priority = in.Priority
	t.AssigneeID = in.AssigneeID
	t.SprintID = in.SprintID
	t.DueDate = in.DueDate
}

// checkTaskRefs turns dangling references into validation errors rather
// than foreign key failures.
func (e Engine) checkTaskRefs(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	if _, err := e.Repo.GetProject(ctx, tx, t.ProjectID); err != nil {
		return err
	}
	if t.AssigneeID != nil {
		if _, err := e.Repo.GetUser(ctx, tx, *t.AssigneeID); errors.Is(err, repo.ErrNotFound) {
			return invalid("assignee %s is not a member", *t.AssigneeID)
		} else if err != nil {
			return err
		}
	}
	if t.SprintID != nil {
		if _, err := e.Repo.GetSprint(ctx, tx, t.ProjectID, *t.SprintID); errors.Is(err, repo.ErrNotFound) {
			return invalid("sprint %s is not in this project", *t.SprintID)
		} else if err != nil {
			return err
		}
	}
	return nil
}
