package repo

import (
	"context"
	"database/sql"
	"strings"

	"sprintdesk/internal/domain"
)

// TaskFilters narrows ListTasks. Limit 0 returns every match.
type TaskFilters struct {
	ProjectID  string
	Search     string
	Status     string
	Priority   int
	AssigneeID string
	SprintID   string
	Limit      int
	Offset     int
}

const taskColumns = `id,project_id,sprint_id,title,description,status,priority,assignee_id,due_date,created_at,updated_at`

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	var sprintID, description, assigneeID, dueDate sql.NullString
	var priority sql.NullInt64
	var created, updated string
	err := row.Scan(&t.ID, &t.ProjectID, &sprintID, &t.Title, &description, &t.Status, &priority, &assigneeID, &dueDate, &created, &updated)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if sprintID.Valid {
		t.SprintID = &sprintID.String
	}
	if description.Valid {
		t.Description = description.String
	}
	if priority.Valid {
		p := int(priority.Int64)
		t.Priority = &p
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if dueDate.Valid {
		d := parseStamp(dueDate.String)
		t.DueDate = &d
	}
	t.CreatedAt = parseStamp(created)
	t.UpdatedAt = parseStamp(updated)
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, q Querier, t domain.Task) error {
	_, err := q.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.ProjectID, nullableStringPtr(t.SprintID), t.Title, nullable(t.Description), t.Status,
		nullableIntPtr(t.Priority), nullableStringPtr(t.AssigneeID), nullableTimePtr(t.DueDate),
		Stamp(t.CreatedAt), Stamp(t.UpdatedAt))
	return err
}

func (r Repo) UpdateTask(ctx context.Context, q Querier, t domain.Task) error {
	return affectedOne(q.ExecContext(ctx, `UPDATE tasks SET sprint_id=?,title=?,description=?,status=?,priority=?,assignee_id=?,due_date=?,updated_at=? WHERE id=? AND project_id=?`,
		nullableStringPtr(t.SprintID), t.Title, nullable(t.Description), t.Status, nullableIntPtr(t.Priority),
		nullableStringPtr(t.AssigneeID), nullableTimePtr(t.DueDate), Stamp(t.UpdatedAt), t.ID, t.ProjectID))
}

func (r Repo) GetTask(ctx context.Context, q Querier, projectID, id string) (domain.Task, error) {
	return scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=? AND project_id=?`, id, projectID))
}

func (r Repo) DeleteTask(ctx context.Context, q Querier, projectID, id string) error {
	return affectedOne(q.ExecContext(ctx, `DELETE FROM tasks WHERE id=? AND project_id=?`, id, projectID))
}

// ListTasks returns one window of matching tasks, oldest first, and the
// total number of matches.
func (r Repo) ListTasks(ctx context.Context, q Querier, f TaskFilters) ([]domain.Task, int, error) {
	var clauses []string
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		clauses = append(clauses, "(LOWER(title) LIKE ? OR LOWER(COALESCE(description,'')) LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority > 0 {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.SprintID != "" {
		clauses = append(clauses, "sprint_id=?")
		args = append(args, f.SprintID)
	}
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`+where(clauses), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + taskColumns + ` FROM tasks` + where(clauses) + ` ORDER BY created_at, id`
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, t)
	}
	return res, total, rows.Err()
}
