package repo

import (
	"context"
	"database/sql"

	"sprintdesk/internal/domain"
)

const sprintColumns = `id,project_id,name,COALESCE(goal,''),status,start_date,end_date`

func scanSprint(row rowScanner) (domain.Sprint, error) {
	var s domain.Sprint
	var start, end string
	err := row.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Goal, &s.Status, &start, &end)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	s.StartDate = parseStamp(start)
	s.EndDate = parseStamp(end)
	s.MemberIDs = []string{}
	return s, err
}

func (r Repo) InsertSprint(ctx context.Context, q Querier, s domain.Sprint, createdAt string) error {
	if _, err := q.ExecContext(ctx, `INSERT INTO sprints(id,project_id,name,goal,status,start_date,end_date,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.ProjectID, s.Name, nullable(s.Goal), s.Status, Stamp(s.StartDate), Stamp(s.EndDate), createdAt); err != nil {
		return err
	}
	return r.setSprintMembers(ctx, q, s.ID, s.MemberIDs)
}

func (r Repo) UpdateSprint(ctx context.Context, q Querier, s domain.Sprint) error {
	err := affectedOne(q.ExecContext(ctx, `UPDATE sprints SET name=?,goal=?,status=?,start_date=?,end_date=? WHERE id=? AND project_id=?`,
		s.Name, nullable(s.Goal), s.Status, Stamp(s.StartDate), Stamp(s.EndDate), s.ID, s.ProjectID))
	if err != nil {
		return err
	}
	return r.setSprintMembers(ctx, q, s.ID, s.MemberIDs)
}

func (r Repo) setSprintMembers(ctx context.Context, q Querier, sprintID string, members []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM sprint_members WHERE sprint_id=?`, sprintID); err != nil {
		return err
	}
	for _, m := range members {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO sprint_members(sprint_id,user_id) VALUES (?,?)`, sprintID, m); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) sprintMembers(ctx context.Context, q Querier, sprintID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT user_id FROM sprint_members WHERE sprint_id=? ORDER BY user_id`, sprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) GetSprint(ctx context.Context, q Querier, projectID, id string) (domain.Sprint, error) {
	s, err := scanSprint(q.QueryRowContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE id=? AND project_id=?`, id, projectID))
	if err != nil {
		return s, err
	}
	s.MemberIDs, err = r.sprintMembers(ctx, q, s.ID)
	return s, err
}

func (r Repo) ListSprints(ctx context.Context, q Querier, projectID string) ([]domain.Sprint, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+sprintColumns+` FROM sprints WHERE project_id=? ORDER BY start_date, id`, projectID)
	if err != nil {
		return nil, err
	}
	res := []domain.Sprint{}
	for rows.Next() {
		s, err := scanSprint(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Members are loaded after the cursor closes; the pool holds one connection.
	for i := range res {
		if res[i].MemberIDs, err = r.sprintMembers(ctx, q, res[i].ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r Repo) DeleteSprint(ctx context.Context, q Querier, projectID, id string) error {
	return affectedOne(q.ExecContext(ctx, `DELETE FROM sprints WHERE id=? AND project_id=?`, id, projectID))
}
