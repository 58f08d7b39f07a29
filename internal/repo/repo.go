package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"sprintdesk/internal/domain"
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repo holds the typed queries of the dev server. Every method takes the
// Querier to run on, so reads inside a transaction see its writes.
type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// stampLayout keeps a fixed width so stored timestamps sort as text.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func Stamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTimePtr(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return Stamp(*v)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func where(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

const projectColumns = `id,name,key,COALESCE(description,''),status,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (domain.Project, error) {
	var p domain.Project
	var created string
	err := row.Scan(&p.ID, &p.Name, &p.Key, &p.Description, &p.Status, &created)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	p.CreatedAt = parseStamp(created)
	return p, err
}

func (r Repo) InsertProject(ctx context.Context, q Querier, p domain.Project) error {
	_, err := q.ExecContext(ctx, `INSERT INTO projects(id,name,key,description,status,created_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, p.Key, nullable(p.Description), p.Status, Stamp(p.CreatedAt))
	return err
}

func (r Repo) GetProject(ctx context.Context, q Querier, id string) (domain.Project, error) {
	return scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) ProjectKeyTaken(ctx context.Context, q Querier, key, exceptID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE key=? AND id<>?`, key, exceptID).Scan(&n)
	return n > 0, err
}

func (r Repo) ListProjects(ctx context.Context, q Querier) ([]domain.Project, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) UpdateProject(ctx context.Context, q Querier, p domain.Project) error {
	return affectedOne(q.ExecContext(ctx, `UPDATE projects SET name=?,key=?,description=?,status=? WHERE id=?`,
		p.Name, p.Key, nullable(p.Description), p.Status, p.ID))
}

func (r Repo) DeleteProject(ctx context.Context, q Querier, id string) error {
	return affectedOne(q.ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id))
}

func (r Repo) CountRows(ctx context.Context, q Querier, table, column, value string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s=?`, table, column), value).Scan(&n)
	return n, err
}
