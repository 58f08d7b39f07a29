package repo

import (
	"context"
	"database/sql"

	"sprintdesk/internal/domain"
)

func (r Repo) InsertPermission(ctx context.Context, q Querier, id, desc string) error {
	_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO permissions(id, description) VALUES (?,?)`, id, nullable(desc))
	return err
}

func (r Repo) InsertRole(ctx context.Context, q Querier, role domain.Role, createdAt string) error {
	if _, err := q.ExecContext(ctx, `INSERT INTO roles(id,name,description,created_at) VALUES (?,?,?,?)`,
		role.ID, role.Name, nullable(role.Description), createdAt); err != nil {
		return err
	}
	return r.setRolePermissions(ctx, q, role.ID, role.Permissions)
}

func (r Repo) UpdateRole(ctx context.Context, q Querier, role domain.Role) error {
	if err := affectedOne(q.ExecContext(ctx, `UPDATE roles SET name=?,description=? WHERE id=?`,
		role.Name, nullable(role.Description), role.ID)); err != nil {
		return err
	}
	return r.setRolePermissions(ctx, q, role.ID, role.Permissions)
}

func (r Repo) DeleteRole(ctx context.Context, q Querier, id string) error {
	return affectedOne(q.ExecContext(ctx, `DELETE FROM roles WHERE id=?`, id))
}

func (r Repo) RoleExists(ctx context.Context, q Querier, id string) (bool, error) {
	n, err := r.CountRows(ctx, q, "roles", "id", id)
	return n > 0, err
}

func (r Repo) RoleNameTaken(ctx context.Context, q Querier, name, exceptID string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles WHERE name=? AND id<>?`, name, exceptID).Scan(&n)
	return n > 0, err
}

func (r Repo) setRolePermissions(ctx context.Context, q Querier, roleID string, perms []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id=?`, roleID); err != nil {
		return err
	}
	for _, p := range perms {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO role_permissions(role_id, permission_id) VALUES (?,?)`, roleID, p); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) rolePermissions(ctx context.Context, q Querier, roleID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT permission_id FROM role_permissions WHERE role_id=? ORDER BY permission_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r Repo) GetRole(ctx context.Context, q Querier, id string) (domain.Role, error) {
	var role domain.Role
	err := q.QueryRowContext(ctx, `SELECT id,name,COALESCE(description,'') FROM roles WHERE id=?`, id).
		Scan(&role.ID, &role.Name, &role.Description)
	if err == sql.ErrNoRows {
		return role, ErrNotFound
	}
	if err != nil {
		return role, err
	}
	role.Permissions, err = r.rolePermissions(ctx, q, id)
	return role, err
}

func (r Repo) ListRoles(ctx context.Context, q Querier) ([]domain.Role, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,name,COALESCE(description,'') FROM roles ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	res := []domain.Role{}
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		if res[i].Permissions, err = r.rolePermissions(ctx, q, res[i].ID); err != nil {
			return nil, err
		}
	}
	return res, nil
}

const userColumns = `id,email,full_name,COALESCE(role_id,''),joined_at`

func scanUser(row rowScanner) (domain.CompanyUser, error) {
	var u domain.CompanyUser
	var joined string
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.RoleID, &joined)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.JoinedAt = parseStamp(joined)
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, q Querier, u domain.CompanyUser) error {
	_, err := q.ExecContext(ctx, `INSERT INTO users(id,email,full_name,role_id,joined_at) VALUES (?,?,?,?,?)`,
		u.ID, u.Email, u.FullName, nullable(u.RoleID), Stamp(u.JoinedAt))
	return err
}

func (r Repo) GetUser(ctx context.Context, q Querier, id string) (domain.CompanyUser, error) {
	return scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, q Querier, email string) (domain.CompanyUser, error) {
	return scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

func (r Repo) ListUsers(ctx context.Context, q Querier) ([]domain.CompanyUser, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY joined_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.CompanyUser{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (r Repo) CountUsers(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r Repo) UserHasPermission(ctx context.Context, q Querier, userID, perm string) (bool, error) {
	row := q.QueryRowContext(ctx, `
SELECT 1 FROM users u
JOIN role_permissions rp ON rp.role_id=u.role_id
WHERE u.id=? AND rp.permission_id=? LIMIT 1`, userID, perm)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
