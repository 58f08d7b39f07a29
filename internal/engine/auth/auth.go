package auth

import (
	"context"
	"fmt"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/repo"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Built-in role ids. The first user to sign in becomes admin; later users
// without an invitation join as viewer.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

type builtinRole struct {
	id, name, description string
	permissions           []string
}

var builtinRoles = []builtinRole{
	{RoleAdmin, "Admin", "Full access", domain.Permissions},
	{RoleMember, "Member", "Works on tasks", []string{"project.read", "task.read", "task.write", "sprint.read", "report.read"}},
	{RoleViewer, "Viewer", "Read only", []string{"project.read", "task.read", "sprint.read"}},
}

var permissionDescriptions = map[string]string{
	"project.read":      "View projects",
	"project.manage":    "Create, edit and delete projects",
	"task.read":         "View tasks",
	"task.write":        "Create, edit and delete tasks",
	"sprint.read":       "View sprints",
	"sprint.manage":     "Plan and close sprints",
	"role.manage":       "Edit roles and their permissions",
	"invitation.manage": "Invite people and revoke invitations",
	"report.read":       "View reports and activity",
}

// Service provides RBAC helpers backed by SQL.
type Service struct {
	Repo repo.Repo
}

// Bootstrap seeds the permission catalog and the built-in roles. It is
// idempotent and never touches roles an admin already edited.
func (s Service) Bootstrap(ctx context.Context, q repo.Querier, createdAt string) error {
	for _, p := range domain.Permissions {
		if err := s.Repo.InsertPermission(ctx, q, p, permissionDescriptions[p]); err != nil {
			return fmt.Errorf("seed permission %s: %w", p, err)
		}
	}
	for _, r := range builtinRoles {
		ok, err := s.Repo.RoleExists(ctx, q, r.id)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		role := domain.Role{ID: r.id, Name: r.name, Description: r.description, Permissions: r.permissions}
		if err := s.Repo.InsertRole(ctx, q, role, createdAt); err != nil {
			return fmt.Errorf("seed role %s: %w", r.id, err)
		}
	}
	return nil
}

// Require returns ForbiddenError unless the user's role grants perm.
func (s Service) Require(ctx context.Context, q repo.Querier, userID, perm string) error {
	ok, err := s.Repo.UserHasPermission(ctx, q, userID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Permission: perm}
	}
	return nil
}

// Builtin reports whether id names a seeded role.
func Builtin(id string) bool {
	for _, r := range builtinRoles {
		if r.id == id {
			return true
		}
	}
	return false
}
