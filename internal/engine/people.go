package engine

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"strings"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/engine/auth"
	"sprintdesk/internal/events"
	"sprintdesk/internal/repo"
)

type RoleInput struct {
	Name        string
	Description string
	Permissions []string
}

func (in *RoleInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	if err := checkLength("name", in.Name, 2, 50); err != nil {
		return err
	}
	if err := checkLength("description", in.Description, 0, 255); err != nil {
		return err
	}
	if len(in.Permissions) == 0 {
		return invalid("permissions are required")
	}
	for _, p := range in.Permissions {
		if !slices.Contains(domain.Permissions, p) {
			return invalid("unknown permission %s", p)
		}
	}
	slices.Sort(in.Permissions)
	in.Permissions = slices.Compact(in.Permissions)
	return nil
}

func (e Engine) ListRoles(ctx context.Context, actorID string) ([]domain.Role, error) {
	if _, err := e.Repo.GetUser(ctx, e.DB, actorID); err != nil {
		return nil, err
	}
	return e.Repo.ListRoles(ctx, e.DB)
}

func (e Engine) CreateRole(ctx context.Context, actorID string, in RoleInput) (domain.Role, error) {
	if err := in.normalize(); err != nil {
		return domain.Role{}, err
	}
	role := domain.Role{ID: newID(), Name: in.Name, Description: in.Description, Permissions: in.Permissions}
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "role.manage"); err != nil {
			return err
		}
		if err := e.ensureRoleNameFree(ctx, tx, role.Name, ""); err != nil {
			return err
		}
		if err := e.Repo.InsertRole(ctx, tx, role, repo.Stamp(e.now())); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "role.created", "", "role", role.ID, actorID, events.EventPayload{"permissions": role.Permissions})
	})
	return role, err
}

func (e Engine) UpdateRole(ctx context.Context, actorID, id string, in RoleInput) (domain.Role, error) {
	if err := in.normalize(); err != nil {
		return domain.Role{}, err
	}
	var role domain.Role
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "role.manage"); err != nil {
			return err
		}
		if _, err := e.Repo.GetRole(ctx, tx, id); err != nil {
			return err
		}
		if id == auth.RoleAdmin && !slices.Contains(in.Permissions, "role.manage") {
			return invalid("the admin role must keep role.manage")
		}
		if err := e.ensureRoleNameFree(ctx, tx, in.Name, id); err != nil {
			return err
		}
		role = domain.Role{ID: id, Name: in.Name, Description: in.Description, Permissions: in.Permissions}
		if err := e.Repo.UpdateRole(ctx, tx, role); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "role.updated", "", "role", id, actorID, events.EventPayload{"permissions": role.Permissions})
	})
	return role, err
}

func (e Engine) DeleteRole(ctx context.Context, actorID, id string) error {
	return e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "role.manage"); err != nil {
			return err
		}
		if _, err := e.Repo.GetRole(ctx, tx, id); err != nil {
			return err
		}
		if auth.Builtin(id) {
			return invalid("built-in roles cannot be deleted")
		}
		n, err := e.Repo.CountRows(ctx, tx, "users", "role_id", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid("role is assigned to %d member(s)", n)
		}
		if err := e.Repo.DeleteRole(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "role.deleted", "", "role", id, actorID, nil)
	})
}

func (e Engine) ensureRoleNameFree(ctx context.Context, tx *sql.Tx, name, exceptID string) error {
	taken, err := e.Repo.RoleNameTaken(ctx, tx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return invalid("role %s already exists", name)
	}
	return nil
}

type InvitationInput struct {
	Email  string
	RoleID string
}

func (e Engine) ListInvitations(ctx context.Context, actorID string) ([]domain.Invitation, error) {
	if err := e.Auth.Require(ctx, e.DB, actorID, "invitation.manage"); err != nil {
		return nil, err
	}
	invs, err := e.Repo.ListInvitations(ctx, e.DB)
	if err != nil {
		return nil, err
	}
	// Expiry is derived on read; the stored row stays pending.
	now := e.now()
	for i := range invs {
		if invs[i].Status == "pending" && !invs[i].ExpiresAt.After(now) {
			invs[i].Status = "expired"
		}
	}
	return invs, nil
}

func (e Engine) CreateInvitation(ctx context.Context, actorID string, in InvitationInput) (domain.Invitation, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.Invitation{}, err
	}
	if strings.TrimSpace(in.RoleID) == "" {
		return domain.Invitation{}, invalid("role is required")
	}
	now := e.now()
	inv := domain.Invitation{
		ID:        newID(),
		Email:     email,
		RoleID:    in.RoleID,
		Status:    "pending",
		ExpiresAt: now.Add(e.invitationTTL()),
		CreatedAt: now,
	}
	err = e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "invitation.manage"); err != nil {
			return err
		}
		if ok, err := e.Repo.RoleExists(ctx, tx, in.RoleID); err != nil {
			return err
		} else if !ok {
			return invalid("role %s does not exist", in.RoleID)
		}
		if _, err := e.Repo.GetUserByEmail(ctx, tx, email); err == nil {
			return invalid("%s is already a member", email)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if _, err := e.Repo.PendingInvitation(ctx, tx, email, repo.Stamp(now)); err == nil {
			return invalid("an invitation is already pending for %s", email)
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if err := e.Repo.InsertInvitation(ctx, tx, inv); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "invitation.created", "", "invitation", inv.ID, actorID, events.EventPayload{"email": email, "role_id": inv.RoleID})
	})
	return inv, err
}

// RevokeInvitation marks a pending invitation revoked and returns it.
func (e Engine) RevokeInvitation(ctx context.Context, actorID, id string) (domain.Invitation, error) {
	var inv domain.Invitation
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "invitation.manage"); err != nil {
			return err
		}
		var err error
		inv, err = e.Repo.GetInvitation(ctx, tx, id)
		if err != nil {
			return err
		}
		if inv.Status != "pending" {
			return invalid("only pending invitations can be revoked")
		}
		if err := e.Repo.SetInvitationStatus(ctx, tx, id, "revoked"); err != nil {
			return err
		}
		inv.Status = "revoked"
		return e.Events.Append(ctx, tx, "invitation.revoked", "", "invitation", id, actorID, events.EventPayload{"email": inv.Email})
	})
	return inv, err
}
