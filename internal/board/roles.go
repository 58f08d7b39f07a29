package board

import (
	"context"
	"slices"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
	"sprintdesk/internal/listing"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/store"
	sdk "sprintdesk/sdk/go"
)

type RoleAPI interface {
	ListRoles(ctx context.Context) (domain.Page[domain.Role], error)
	CreateRole(ctx context.Context, in sdk.RoleInput) (domain.Role, error)
	UpdateRole(ctx context.Context, id string, in sdk.RoleInput) (domain.Role, error)
	DeleteRole(ctx context.Context, id string) error
}

type RoleFilter struct {
	Search     string
	Permission string
}

func (f RoleFilter) Match(r domain.Role) bool {
	return listing.Contains(f.Search, r.Name, r.Description) &&
		(listing.Unset(f.Permission) || slices.Contains(r.Permissions, f.Permission))
}

var RoleFields = []listing.Field[domain.Role]{
	{Name: "name", Key: func(r domain.Role) listing.Value { return listing.Text(r.Name) }},
	{Name: "permissions", Key: func(r domain.Role) listing.Value { return listing.Number(float64(len(r.Permissions))) }},
}

type RoleList = listing.Controller[domain.Role, RoleFilter]

func NewRoleList(api RoleAPI, r *remote.Runner, st *store.Store, s Settings) *RoleList {
	return listing.New(listing.Options[domain.Role, RoleFilter]{
		Fetch:          fetchAll[domain.Role, RoleFilter](api.ListRoles),
		Runner:         r,
		Op:             "operations.roles.list",
		Fields:         RoleFields,
		DefaultSort:    "name",
		PageSize:       s.PageSize,
		ClearOnRefresh: s.ClearOnRefresh,
		Locale:         s.Locale,
		Mirror:         mirror(st, func(st *store.Store) *store.Cell[[]domain.Role] { return &st.Roles }),
	})
}

type RoleDraft struct {
	Name        string
	Description string
	Permissions []string
}

var (
	RoleName = form.Field[RoleDraft, string]{
		Name:       "roleName",
		Get:        func(d RoleDraft) string { return d.Name },
		Set:        func(d *RoleDraft, v string) { d.Name = v },
		Validators: []form.Validator[string]{form.Required(), form.Length(2, 50)},
	}
	RoleDescription = form.Field[RoleDraft, string]{
		Name:       "roleDescription",
		Get:        func(d RoleDraft) string { return d.Description },
		Set:        func(d *RoleDraft, v string) { d.Description = v },
		Validators: []form.Validator[string]{form.MaxLength(255)},
	}
	RolePermissions = form.Field[RoleDraft, []string]{
		Name:       "permissions",
		Get:        func(d RoleDraft) []string { return d.Permissions },
		Set:        func(d *RoleDraft, v []string) { d.Permissions = v },
		Validators: []form.Validator[[]string]{form.NotEmpty[string](), form.Subset(domain.Permissions...)},
	}
)

type RoleDialog = form.Dialog[RoleDraft, domain.Role]

func NewRoleDialog(api RoleAPI, r *remote.Runner, done listing.Reconciler[domain.Role]) *RoleDialog {
	input := func(d RoleDraft) sdk.RoleInput {
		return sdk.RoleInput{Name: d.Name, Description: d.Description, Permissions: d.Permissions}
	}
	return form.New(form.Options[RoleDraft, domain.Role]{
		Seed: func(role domain.Role) RoleDraft {
			return RoleDraft{Name: role.Name, Description: role.Description, Permissions: slices.Clone(role.Permissions)}
		},
		Fields: []form.Binding[RoleDraft]{RoleName, RoleDescription, RolePermissions},
		Create: func(ctx context.Context, d RoleDraft) (domain.Role, error) {
			return api.CreateRole(ctx, input(d))
		},
		Update: func(ctx context.Context, id string, d RoleDraft) (domain.Role, error) {
			return api.UpdateRole(ctx, id, input(d))
		},
		Done:   done,
		Runner: r,
		Ops: form.Ops{
			Create:  "operations.roles.create",
			Update:  "operations.roles.update",
			Created: "operations.roles.created",
			Updated: "operations.roles.updated",
		},
	})
}
