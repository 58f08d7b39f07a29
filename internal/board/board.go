// Package board wires the generic list and dialog controllers to each entity
// kind: sort fields, filters, drafts, validation and API calls.
package board

import (
	"context"

	"golang.org/x/text/language"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/listing"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/store"
)

// Settings are shared by every list.
type Settings struct {
	PageSize       int
	ServerPaging   bool
	ClearOnRefresh bool
	Locale         language.Tag
}

// API is everything the board needs from the server. *sdk.Client implements it.
type API interface {
	ProjectAPI
	TaskAPI
	SprintAPI
	RoleAPI
	InvitationAPI
	MemberAPI
	ActivityAPI
}

// Board holds one controller per list and one dialog per editable kind.
type Board struct {
	Projects      *ProjectList
	ProjectDialog *ProjectDialog
	Tasks         *TaskList
	TaskDialog    *TaskDialog
	Sprints       *SprintList
	SprintDialog  *SprintDialog
	Roles         *RoleList
	RoleDialog    *RoleDialog
	Invitations   *InvitationList
	InviteDialog  *InvitationDialog
	Members       *MemberList
	Activity      *ActivityList

	api    API
	runner *remote.Runner
}

func New(api API, r *remote.Runner, st *store.Store, s Settings) *Board {
	b := &Board{api: api, runner: r}
	b.Projects = NewProjectList(api, r, st, s)
	b.ProjectDialog = NewProjectDialog(api, r, b.Projects)
	b.Tasks = NewTaskList(api, r, st, s)
	b.TaskDialog = NewTaskDialog(api, r, b.Tasks)
	b.Sprints = NewSprintList(api, r, st, s)
	b.SprintDialog = NewSprintDialog(api, r, b.Sprints)
	b.Roles = NewRoleList(api, r, st, s)
	b.RoleDialog = NewRoleDialog(api, r, b.Roles)
	b.Invitations = NewInvitationList(api, r, st, s)
	b.InviteDialog = NewInvitationDialog(api, r, b.Invitations)
	b.Members = NewMemberList(api, r, st, s)
	b.Activity = NewActivityList(api, r, s)
	return b
}

func (b *Board) DeleteProject(ctx context.Context, id string) bool {
	return remove(ctx, b.runner, "operations.projects.delete", "operations.projects.deleted", id, b.api.DeleteProject, b.Projects)
}

func (b *Board) DeleteTask(ctx context.Context, id string) bool {
	return remove(ctx, b.runner, "operations.tasks.delete", "operations.tasks.deleted", id, b.api.DeleteTask, b.Tasks)
}

func (b *Board) DeleteSprint(ctx context.Context, id string) bool {
	return remove(ctx, b.runner, "operations.sprints.delete", "operations.sprints.deleted", id, b.api.DeleteSprint, b.Sprints)
}

func (b *Board) DeleteRole(ctx context.Context, id string) bool {
	return remove(ctx, b.runner, "operations.roles.delete", "operations.roles.deleted", id, b.api.DeleteRole, b.Roles)
}

// RevokeInvitation keeps the invitation listed with its revoked status.
func (b *Board) RevokeInvitation(ctx context.Context, id string) bool {
	res := remote.Run(ctx, b.runner, nil, remote.Op[domain.Invitation]{
		Name:    "operations.invitations.revoke",
		Success: "operations.invitations.revoked",
		Call: func(ctx context.Context) (domain.Invitation, error) {
			return b.api.RevokeInvitation(ctx, id)
		},
	})
	if !res.OK() {
		return false
	}
	b.Invitations.Updated(res.Value())
	return true
}

type empty struct{}

func remove[E domain.Entity](ctx context.Context, r *remote.Runner, name, success, id string, call func(context.Context, string) error, done listing.Reconciler[E]) bool {
	res := remote.Run(ctx, r, nil, remote.Op[empty]{
		Name:    name,
		Success: success,
		Call: func(ctx context.Context) (empty, error) {
			return empty{}, call(ctx, id)
		},
	})
	if !res.OK() {
		return false
	}
	done.Deleted(id)
	return true
}

// fetchAll adapts an unpaged list endpoint.
func fetchAll[E domain.Entity, F any](call func(context.Context) (domain.Page[E], error)) func(context.Context, listing.Query[F]) (domain.Page[E], error) {
	return func(ctx context.Context, _ listing.Query[F]) (domain.Page[E], error) {
		return call(ctx)
	}
}

func mirror[E any](st *store.Store, cell func(*store.Store) *store.Cell[[]E]) func([]E) {
	if st == nil {
		return nil
	}
	return cell(st).Mirror()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
