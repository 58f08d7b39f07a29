package board

import (
	"context"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
	"sprintdesk/internal/listing"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/store"
	sdk "sprintdesk/sdk/go"
)

type ProjectAPI interface {
	ListProjects(ctx context.Context) (domain.Page[domain.Project], error)
	CreateProject(ctx context.Context, in sdk.ProjectInput) (domain.Project, error)
	UpdateProject(ctx context.Context, id string, in sdk.ProjectInput) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

type ActivityAPI interface {
	Activity(ctx context.Context, limit int) (domain.Page[domain.Activity], error)
}

type ProjectFilter struct {
	Search string
	Status string
}

func (f ProjectFilter) Match(p domain.Project) bool {
	return listing.Contains(f.Search, p.Name, p.Key, p.Description) && listing.Equal(f.Status, p.Status)
}

var ProjectFields = []listing.Field[domain.Project]{
	{Name: "name", Key: func(p domain.Project) listing.Value { return listing.Text(p.Name) }},
	{Name: "key", Key: func(p domain.Project) listing.Value { return listing.Text(p.Key) }},
	{Name: "status", Key: func(p domain.Project) listing.Value { return listing.Text(p.Status) }},
	{Name: "created", Key: func(p domain.Project) listing.Value { return listing.At(p.CreatedAt) }},
}

type ProjectList = listing.Controller[domain.Project, ProjectFilter]

func NewProjectList(api ProjectAPI, r *remote.Runner, st *store.Store, s Settings) *ProjectList {
	return listing.New(listing.Options[domain.Project, ProjectFilter]{
		Fetch:          fetchAll[domain.Project, ProjectFilter](api.ListProjects),
		Runner:         r,
		Op:             "operations.projects.list",
		Fields:         ProjectFields,
		DefaultSort:    "name",
		PageSize:       s.PageSize,
		ClearOnRefresh: s.ClearOnRefresh,
		Locale:         s.Locale,
		Mirror:         mirror(st, func(st *store.Store) *store.Cell[[]domain.Project] { return &st.Projects }),
	})
}

type ProjectDraft struct {
	Name        string
	Key         string
	Description string
	Status      string
}

var (
	ProjectName = form.Field[ProjectDraft, string]{
		Name:       "projectName",
		Get:        func(d ProjectDraft) string { return d.Name },
		Set:        func(d *ProjectDraft, v string) { d.Name = v },
		Validators: []form.Validator[string]{form.Required(), form.Length(2, 50)},
	}
	ProjectKey = form.Field[ProjectDraft, string]{
		Name:       "projectKey",
		Get:        func(d ProjectDraft) string { return d.Key },
		Set:        func(d *ProjectDraft, v string) { d.Key = v },
		Validators: []form.Validator[string]{form.Required(), form.Length(2, 10)},
	}
	ProjectDescription = form.Field[ProjectDraft, string]{
		Name:       "description",
		Get:        func(d ProjectDraft) string { return d.Description },
		Set:        func(d *ProjectDraft, v string) { d.Description = v },
		Validators: []form.Validator[string]{form.MaxLength(255)},
	}
	ProjectStatus = form.Field[ProjectDraft, string]{
		Name:       "status",
		Get:        func(d ProjectDraft) string { return d.Status },
		Set:        func(d *ProjectDraft, v string) { d.Status = v },
		Validators: []form.Validator[string]{form.OneOf("active", "archived")},
	}
)

type ProjectDialog = form.Dialog[ProjectDraft, domain.Project]

func NewProjectDialog(api ProjectAPI, r *remote.Runner, done listing.Reconciler[domain.Project]) *ProjectDialog {
	input := func(d ProjectDraft) sdk.ProjectInput {
		return sdk.ProjectInput{Name: d.Name, Key: d.Key, Description: d.Description, Status: d.Status}
	}
	return form.New(form.Options[ProjectDraft, domain.Project]{
		Defaults: func() ProjectDraft { return ProjectDraft{Status: "active"} },
		Seed: func(p domain.Project) ProjectDraft {
			return ProjectDraft{Name: p.Name, Key: p.Key, Description: p.Description, Status: p.Status}
		},
		Fields: []form.Binding[ProjectDraft]{ProjectName, ProjectKey, ProjectDescription, ProjectStatus},
		Create: func(ctx context.Context, d ProjectDraft) (domain.Project, error) {
			return api.CreateProject(ctx, input(d))
		},
		Update: func(ctx context.Context, id string, d ProjectDraft) (domain.Project, error) {
			return api.UpdateProject(ctx, id, input(d))
		},
		Done:   done,
		Runner: r,
		Ops: form.Ops{
			Create:  "operations.projects.create",
			Update:  "operations.projects.update",
			Created: "operations.projects.created",
			Updated: "operations.projects.updated",
		},
	})
}

// ActivityFilter narrows the activity log by entity kind and free text
// over the event type.
type ActivityFilter struct {
	Search     string
	EntityKind string
}

func (f ActivityFilter) Match(a domain.Activity) bool {
	return listing.Contains(f.Search, a.Type, a.ActorID) && listing.Equal(f.EntityKind, a.EntityKind)
}

var ActivityFields = []listing.Field[domain.Activity]{
	{Name: "ts", Key: func(a domain.Activity) listing.Value { return listing.At(a.TS) }},
	{Name: "type", Key: func(a domain.Activity) listing.Value { return listing.Text(a.Type) }},
}

type ActivityList = listing.Controller[domain.Activity, ActivityFilter]

// ActivityLimit bounds one activity fetch.
const ActivityLimit = 200

func NewActivityList(api ActivityAPI, r *remote.Runner, s Settings) *ActivityList {
	return listing.New(listing.Options[domain.Activity, ActivityFilter]{
		Fetch: func(ctx context.Context, _ listing.Query[ActivityFilter]) (domain.Page[domain.Activity], error) {
			return api.Activity(ctx, ActivityLimit)
		},
		Runner:      r,
		Op:          "operations.activity.list",
		Fields:      ActivityFields,
		DefaultSort: "ts",
		PageSize:    s.PageSize,
		Locale:      s.Locale,
	})
}
