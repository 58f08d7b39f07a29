package board

import (
	"context"
	"slices"
	"time"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
	"sprintdesk/internal/listing"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/store"
	sdk "sprintdesk/sdk/go"
)

type SprintAPI interface {
	ListSprints(ctx context.Context) (domain.Page[domain.Sprint], error)
	CreateSprint(ctx context.Context, in sdk.SprintInput) (domain.Sprint, error)
	UpdateSprint(ctx context.Context, id string, in sdk.SprintInput) (domain.Sprint, error)
	DeleteSprint(ctx context.Context, id string) error
}

var SprintStatuses = []string{"planned", "active", "closed"}

// SprintFilter matches sprints whose start falls within [From, To].
type SprintFilter struct {
	Search string
	Status string
	From   time.Time
	To     time.Time
}

func (f SprintFilter) Match(s domain.Sprint) bool {
	return listing.Contains(f.Search, s.Name, s.Goal) &&
		listing.Equal(f.Status, s.Status) &&
		listing.Within(&s.StartDate, f.From, f.To)
}

var SprintFields = []listing.Field[domain.Sprint]{
	{Name: "name", Key: func(s domain.Sprint) listing.Value { return listing.Text(s.Name) }},
	{Name: "status", Key: func(s domain.Sprint) listing.Value {
		i := slices.Index(SprintStatuses, s.Status)
		if i < 0 {
			return listing.Missing()
		}
		return listing.Number(float64(i))
	}, Missing: listing.MissingHigh},
	{Name: "start", Key: func(s domain.Sprint) listing.Value { return listing.At(s.StartDate) }},
	{Name: "end", Key: func(s domain.Sprint) listing.Value { return listing.At(s.EndDate) }},
}

type SprintList = listing.Controller[domain.Sprint, SprintFilter]

func NewSprintList(api SprintAPI, r *remote.Runner, st *store.Store, s Settings) *SprintList {
	return listing.New(listing.Options[domain.Sprint, SprintFilter]{
		Fetch:          fetchAll[domain.Sprint, SprintFilter](api.ListSprints),
		Runner:         r,
		Op:             "operations.sprints.list",
		Fields:         SprintFields,
		DefaultSort:    "start",
		PageSize:       s.PageSize,
		ClearOnRefresh: s.ClearOnRefresh,
		Locale:         s.Locale,
		Mirror:         mirror(st, func(st *store.Store) *store.Cell[[]domain.Sprint] { return &st.Sprints }),
	})
}

type SprintDraft struct {
	Name      string
	Goal      string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	MemberIDs []string
}

var (
	SprintName = form.Field[SprintDraft, string]{
		Name:       "sprintName",
		Get:        func(d SprintDraft) string { return d.Name },
		Set:        func(d *SprintDraft, v string) { d.Name = v },
		Validators: []form.Validator[string]{form.Required(), form.Length(2, 50)},
	}
	SprintGoal = form.Field[SprintDraft, string]{
		Name:       "goal",
		Get:        func(d SprintDraft) string { return d.Goal },
		Set:        func(d *SprintDraft, v string) { d.Goal = v },
		Validators: []form.Validator[string]{form.MaxLength(255)},
	}
	SprintStatus = form.Field[SprintDraft, string]{
		Name:       "status",
		Get:        func(d SprintDraft) string { return d.Status },
		Set:        func(d *SprintDraft, v string) { d.Status = v },
		Validators: []form.Validator[string]{form.OneOf(SprintStatuses...)},
	}
	SprintStart = form.Field[SprintDraft, *time.Time]{
		Name:       "startDate",
		Get:        func(d SprintDraft) *time.Time { return d.StartDate },
		Set:        func(d *SprintDraft, v *time.Time) { d.StartDate = v },
		Validators: []form.Validator[*time.Time]{form.Present[time.Time]()},
	}
	SprintEnd = form.Field[SprintDraft, *time.Time]{
		Name:       "endDate",
		Get:        func(d SprintDraft) *time.Time { return d.EndDate },
		Set:        func(d *SprintDraft, v *time.Time) { d.EndDate = v },
		Validators: []form.Validator[*time.Time]{form.Present[time.Time]()},
	}
	SprintMembers = form.Field[SprintDraft, []string]{
		Name: "members",
		Get:  func(d SprintDraft) []string { return d.MemberIDs },
		Set:  func(d *SprintDraft, v []string) { d.MemberIDs = v },
	}
)

func (d SprintDraft) input() sdk.SprintInput {
	in := sdk.SprintInput{
		Name:      d.Name,
		Goal:      d.Goal,
		Status:    d.Status,
		MemberIDs: d.MemberIDs,
	}
	if d.StartDate != nil {
		in.StartDate = *d.StartDate
	}
	if d.EndDate != nil {
		in.EndDate = *d.EndDate
	}
	return in
}

type SprintDialog = form.Dialog[SprintDraft, domain.Sprint]

func NewSprintDialog(api SprintAPI, r *remote.Runner, done listing.Reconciler[domain.Sprint]) *SprintDialog {
	return form.New(form.Options[SprintDraft, domain.Sprint]{
		Defaults: func() SprintDraft { return SprintDraft{Status: "planned"} },
		Seed: func(s domain.Sprint) SprintDraft {
			start, end := s.StartDate, s.EndDate
			return SprintDraft{
				Name:      s.Name,
				Goal:      s.Goal,
				Status:    s.Status,
				StartDate: &start,
				EndDate:   &end,
				MemberIDs: slices.Clone(s.MemberIDs),
			}
		},
		Fields: []form.Binding[SprintDraft]{SprintName, SprintGoal, SprintStatus, SprintStart, SprintEnd},
		Rules: []form.Rule[SprintDraft]{form.DateRange("endDate",
			func(d SprintDraft) *time.Time { return d.StartDate },
			func(d SprintDraft) *time.Time { return d.EndDate })},
		Create: func(ctx context.Context, d SprintDraft) (domain.Sprint, error) {
			return api.CreateSprint(ctx, d.input())
		},
		Update: func(ctx context.Context, id string, d SprintDraft) (domain.Sprint, error) {
			return api.UpdateSprint(ctx, id, d.input())
		},
		Done:   done,
		Runner: r,
		Ops: form.Ops{
			Create:  "operations.sprints.create",
			Update:  "operations.sprints.update",
			Created: "operations.sprints.created",
			Updated: "operations.sprints.updated",
		},
	})
}
