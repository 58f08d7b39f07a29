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

type InvitationAPI interface {
	ListInvitations(ctx context.Context) (domain.Page[domain.Invitation], error)
	CreateInvitation(ctx context.Context, in sdk.InvitationInput) (domain.Invitation, error)
	RevokeInvitation(ctx context.Context, id string) (domain.Invitation, error)
}

type MemberAPI interface {
	ListMembers(ctx context.Context) (domain.Page[domain.CompanyUser], error)
}

type InvitationFilter struct {
	Search string
	Status string
	RoleID string
}

func (f InvitationFilter) Match(i domain.Invitation) bool {
	return listing.Contains(f.Search, i.Email) &&
		listing.Equal(f.Status, i.Status) &&
		listing.Equal(f.RoleID, i.RoleID)
}

var InvitationFields = []listing.Field[domain.Invitation]{
	{Name: "email", Key: func(i domain.Invitation) listing.Value { return listing.Text(i.Email) }},
	{Name: "status", Key: func(i domain.Invitation) listing.Value { return listing.Text(i.Status) }},
	{Name: "expires", Key: func(i domain.Invitation) listing.Value { return listing.At(i.ExpiresAt) }, Missing: listing.MissingHigh},
	{Name: "created", Key: func(i domain.Invitation) listing.Value { return listing.At(i.CreatedAt) }},
}

type InvitationList = listing.Controller[domain.Invitation, InvitationFilter]

func NewInvitationList(api InvitationAPI, r *remote.Runner, st *store.Store, s Settings) *InvitationList {
	return listing.New(listing.Options[domain.Invitation, InvitationFilter]{
		Fetch:          fetchAll[domain.Invitation, InvitationFilter](api.ListInvitations),
		Runner:         r,
		Op:             "operations.invitations.list",
		Fields:         InvitationFields,
		DefaultSort:    "created",
		PageSize:       s.PageSize,
		ClearOnRefresh: s.ClearOnRefresh,
		Locale:         s.Locale,
		Mirror:         mirror(st, func(st *store.Store) *store.Cell[[]domain.Invitation] { return &st.Invitations }),
	})
}

type InvitationDraft struct {
	Email  string
	RoleID string
}

var (
	InviteEmail = form.Field[InvitationDraft, string]{
		Name:       "email",
		Get:        func(d InvitationDraft) string { return d.Email },
		Set:        func(d *InvitationDraft, v string) { d.Email = v },
		Validators: []form.Validator[string]{form.Required(), form.Email()},
	}
	InviteRole = form.Field[InvitationDraft, string]{
		Name:       "role",
		Get:        func(d InvitationDraft) string { return d.RoleID },
		Set:        func(d *InvitationDraft, v string) { d.RoleID = v },
		Validators: []form.Validator[string]{form.Required()},
	}
)

// InvitationDialog only creates; invitations are revoked, not edited.
type InvitationDialog = form.Dialog[InvitationDraft, domain.Invitation]

func NewInvitationDialog(api InvitationAPI, r *remote.Runner, done listing.Reconciler[domain.Invitation]) *InvitationDialog {
	return form.New(form.Options[InvitationDraft, domain.Invitation]{
		Fields: []form.Binding[InvitationDraft]{InviteEmail, InviteRole},
		Create: func(ctx context.Context, d InvitationDraft) (domain.Invitation, error) {
			return api.CreateInvitation(ctx, sdk.InvitationInput{Email: d.Email, RoleID: d.RoleID})
		},
		Done:   done,
		Runner: r,
		Ops: form.Ops{
			Create:  "operations.invitations.create",
			Created: "operations.invitations.created",
		},
	})
}

// MemberFilter searches names and emails.
type MemberFilter struct {
	Search string
	RoleID string
}

func (f MemberFilter) Match(u domain.CompanyUser) bool {
	return listing.Contains(f.Search, u.FullName, u.Email) && listing.Equal(f.RoleID, u.RoleID)
}

var MemberFields = []listing.Field[domain.CompanyUser]{
	{Name: "name", Key: func(u domain.CompanyUser) listing.Value { return listing.Text(u.FullName) }, Missing: listing.MissingHigh},
	{Name: "email", Key: func(u domain.CompanyUser) listing.Value { return listing.Text(u.Email) }},
	{Name: "joined", Key: func(u domain.CompanyUser) listing.Value { return listing.At(u.JoinedAt) }},
}

type MemberList = listing.Controller[domain.CompanyUser, MemberFilter]

func NewMemberList(api MemberAPI, r *remote.Runner, st *store.Store, s Settings) *MemberList {
	return listing.New(listing.Options[domain.CompanyUser, MemberFilter]{
		Fetch:          fetchAll[domain.CompanyUser, MemberFilter](api.ListMembers),
		Runner:         r,
		Op:             "operations.members.list",
		Fields:         MemberFields,
		DefaultSort:    "name",
		PageSize:       s.PageSize,
		ClearOnRefresh: s.ClearOnRefresh,
		Locale:         s.Locale,
		Mirror:         mirror(st, func(st *store.Store) *store.Cell[[]domain.CompanyUser] { return &st.Members }),
	})
}
