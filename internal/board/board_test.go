package board

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/form"
	"sprintdesk/internal/listing"
	"sprintdesk/internal/notify"
	"sprintdesk/internal/remote"
	"sprintdesk/internal/store"
	sdk "sprintdesk/sdk/go"
)

type fakeAPI struct {
	tasks       []domain.Task
	roles       []domain.Role
	invitations []domain.Invitation
	taskQueries []sdk.TaskQuery
	calls       map[string]int
	fail        map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeAPI) hit(name string) error {
	f.calls[name]++
	return f.fail[name]
}

func page[E domain.Entity](items []E) domain.Page[E] {
	return domain.Page[E]{Items: append([]E(nil), items...), Total: len(items)}
}

func (f *fakeAPI) ListProjects(ctx context.Context) (domain.Page[domain.Project], error) {
	return domain.Page[domain.Project]{}, f.hit("ListProjects")
}
func (f *fakeAPI) CreateProject(ctx context.Context, in sdk.ProjectInput) (domain.Project, error) {
	return domain.Project{ID: "p1", Name: in.Name, Key: in.Key}, f.hit("CreateProject")
}
func (f *fakeAPI) UpdateProject(ctx context.Context, id string, in sdk.ProjectInput) (domain.Project, error) {
	return domain.Project{ID: id, Name: in.Name}, f.hit("UpdateProject")
}
func (f *fakeAPI) DeleteProject(ctx context.Context, id string) error { return f.hit("DeleteProject") }

func (f *fakeAPI) ListTasks(ctx context.Context, q sdk.TaskQuery) (domain.Page[domain.Task], error) {
	f.taskQueries = append(f.taskQueries, q)
	return page(f.tasks), f.hit("ListTasks")
}
func (f *fakeAPI) CreateTask(ctx context.Context, in sdk.TaskInput) (domain.Task, error) {
	return domain.Task{ID: "new", Title: in.Title, Status: in.Status}, f.hit("CreateTask")
}
func (f *fakeAPI) UpdateTask(ctx context.Context, id string, in sdk.TaskInput) (domain.Task, error) {
	return domain.Task{ID: id, Title: in.Title, Status: in.Status, Priority: in.Priority}, f.hit("UpdateTask")
}
func (f *fakeAPI) DeleteTask(ctx context.Context, id string) error { return f.hit("DeleteTask") }

func (f *fakeAPI) ListSprints(ctx context.Context) (domain.Page[domain.Sprint], error) {
	return domain.Page[domain.Sprint]{}, f.hit("ListSprints")
}
func (f *fakeAPI) CreateSprint(ctx context.Context, in sdk.SprintInput) (domain.Sprint, error) {
	return domain.Sprint{ID: "s1", Name: in.Name}, f.hit("CreateSprint")
}
func (f *fakeAPI) UpdateSprint(ctx context.Context, id string, in sdk.SprintInput) (domain.Sprint, error) {
	return domain.Sprint{ID: id, Name: in.Name}, f.hit("UpdateSprint")
}
func (f *fakeAPI) DeleteSprint(ctx context.Context, id string) error { return f.hit("DeleteSprint") }

func (f *fakeAPI) ListRoles(ctx context.Context) (domain.Page[domain.Role], error) {
	return page(f.roles), f.hit("ListRoles")
}
func (f *fakeAPI) CreateRole(ctx context.Context, in sdk.RoleInput) (domain.Role, error) {
	return domain.Role{ID: "r-new", Name: in.Name, Permissions: in.Permissions}, f.hit("CreateRole")
}
func (f *fakeAPI) UpdateRole(ctx context.Context, id string, in sdk.RoleInput) (domain.Role, error) {
	return domain.Role{ID: id, Name: in.Name, Permissions: in.Permissions}, f.hit("UpdateRole")
}
func (f *fakeAPI) DeleteRole(ctx context.Context, id string) error { return f.hit("DeleteRole") }

func (f *fakeAPI) ListInvitations(ctx context.Context) (domain.Page[domain.Invitation], error) {
	return page(f.invitations), f.hit("ListInvitations")
}
func (f *fakeAPI) CreateInvitation(ctx context.Context, in sdk.InvitationInput) (domain.Invitation, error) {
	return domain.Invitation{ID: "i-new", Email: in.Email, RoleID: in.RoleID, Status: "pending"}, f.hit("CreateInvitation")
}
func (f *fakeAPI) RevokeInvitation(ctx context.Context, id string) (domain.Invitation, error) {
	return domain.Invitation{ID: id, Status: "revoked"}, f.hit("RevokeInvitation")
}

func (f *fakeAPI) ListMembers(ctx context.Context) (domain.Page[domain.CompanyUser], error) {
	return domain.Page[domain.CompanyUser]{}, f.hit("ListMembers")
}

func (f *fakeAPI) Activity(ctx context.Context, limit int) (domain.Page[domain.Activity], error) {
	return domain.Page[domain.Activity]{}, f.hit("Activity")
}

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func newBoard(api *fakeAPI, s Settings) (*Board, *notify.Recorder, *store.Store) {
	rec := &notify.Recorder{}
	st := store.New()
	return New(api, &remote.Runner{Notifier: rec}, st, s), rec, st
}

func TestRoleFormShortCircuit(t *testing.T) {
	api := newFakeAPI()
	b, rec, _ := newBoard(api, Settings{})
	b.RoleDialog.OpenCreate()
	if b.RoleDialog.Submit(context.Background()) {
		t.Fatalf("empty role form must not submit")
	}
	errs := b.RoleDialog.Errors()
	keys := make(map[string]bool, len(errs))
	for k := range errs {
		keys[k] = true
	}
	if !reflect.DeepEqual(keys, map[string]bool{"roleName": true, "permissions": true}) {
		t.Fatalf("expected exactly roleName and permissions errors, got %v", errs)
	}
	if api.calls["CreateRole"] != 0 {
		t.Fatalf("no remote call expected")
	}
	if len(rec.All()) != 0 {
		t.Fatalf("validation errors are not notifications")
	}
}

func TestRoleNameBounds(t *testing.T) {
	api := newFakeAPI()
	b, _, _ := newBoard(api, Settings{})
	b.RoleDialog.OpenCreate()
	_ = form.SetField(b.RoleDialog, RoleName, "A")
	_ = form.SetField(b.RoleDialog, RolePermissions, []string{"task.read"})
	b.RoleDialog.Submit(context.Background())
	if _, ok := b.RoleDialog.Errors()["roleName"]; !ok {
		t.Fatalf("one-character name should fail")
	}
	_ = form.SetField(b.RoleDialog, RolePermissions, []string{"bogus"})
	_ = form.SetField(b.RoleDialog, RoleName, "Developer")
	b.RoleDialog.Submit(context.Background())
	if _, ok := b.RoleDialog.Errors()["permissions"]; !ok {
		t.Fatalf("unknown permission should fail")
	}
	_ = form.SetField(b.RoleDialog, RolePermissions, []string{"task.read", "task.write"})
	if !b.RoleDialog.Submit(context.Background()) {
		t.Fatalf("valid role should submit: %v", b.RoleDialog.Errors())
	}
	if api.calls["CreateRole"] != 1 || len(b.Roles.Items()) != 1 {
		t.Fatalf("created role should be appended")
	}
}

func TestTaskFilterMatch(t *testing.T) {
	due := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	task := domain.Task{
		ID: "t1", Title: "Fix login", Description: "OAuth flow", Status: domain.TaskInProgress,
		Priority: intp(2), AssigneeID: strp("u1"), SprintID: strp("s1"), DueDate: &due,
	}
	cases := []struct {
		name   string
		filter TaskFilter
		want   bool
	}{
		{"empty", TaskFilter{}, true},
		{"all sentinel", TaskFilter{Status: "all", AssigneeID: "all", SprintID: "ALL"}, true},
		{"search title", TaskFilter{Search: "LOGIN"}, true},
		{"search description", TaskFilter{Search: "oauth"}, true},
		{"search ignores other fields", TaskFilter{Search: "u1"}, false},
		{"status", TaskFilter{Status: domain.TaskDone}, false},
		{"priority", TaskFilter{Priority: 2}, true},
		{"priority mismatch", TaskFilter{Priority: 1}, false},
		{"assignee", TaskFilter{AssigneeID: "u2"}, false},
		{"sprint", TaskFilter{SprintID: "s1"}, true},
		{"due window", TaskFilter{DueFrom: due.AddDate(0, 0, -1), DueTo: due.AddDate(0, 0, 1)}, true},
		{"due before window", TaskFilter{DueFrom: due.AddDate(0, 0, 1)}, false},
		{"and combined", TaskFilter{Search: "login", Status: domain.TaskInProgress, Priority: 3}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Match(task); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
	if (TaskFilter{AssigneeID: "u1"}).Match(domain.Task{}) {
		t.Fatalf("unassigned task must not match an assignee constraint")
	}
}

func TestTaskPrioritySortPutsUnsetLast(t *testing.T) {
	api := newFakeAPI()
	api.tasks = []domain.Task{
		{ID: "none", Title: "a"},
		{ID: "p3", Title: "b", Priority: intp(3)},
		{ID: "p1", Title: "c", Priority: intp(1)},
	}
	b, _, st := newBoard(api, Settings{})
	if !b.Tasks.Refresh(context.Background(), TaskFilter{}) {
		t.Fatalf("refresh failed")
	}
	if err := b.Tasks.SetSort("priority", listing.Asc); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, task := range b.Tasks.Visible() {
		got = append(got, task.ID)
	}
	if !reflect.DeepEqual(got, []string{"p1", "p3", "none"}) {
		t.Fatalf("order: %v", got)
	}
	if len(st.Tasks.Get()) != 3 {
		t.Fatalf("store should mirror the task list")
	}
}

func TestTaskServerPagingQuery(t *testing.T) {
	api := newFakeAPI()
	b, _, _ := newBoard(api, Settings{ServerPaging: true, PageSize: 25})
	b.Tasks.Refresh(context.Background(), TaskFilter{Search: "x", Status: "all", AssigneeID: "u1", Priority: 2})
	want := sdk.TaskQuery{Search: "x", AssigneeID: "u1", Priority: 2, Page: 1, Size: 25}
	if len(api.taskQueries) != 1 || api.taskQueries[0] != want {
		t.Fatalf("query: %+v", api.taskQueries)
	}

	local := newFakeAPI()
	lb, _, _ := newBoard(local, Settings{PageSize: 25})
	lb.Tasks.Refresh(context.Background(), TaskFilter{})
	if q := local.taskQueries[0]; q.Page != 0 || q.Size != 0 {
		t.Fatalf("local paging should fetch everything, got %+v", q)
	}
}

func TestTaskDialogEditReconciles(t *testing.T) {
	api := newFakeAPI()
	api.tasks = []domain.Task{{ID: "a", Title: "Alpha", Status: domain.TaskTodo}, {ID: "b", Title: "Bravo", Status: domain.TaskTodo}}
	b, rec, _ := newBoard(api, Settings{})
	ctx := context.Background()
	b.Tasks.Refresh(ctx, TaskFilter{})

	b.TaskDialog.OpenEdit(api.tasks[1])
	_ = form.SetField(b.TaskDialog, TaskTitle, "Bravo2")
	_ = form.SetField(b.TaskDialog, TaskPriority, intp(1))
	if !b.TaskDialog.Submit(ctx) {
		t.Fatalf("submit failed: %v", b.TaskDialog.Errors())
	}
	items := b.Tasks.Items()
	if len(items) != 2 || items[0].Title != "Alpha" || items[1].Title != "Bravo2" || *items[1].Priority != 1 {
		t.Fatalf("items: %+v", items)
	}
	notes := rec.All()
	if len(notes) != 1 || notes[0].Description != "Task updated" {
		t.Fatalf("notifications: %+v", notes)
	}

	b.TaskDialog.OpenCreate()
	_ = form.SetField(b.TaskDialog, TaskStatus, "blocked")
	b.TaskDialog.Submit(ctx)
	errs := b.TaskDialog.Errors()
	if errs["title"] == "" || errs["status"] == "" {
		t.Fatalf("expected title and status errors, got %v", errs)
	}
}

func TestDeleteReconciliation(t *testing.T) {
	api := newFakeAPI()
	api.tasks = []domain.Task{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	b, rec, _ := newBoard(api, Settings{})
	ctx := context.Background()
	b.Tasks.Refresh(ctx, TaskFilter{})

	api.fail["DeleteTask"] = &sdk.APIError{StatusCode: http.StatusForbidden, Message: "task.write required"}
	if b.DeleteTask(ctx, "2") {
		t.Fatalf("failed delete should report false")
	}
	if len(b.Tasks.Items()) != 3 {
		t.Fatalf("failed delete must not reconcile")
	}

	delete(api.fail, "DeleteTask")
	if !b.DeleteTask(ctx, "2") {
		t.Fatalf("delete should succeed")
	}
	items := b.Tasks.Items()
	if len(items) != 2 || items[0].ID != "1" || items[1].ID != "3" {
		t.Fatalf("items: %+v", items)
	}
	notes := rec.All()
	if len(notes) != 2 || notes[0].Variant != notify.Destructive || notes[1].Description != "Task deleted" {
		t.Fatalf("notifications: %+v", notes)
	}
}

func TestRevokeInvitationKeepsRow(t *testing.T) {
	api := newFakeAPI()
	api.invitations = []domain.Invitation{{ID: "i1", Email: "a@example.com", Status: "pending"}}
	b, _, _ := newBoard(api, Settings{})
	ctx := context.Background()
	b.Invitations.Refresh(ctx, InvitationFilter{})
	if !b.RevokeInvitation(ctx, "i1") {
		t.Fatalf("revoke failed")
	}
	items := b.Invitations.Items()
	if len(items) != 1 || items[0].Status != "revoked" {
		t.Fatalf("items: %+v", items)
	}
	b.Invitations.ApplyFilter(InvitationFilter{Status: "pending"})
	if len(b.Invitations.Visible()) != 0 {
		t.Fatalf("revoked invitation should be filtered out")
	}
}

func TestInvitationDialogValidatesEmail(t *testing.T) {
	api := newFakeAPI()
	b, _, _ := newBoard(api, Settings{})
	b.InviteDialog.OpenCreate()
	_ = form.SetField(b.InviteDialog, InviteEmail, "not-an-email")
	_ = form.SetField(b.InviteDialog, InviteRole, "r1")
	if b.InviteDialog.Submit(context.Background()) {
		t.Fatalf("bad email must not submit")
	}
	_ = form.SetField(b.InviteDialog, InviteEmail, "bo@example.com")
	if !b.InviteDialog.Submit(context.Background()) {
		t.Fatalf("valid invitation should submit: %v", b.InviteDialog.Errors())
	}
}

func TestSprintDialogDateRange(t *testing.T) {
	api := newFakeAPI()
	b, _, _ := newBoard(api, Settings{})
	start := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -3)
	b.SprintDialog.OpenCreate()
	_ = form.SetField(b.SprintDialog, SprintName, "Sprint 7")
	_ = form.SetField(b.SprintDialog, SprintStart, &start)
	_ = form.SetField(b.SprintDialog, SprintEnd, &end)
	b.SprintDialog.Submit(context.Background())
	if b.SprintDialog.Errors()["endDate"] == "" || api.calls["CreateSprint"] != 0 {
		t.Fatalf("end before start must fail without a call")
	}
}

func TestListFailureSignsOutOnExpiry(t *testing.T) {
	api := newFakeAPI()
	api.fail["ListRoles"] = &sdk.APIError{StatusCode: http.StatusUnauthorized, Code: "token_expired"}
	signedOut := 0
	rec := &notify.Recorder{}
	b := New(api, &remote.Runner{Notifier: rec, SignOut: remote.SignOutFunc(func() { signedOut++ })}, nil, Settings{})
	if b.Roles.Refresh(context.Background(), RoleFilter{}) {
		t.Fatalf("refresh should fail")
	}
	if signedOut != 1 {
		t.Fatalf("sign out calls: %d", signedOut)
	}
	if b.Roles.Loading() {
		t.Fatalf("loading must be false")
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	tasks := []domain.Task{
		{Status: domain.TaskTodo, DueDate: &past},
		{Status: domain.TaskDone, DueDate: &past, Priority: intp(1)},
		{Status: domain.TaskInProgress, AssigneeID: strp("u1"), Priority: intp(1)},
		{Status: "blocked"},
	}
	s := Summarize(tasks, now)
	if s.Total != 4 || s.Overdue != 1 {
		t.Fatalf("total=%d overdue=%d", s.Total, s.Overdue)
	}
	if s.ByPriority[1] != 2 || s.ByPriority[0] != 2 || s.ByAssignee[""] != 3 || s.ByAssignee["u1"] != 1 {
		t.Fatalf("summary: %+v", s)
	}
	rows := s.StatusRows()
	if len(rows) != 5 || rows[0].Status != domain.TaskTodo || rows[4].Status != "blocked" {
		t.Fatalf("rows: %+v", rows)
	}
	if s.Completion() != 0.25 {
		t.Fatalf("completion: %v", s.Completion())
	}
	if (Summary{}).Completion() != 0 {
		t.Fatalf("empty completion")
	}
}

func TestDeleteWithPlainError(t *testing.T) {
	api := newFakeAPI()
	api.fail["DeleteRole"] = errors.New("connection refused")
	b, rec, _ := newBoard(api, Settings{})
	if b.DeleteRole(context.Background(), "r1") {
		t.Fatalf("expected failure")
	}
	notes := rec.All()
	if len(notes) != 1 || notes[0].Title != "Delete role" || notes[0].Description != "connection refused" {
		t.Fatalf("notifications: %+v", notes)
	}
}
