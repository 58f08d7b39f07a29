package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"sprintdesk/internal/config"
	"sprintdesk/internal/db"
	"sprintdesk/internal/domain"
	"sprintdesk/internal/engine"
	"sprintdesk/internal/migrate"
	"sprintdesk/internal/remote"
	sdk "sprintdesk/sdk/go"
)

type testServer struct {
	URL    string
	client *http.Client
	clock  *time.Time
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

// advance moves the token clock.
func (s *testServer) advance(d time.Duration) { *s.clock = s.clock.Add(d) }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	if err := e.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	clock := time.Now()
	log := logrus.New()
	log.SetOutput(io.Discard)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Logger:   log,
		Auth: AuthConfig{
			JWTSecret: "test-secret",
			TokenTTL:  time.Hour,
			Now:       func() time.Time { return clock },
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		clock:  &clock,
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, data []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error body %s: %v", string(data), err)
	}
	return env
}

// login signs in through the SDK and returns a client carrying the token.
func login(t *testing.T, srv *testServer, email string) *sdk.Client {
	t.Helper()
	c := sdk.New(srv.URL, "")
	resp, err := c.Login(context.Background(), email)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	if resp.Token == "" || resp.User.Email != email {
		t.Fatalf("login response: %+v", resp)
	}
	c.BearerToken = resp.Token
	return c
}

func bearer(c *sdk.Client) map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.BearerToken}
}

func TestHealthIsPublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", res.StatusCode, string(data))
	}
}

func TestOpenAPIConcurrentFirstRequests(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	const n = 8
	bodies := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := srv.Client().Get(srv.URL + "/v0/openapi.json")
			if err != nil {
				errs[i] = err
				return
			}
			defer res.Body.Close()
			bodies[i], errs[i] = io.ReadAll(res.Body)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if !bytes.Equal(bodies[i], bodies[0]) {
			t.Fatalf("request %d served a different document", i)
		}
	}
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(bodies[0], &doc); err != nil || len(doc.Paths) == 0 {
		t.Fatalf("openapi document: %v (%d paths)", err, len(doc.Paths))
	}
}

func TestDevLoginAndMe(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := login(t, srv, "ada@example.com")
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Email != "ada@example.com" || me.RoleID != "admin" {
		t.Fatalf("me = %+v", me)
	}
}

func TestMissingAndBadTokens(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, nil)
	if res.StatusCode != http.StatusUnauthorized || decodeError(t, data).Error.Code != "unauthorized" {
		t.Fatalf("no token: %d %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"Authorization": "Bearer garbage"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token: %d %s", res.StatusCode, string(data))
	}
	env := decodeError(t, data)
	if env.Error.Code != "invalid_credentials" || env.Error.Details["tokenExpired"] == true {
		t.Fatalf("bad token body: %s", string(data))
	}
}

func TestExpiredTokenSignalsSessionExpiry(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := login(t, srv, "ada@example.com")
	srv.advance(2 * time.Hour)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects", nil, bearer(c))
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expired: %d %s", res.StatusCode, string(data))
	}
	env := decodeError(t, data)
	if env.Error.Code != "token_expired" || env.Error.Details["tokenExpired"] != true {
		t.Fatalf("expired body: %s", string(data))
	}

	_, err := c.ListProjects(context.Background())
	var apiErr *sdk.APIError
	if !errors.As(err, &apiErr) || !apiErr.SessionExpired() {
		t.Fatalf("sdk error = %v", err)
	}
	if f := remote.Classify(err, nil); f.Kind != remote.SessionExpired {
		t.Fatalf("classified as %s", f.Kind)
	}
}

func TestValidationMessageIsVerbatim(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := login(t, srv, "ada@example.com")
	_, err := c.CreateProject(context.Background(), sdk.ProjectInput{Name: "", Key: "AB"})
	f := remote.Classify(err, nil)
	if f.Kind != remote.BadRequest || f.Message != "name is required" {
		t.Fatalf("failure = %+v", f)
	}

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/projects", map[string]any{"name": "Core", "key": "C"}, bearer(c))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("short key: %d %s", res.StatusCode, string(data))
	}
	if msg := decodeError(t, data).Error.Message; msg != "key must be at least 2 characters" {
		t.Fatalf("message = %q", msg)
	}
}

func TestViewerIsForbidden(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	login(t, srv, "ada@example.com")
	viewer := login(t, srv, "vic@example.com")
	_, err := viewer.CreateProject(context.Background(), sdk.ProjectInput{Name: "Nope", Key: "NO"})
	var apiErr *sdk.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusForbidden || apiErr.Code != "forbidden" {
		t.Fatalf("err = %v", err)
	}
	if f := remote.Classify(err, nil); f.Kind != remote.Forbidden || f.Message != "permission project.manage required" {
		t.Fatalf("failure = %+v", f)
	}
}

func TestUnknownProjectIsNotFound(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	c := login(t, srv, "ada@example.com")
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/projects/nope", nil, bearer(c))
	if res.StatusCode != http.StatusNotFound || decodeError(t, data).Error.Code != "not_found" {
		t.Fatalf("get: %d %s", res.StatusCode, string(data))
	}
}

func TestTaskLifecycleOverSDK(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := login(t, srv, "ada@example.com")
	p, err := c.CreateProject(ctx, sdk.ProjectInput{Name: "Payments", Key: "PAY"})
	if err != nil {
		t.Fatal(err)
	}
	c.ProjectID = p.ID
	var ids []string
	for _, title := range []string{"One", "Two", "Three"} {
		task, err := c.CreateTask(ctx, sdk.TaskInput{Title: title})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		if task.Status != domain.TaskTodo {
			t.Fatalf("default status = %s", task.Status)
		}
		ids = append(ids, task.ID)
	}
	page, err := c.ListTasks(ctx, sdk.TaskQuery{Page: 2, Size: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Items) != 1 || page.Page != 2 || page.Size != 2 {
		t.Fatalf("page = %+v", page)
	}
	all, err := c.ListTasks(ctx, sdk.TaskQuery{})
	if err != nil || len(all.Items) != 3 {
		t.Fatalf("all = %+v %v", all, err)
	}

	prio := 3
	updated, err := c.UpdateTask(ctx, ids[0], sdk.TaskInput{Title: "One!", Status: domain.TaskDone, Priority: &prio})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "One!" || updated.Status != domain.TaskDone || updated.Priority == nil || *updated.Priority != 3 {
		t.Fatalf("updated = %+v", updated)
	}
	if err := c.DeleteTask(ctx, ids[1]); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteTask(ctx, ids[1]); err == nil {
		t.Fatal("second delete succeeded")
	}

	acts, err := c.Activity(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(acts.Items) != 2 || acts.Items[0].Type != "task.deleted" {
		t.Fatalf("activity = %+v", acts.Items)
	}
}

func TestSprintsRolesAndInvitationsOverSDK(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()
	c := login(t, srv, "ada@example.com")
	p, err := c.CreateProject(ctx, sdk.ProjectInput{Name: "Payments", Key: "PAY"})
	if err != nil {
		t.Fatal(err)
	}
	c.ProjectID = p.ID
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	s, err := c.CreateSprint(ctx, sdk.SprintInput{Name: "Sprint 1", StartDate: start, EndDate: start.AddDate(0, 0, 14)})
	if err != nil {
		t.Fatal(err)
	}
	if !s.StartDate.Equal(start) || s.Status != "planned" {
		t.Fatalf("sprint = %+v", s)
	}
	sprints, err := c.ListSprints(ctx)
	if err != nil || sprints.Total != 1 {
		t.Fatalf("sprints = %+v %v", sprints, err)
	}

	role, err := c.CreateRole(ctx, sdk.RoleInput{Name: "Reporter", Permissions: []string{"report.read"}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.CreateRole(ctx, sdk.RoleInput{Name: "Empty"})
	if f := remote.Classify(err, nil); f.Kind != remote.BadRequest || f.Message != "permissions are required" {
		t.Fatalf("empty permissions: %+v", f)
	}
	roles, err := c.ListRoles(ctx)
	if err != nil || roles.Total != 4 {
		t.Fatalf("roles = %+v %v", roles, err)
	}

	inv, err := c.CreateInvitation(ctx, sdk.InvitationInput{Email: "grace@example.com", RoleID: role.ID})
	if err != nil {
		t.Fatal(err)
	}
	revoked, err := c.RevokeInvitation(ctx, inv.ID)
	if err != nil || revoked.Status != "revoked" {
		t.Fatalf("revoke = %+v %v", revoked, err)
	}
	invs, err := c.ListInvitations(ctx)
	if err != nil || len(invs.Items) != 1 || invs.Items[0].Status != "revoked" {
		t.Fatalf("invitations = %+v %v", invs, err)
	}
	members, err := c.ListMembers(ctx)
	if err != nil || members.Total != 1 {
		t.Fatalf("members = %+v %v", members, err)
	}
}
