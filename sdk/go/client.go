package sprintdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sprintdesk/internal/domain"
)

type (
	Project     = domain.Project
	Task        = domain.Task
	Sprint      = domain.Sprint
	Role        = domain.Role
	Invitation  = domain.Invitation
	CompanyUser = domain.CompanyUser
	Activity    = domain.Activity
)

// Client is a minimal sprintdesk HTTP API client.
type Client struct {
	BaseURL     string
	ProjectID   string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *APIError) HTTPStatus() int { return e.StatusCode }

func (e *APIError) ServerMessage() string { return e.Message }

// SessionExpired reports whether the server rejected an expired token.
func (e *APIError) SessionExpired() bool {
	if e.Code == "token_expired" {
		return true
	}
	v, _ := e.Details["tokenExpired"].(bool)
	return v
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// LoginResponse is returned by the dev login endpoint.
type LoginResponse struct {
	Token     string      `json:"token"`
	User      CompanyUser `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type ProjectInput struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	SprintID    *string    `json:"sprint_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// TaskQuery selects one server page of tasks. Zero values are omitted.
type TaskQuery struct {
	Search     string
	Status     string
	Priority   int
	AssigneeID string
	SprintID   string
	Page       int
	Size       int
}

type SprintInput struct {
	Name      string    `json:"name"`
	Goal      string    `json:"goal,omitempty"`
	Status    string    `json:"status,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	MemberIDs []string  `json:"member_ids,omitempty"`
}

type RoleInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type InvitationInput struct {
	Email  string `json:"email"`
	RoleID string `json:"role_id"`
}

// Login mints a session token for email on a dev server.
func (c *Client) Login(ctx context.Context, email string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "v0/auth/dev/login", map[string]any{"email": email}, &resp)
	return resp, err
}

// Me returns the user behind the bearer token.
func (c *Client) Me(ctx context.Context) (CompanyUser, error) {
	var resp CompanyUser
	err := c.do(ctx, http.MethodGet, "v0/me", nil, &resp)
	return resp, err
}

func (c *Client) ListProjects(ctx context.Context) (domain.Page[Project], error) {
	var resp domain.Page[Project]
	err := c.do(ctx, http.MethodGet, "v0/projects", nil, &resp)
	return resp, err
}

func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", in, &resp)
	return resp, err
}

func (c *Client) UpdateProject(ctx context.Context, id string, in ProjectInput) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPatch, "v0/projects/"+url.PathEscape(id), in, &resp)
	return resp, err
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v0/projects/"+url.PathEscape(id), nil, nil)
}

// ListTasks returns one page of the active project's tasks.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) (domain.Page[Task], error) {
	params := url.Values{}
	setParam(params, "search", q.Search)
	setParam(params, "status", q.Status)
	setParam(params, "assignee_id", q.AssigneeID)
	setParam(params, "sprint_id", q.SprintID)
	if q.Priority > 0 {
		params.Set("priority", strconv.Itoa(q.Priority))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		params.Set("size", strconv.Itoa(q.Size))
	}
	var resp domain.Page[Task]
	err := c.do(ctx, http.MethodGet, withQuery(c.projectPath("tasks"), params), nil, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, c.projectPath("tasks"), in, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPatch, c.projectPath("tasks/"+url.PathEscape(id)), in, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.projectPath("tasks/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) ListSprints(ctx context.Context) (domain.Page[Sprint], error) {
	var resp domain.Page[Sprint]
	err := c.do(ctx, http.MethodGet, c.projectPath("sprints"), nil, &resp)
	return resp, err
}

func (c *Client) CreateSprint(ctx context.Context, in SprintInput) (Sprint, error) {
	var resp Sprint
	err := c.do(ctx, http.MethodPost, c.projectPath("sprints"), in, &resp)
	return resp, err
}

func (c *Client) UpdateSprint(ctx context.Context, id string, in SprintInput) (Sprint, error) {
	var resp Sprint
	err := c.do(ctx, http.MethodPatch, c.projectPath("sprints/"+url.PathEscape(id)), in, &resp)
	return resp, err
}

func (c *Client) DeleteSprint(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.projectPath("sprints/"+url.PathEscape(id)), nil, nil)
}

func (c *Client) ListRoles(ctx context.Context) (domain.Page[Role], error) {
	var resp domain.Page[Role]
	err := c.do(ctx, http.MethodGet, "v0/roles", nil, &resp)
	return resp, err
}

func (c *Client) CreateRole(ctx context.Context, in RoleInput) (Role, error) {
	var resp Role
	err := c.do(ctx, http.MethodPost, "v0/roles", in, &resp)
	return resp, err
}

func (c *Client) UpdateRole(ctx context.Context, id string, in RoleInput) (Role, error) {
	var resp Role
	err := c.do(ctx, http.MethodPatch, "v0/roles/"+url.PathEscape(id), in, &resp)
	return resp, err
}

func (c *Client) DeleteRole(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v0/roles/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListInvitations(ctx context.Context) (domain.Page[Invitation], error) {
	var resp domain.Page[Invitation]
	err := c.do(ctx, http.MethodGet, "v0/invitations", nil, &resp)
	return resp, err
}

func (c *Client) CreateInvitation(ctx context.Context, in InvitationInput) (Invitation, error) {
	var resp Invitation
	err := c.do(ctx, http.MethodPost, "v0/invitations", in, &resp)
	return resp, err
}

// RevokeInvitation marks a pending invitation revoked and returns it.
func (c *Client) RevokeInvitation(ctx context.Context, id string) (Invitation, error) {
	var resp Invitation
	err := c.do(ctx, http.MethodDelete, "v0/invitations/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) ListMembers(ctx context.Context) (domain.Page[CompanyUser], error) {
	var resp domain.Page[CompanyUser]
	err := c.do(ctx, http.MethodGet, "v0/members", nil, &resp)
	return resp, err
}

// Activity returns the most recent mutation events of the active project.
func (c *Client) Activity(ctx context.Context, limit int) (domain.Page[Activity], error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var resp domain.Page[Activity]
	err := c.do(ctx, http.MethodGet, withQuery(c.projectPath("activity"), params), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return decodeAPIError(resp.StatusCode, b)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}

func setParam(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func withQuery(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}
