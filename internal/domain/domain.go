package domain

import (
	"strconv"
	"time"
)

// Entity is any server-owned record the client mirrors.
type Entity interface {
	EntityID() string
}

// Page is one server response for a list endpoint.
type Page[E Entity] struct {
	Items []E `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page,omitempty"`
	Size  int `json:"size,omitempty"`
}

const (
	TaskTodo       = "todo"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// TaskStatuses lists task statuses in board order.
var TaskStatuses = []string{TaskTodo, TaskInProgress, TaskReview, TaskDone}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status" enum:"active,archived"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p Project) EntityID() string { return p.ID }

type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	SprintID    *string    `json:"sprint_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status" enum:"todo,in_progress,review,done"`
	Priority    *int       `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t Task) EntityID() string { return t.ID }

type Sprint struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Goal      string    `json:"goal,omitempty"`
	Status    string    `json:"status" enum:"planned,active,closed"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	MemberIDs []string  `json:"member_ids"`
}

func (s Sprint) EntityID() string { return s.ID }

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

func (r Role) EntityID() string { return r.ID }

type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	RoleID    string    `json:"role_id"`
	Status    string    `json:"status" enum:"pending,accepted,revoked,expired"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (i Invitation) EntityID() string { return i.ID }

// CompanyUser is a member of the company workspace.
type CompanyUser struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	RoleID   string    `json:"role_id,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

func (u CompanyUser) EntityID() string { return u.ID }

// Activity is one entry of a project's mutation log.
type Activity struct {
	ID         int64     `json:"id"`
	TS         time.Time `json:"ts"`
	Type       string    `json:"type"`
	ProjectID  string    `json:"project_id,omitempty"`
	EntityKind string    `json:"entity_kind"`
	TargetID   string    `json:"entity_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Payload    string    `json:"payload_json"`
}

func (a Activity) EntityID() string { return strconv.FormatInt(a.ID, 10) }

// Permissions is the capability catalog roles may grant.
var Permissions = []string{
	"project.read",
	"project.manage",
	"task.read",
	"task.write",
	"sprint.read",
	"sprint.manage",
	"role.manage",
	"invitation.manage",
	"report.read",
}
