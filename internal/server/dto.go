package server

import (
	"time"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/engine"
)

// Request payloads. Fields are optional at the schema level so the engine
// reports missing values with its own messages.

type ProjectRequest struct {
	Name        string `json:"name,omitempty"`
	Key         string `json:"key,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (r ProjectRequest) input() engine.ProjectInput {
	return engine.ProjectInput{Name: r.Name, Key: r.Key, Description: r.Description, Status: r.Status}
}

type TaskRequest struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    *int       `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	SprintID    *string    `json:"sprint_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (r TaskRequest) input() engine.TaskInput {
	return engine.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		AssigneeID:  r.AssigneeID,
		SprintID:    r.SprintID,
		DueDate:     r.DueDate,
	}
}

type SprintRequest struct {
	Name      string    `json:"name,omitempty"`
	Goal      string    `json:"goal,omitempty"`
	Status    string    `json:"status,omitempty"`
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`
	MemberIDs []string  `json:"member_ids,omitempty"`
}

func (r SprintRequest) input() engine.SprintInput {
	return engine.SprintInput{
		Name:      r.Name,
		Goal:      r.Goal,
		Status:    r.Status,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		MemberIDs: r.MemberIDs,
	}
}

type RoleRequest struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func (r RoleRequest) input() engine.RoleInput {
	return engine.RoleInput{Name: r.Name, Description: r.Description, Permissions: r.Permissions}
}

type InvitationRequest struct {
	Email  string `json:"email,omitempty"`
	RoleID string `json:"role_id,omitempty"`
}

type DevLoginRequest struct {
	Email string `json:"email,omitempty" example:"ada@example.com"`
}

// Responses

type DevLoginResponse struct {
	Token     string             `json:"token"`
	User      domain.CompanyUser `json:"user"`
	ExpiresAt time.Time          `json:"expires_at"`
}

// List envelopes mirror domain.Page with concrete item types so each gets
// a readable OpenAPI schema name.

type ProjectPage struct {
	Items []domain.Project `json:"items"`
	Total int              `json:"total"`
}

type TaskPage struct {
	Items []domain.Task `json:"items"`
	Total int           `json:"total"`
	Page  int           `json:"page,omitempty"`
	Size  int           `json:"size,omitempty"`
}

type SprintPage struct {
	Items []domain.Sprint `json:"items"`
	Total int             `json:"total"`
}

type RolePage struct {
	Items []domain.Role `json:"items"`
	Total int           `json:"total"`
}

type InvitationPage struct {
	Items []domain.Invitation `json:"items"`
	Total int                 `json:"total"`
}

type MemberPage struct {
	Items []domain.CompanyUser `json:"items"`
	Total int                  `json:"total"`
}

type ActivityPage struct {
	Items []domain.Activity `json:"items"`
	Total int               `json:"total"`
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
