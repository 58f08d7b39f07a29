package engine

import (
	"context"
	"database/sql"
	"strings"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/events"
)

type ProjectInput struct {
	Name        string
	Key         string
	Description string
	Status      string
}

func (in *ProjectInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Key = strings.ToUpper(strings.TrimSpace(in.Key))
	if in.Status == "" {
		in.Status = "active"
	}
	if err := checkLength("name", in.Name, 2, 50); err != nil {
		return err
	}
	if err := checkLength("key", in.Key, 2, 10); err != nil {
		return err
	}
	if err := checkLength("description", in.Description, 0, 255); err != nil {
		return err
	}
	return checkOneOf("status", in.Status, "active", "archived")
}

func (e Engine) ListProjects(ctx context.Context, actorID string) ([]domain.Project, error) {
	if err := e.Auth.Require(ctx, e.DB, actorID, "project.read"); err != nil {
		return nil, err
	}
	return e.Repo.ListProjects(ctx, e.DB)
}

func (e Engine) GetProject(ctx context.Context, actorID, id string) (domain.Project, error) {
	if err := e.Auth.Require(ctx, e.DB, actorID, "project.read"); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, e.DB, id)
}

func (e Engine) CreateProject(ctx context.Context, actorID string, in ProjectInput) (domain.Project, error) {
	if err := in.normalize(); err != nil {
		return domain.Project{}, err
	}
	p := domain.Project{ID: newID(), Name: in.Name, Key: in.Key, Description: in.Description, Status: in.Status, CreatedAt: e.now()}
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "project.manage"); err != nil {
			return err
		}
		if err := e.ensureProjectKeyFree(ctx, tx, p.Key, ""); err != nil {
			return err
		}
		if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "project.created", p.ID, "project", p.ID, actorID, events.EventPayload{"key": p.Key})
	})
	return p, err
}

func (e Engine) UpdateProject(ctx context.Context, actorID, id string, in ProjectInput) (domain.Project, error) {
	if err := in.normalize(); err != nil {
		return domain.Project{}, err
	}
	var p domain.Project
	err := e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "project.manage"); err != nil {
			return err
		}
		old, err := e.Repo.GetProject(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := e.ensureProjectKeyFree(ctx, tx, in.Key, id); err != nil {
			return err
		}
		p = old
		p.Name, p.Key, p.Description, p.Status = in.Name, in.Key, in.Description, in.Status
		if err := e.Repo.UpdateProject(ctx, tx, p); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "project.updated", p.ID, "project", p.ID, actorID, events.EventPayload{"from": old.Status, "to": p.Status})
	})
	return p, err
}

func (e Engine) DeleteProject(ctx context.Context, actorID, id string) error {
	return e.write(ctx, func(tx *sql.Tx) error {
		if err := e.Auth.Require(ctx, tx, actorID, "project.manage"); err != nil {
			return err
		}
		if err := e.Repo.DeleteProject(ctx, tx, id); err != nil {
			return err
		}
		// The deletion itself is logged company-wide.
		if err := e.Events.Purge(ctx, tx, id); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, "project.deleted", "", "project", id, actorID, nil)
	})
}

func (e Engine) ensureProjectKeyFree(ctx context.Context, tx *sql.Tx, key, exceptID string) error {
	taken, err := e.Repo.ProjectKeyTaken(ctx, tx, key, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return invalid("project key %s is already in use", key)
	}
	return nil
}
